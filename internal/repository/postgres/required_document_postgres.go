package postgres

import (
	"context"

	"loanops/internal/model"
	"loanops/internal/repository"
)

// RequiredDocumentPostgres is the tracker over application_required_documents.
// Rows are upserted and never deleted.
type RequiredDocumentPostgres struct {
	db repository.DBTX
}

func NewRequiredDocumentPostgres(db repository.DBTX) *RequiredDocumentPostgres {
	return &RequiredDocumentPostgres{db: db}
}

var _ repository.RequiredDocumentRepository = (*RequiredDocumentPostgres)(nil)

// Upsert is keyed by (application_id, document_category). The caller passes
// an already normalized category.
func (r *RequiredDocumentPostgres) Upsert(ctx context.Context, applicationID, category string, isRequired bool, status model.DocumentStatus) (*model.RequiredDocument, error) {
	const q = `
		INSERT INTO application_required_documents (application_id, document_category, is_required, status, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (application_id, document_category)
		DO UPDATE SET is_required = EXCLUDED.is_required, status = EXCLUDED.status, updated_at = now()
		RETURNING application_id, document_category, is_required, status, updated_at`
	var (
		d  model.RequiredDocument
		st string
	)
	if err := r.db.QueryRowContext(ctx, q, applicationID, category, isRequired, string(status)).Scan(
		&d.ApplicationID, &d.Category, &d.IsRequired, &st, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Status = model.DocumentStatus(st)
	return &d, nil
}

func (r *RequiredDocumentPostgres) List(ctx context.Context, applicationID string) ([]model.RequiredDocument, error) {
	const q = `
		SELECT application_id, document_category, is_required, status, updated_at
		FROM application_required_documents
		WHERE application_id = $1
		ORDER BY document_category`
	rows, err := r.db.QueryContext(ctx, q, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.RequiredDocument, 0)
	for rows.Next() {
		var (
			d  model.RequiredDocument
			st string
		)
		if err := rows.Scan(&d.ApplicationID, &d.Category, &d.IsRequired, &st, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Status = model.DocumentStatus(st)
		out = append(out, d)
	}
	return out, rows.Err()
}
