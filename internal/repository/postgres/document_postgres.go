package postgres

import (
	"context"

	"github.com/lib/pq"

	"loanops/internal/model"
	"loanops/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db repository.DBTX
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db repository.DBTX) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `
	id, application_id, document_type, status, filename, storage_path, size,
	content_type, rejection_reason, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var (
		d      model.Document
		status string
	)
	if err := row.Scan(
		&d.ID,
		&d.ApplicationID,
		&d.DocumentType,
		&status,
		&d.Filename,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.RejectionReason,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Status = model.DocumentStatus(status)
	return &d, nil
}

// Create inserts a new document row and returns the stored record. Both
// timestamps come from the database clock, the same one review updates use,
// so a re-upload always sorts after the rejection it replaces.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q := `
		INSERT INTO documents (id, application_id, document_type, status, filename, storage_path, size, content_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.ApplicationID,
		doc.DocumentType,
		string(doc.Status),
		doc.Filename,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// LockForUpdate fetches the document row and holds its lock until the transaction ends.
func (r *DocumentPostgres) LockForUpdate(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// ListByApplication returns the application's documents, newest first.
func (r *DocumentPostgres) ListByApplication(ctx context.Context, applicationID string) ([]model.Document, error) {
	q := `SELECT` + documentColumns + `
		FROM documents
		WHERE application_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *DocumentPostgres) CountByTypes(ctx context.Context, applicationID string, types []string) (int, int, error) {
	const q = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'uploaded')
		FROM documents
		WHERE application_id = $1 AND document_type = ANY($2)`
	var total, uploaded int
	if err := r.db.QueryRowContext(ctx, q, applicationID, pq.Array(types)).Scan(&total, &uploaded); err != nil {
		return 0, 0, err
	}
	return total, uploaded, nil
}

// UpdateStatus sets the review status. reason is stored for rejections and cleared otherwise.
func (r *DocumentPostgres) UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, reason *string) (*model.Document, error) {
	q := `
		UPDATE documents
		SET status = $2, rejection_reason = $3, updated_at = now()
		WHERE id = $1
		RETURNING` + documentColumns
	return scanDocument(r.db.QueryRowContext(ctx, q, id, string(status), reason))
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
