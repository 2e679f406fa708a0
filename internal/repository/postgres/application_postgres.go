package postgres

import (
	"context"

	"loanops/internal/model"
	"loanops/internal/repository"
)

// ApplicationPostgres is a PostgreSQL implementation of repository.ApplicationRepository.
type ApplicationPostgres struct {
	db repository.DBTX
}

func NewApplicationPostgres(db repository.DBTX) *ApplicationPostgres {
	return &ApplicationPostgres{db: db}
}

var _ repository.ApplicationRepository = (*ApplicationPostgres)(nil)

const applicationColumns = `
	id, COALESCE(processing_stage, ''), ocr_completed_at, banking_completed_at,
	credit_summary_completed_at, COALESCE(product_type, ''), lender_product_id,
	requested_amount::float8, metadata, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (*model.Application, error) {
	var (
		a     model.Application
		stage string
		meta  []byte
	)
	if err := row.Scan(
		&a.ID,
		&stage,
		&a.OCRCompletedAt,
		&a.BankingCompletedAt,
		&a.CreditSummaryCompletedAt,
		&a.ProductType,
		&a.LenderProductID,
		&a.RequestedAmount,
		&meta,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.ProcessingStage = model.ProcessingStage(stage)
	if len(meta) > 0 {
		a.Metadata = append([]byte(nil), meta...)
	}
	return &a, nil
}

func (r *ApplicationPostgres) FindByID(ctx context.Context, id string) (*model.Application, error) {
	q := `SELECT` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(r.db.QueryRowContext(ctx, q, id))
}

// LockForUpdate serializes every stage computation for one application.
func (r *ApplicationPostgres) LockForUpdate(ctx context.Context, id string) (*model.Application, error) {
	q := `SELECT` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	return scanApplication(r.db.QueryRowContext(ctx, q, id))
}

func (r *ApplicationPostgres) UpdateStage(ctx context.Context, id string, stage model.ProcessingStage) error {
	const q = `UPDATE applications SET processing_stage = $2, updated_at = now() WHERE id = $1`
	return execOne(ctx, r.db, q, id, string(stage))
}

func (r *ApplicationPostgres) StampOCRCompleted(ctx context.Context, id string) error {
	const q = `
		UPDATE applications
		SET ocr_completed_at = COALESCE(ocr_completed_at, now()), updated_at = now()
		WHERE id = $1`
	return execOne(ctx, r.db, q, id)
}

func (r *ApplicationPostgres) StampBankingCompleted(ctx context.Context, id string) error {
	const q = `
		UPDATE applications
		SET banking_completed_at = COALESCE(banking_completed_at, now()), updated_at = now()
		WHERE id = $1`
	return execOne(ctx, r.db, q, id)
}

func (r *ApplicationPostgres) StampCreditSummaryCompleted(ctx context.Context, id string) error {
	const q = `
		UPDATE applications
		SET credit_summary_completed_at = COALESCE(credit_summary_completed_at, now()), updated_at = now()
		WHERE id = $1`
	return execOne(ctx, r.db, q, id)
}

func (r *ApplicationPostgres) CountPendingJobs(ctx context.Context, id string) (model.PendingJobCounts, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM document_processing_jobs
			 WHERE application_id = $1 AND job_type = 'ocr' AND status = 'pending'),
			(SELECT COUNT(*) FROM banking_analysis_jobs
			 WHERE application_id = $1 AND status = 'pending')`
	var c model.PendingJobCounts
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&c.OCR, &c.Banking); err != nil {
		return model.PendingJobCounts{}, err
	}
	return c, nil
}
