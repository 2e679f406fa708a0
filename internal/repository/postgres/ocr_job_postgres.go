package postgres

import (
	"context"
	"database/sql"
	"errors"

	"loanops/internal/model"
	"loanops/internal/repository"
)

// OCRJobPostgres stores OCR jobs in document_processing_jobs. The table's
// UNIQUE (document_id, job_type) constraint backs up the row locks taken by
// the orchestrator.
type OCRJobPostgres struct {
	db repository.DBTX
}

func NewOCRJobPostgres(db repository.DBTX) *OCRJobPostgres {
	return &OCRJobPostgres{db: db}
}

var _ repository.OCRJobRepository = (*OCRJobPostgres)(nil)

const ocrJobColumns = `
	id, application_id, document_id, job_type, status, retry_count, max_retries,
	last_retry_at, error_message, created_at, started_at, completed_at, updated_at`

func scanOCRJob(row interface{ Scan(...any) error }) (*model.DocumentProcessingJob, error) {
	var (
		j      model.DocumentProcessingJob
		status string
	)
	if err := row.Scan(
		&j.ID,
		&j.ApplicationID,
		&j.DocumentID,
		&j.JobType,
		&status,
		&j.RetryCount,
		&j.MaxRetries,
		&j.LastRetryAt,
		&j.ErrorMessage,
		&j.CreatedAt,
		&j.StartedAt,
		&j.CompletedAt,
		&j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(status)
	return &j, nil
}

func (r *OCRJobPostgres) FindByDocument(ctx context.Context, documentID string) (*model.DocumentProcessingJob, error) {
	q := `SELECT` + ocrJobColumns + `
		FROM document_processing_jobs
		WHERE document_id = $1 AND job_type = 'ocr'`
	return scanOCRJob(r.db.QueryRowContext(ctx, q, documentID))
}

func (r *OCRJobPostgres) LockByDocument(ctx context.Context, documentID string) (*model.DocumentProcessingJob, error) {
	q := `SELECT` + ocrJobColumns + `
		FROM document_processing_jobs
		WHERE document_id = $1 AND job_type = 'ocr'
		FOR UPDATE`
	return scanOCRJob(r.db.QueryRowContext(ctx, q, documentID))
}

// Create inserts the job; a conflicting row means another caller won the
// race, and that row is returned instead.
func (r *OCRJobPostgres) Create(ctx context.Context, job *model.DocumentProcessingJob) (*model.DocumentProcessingJob, bool, error) {
	q := `
		INSERT INTO document_processing_jobs
			(id, application_id, document_id, job_type, status, retry_count, max_retries, created_at, updated_at)
		VALUES ($1, $2, $3, 'ocr', 'pending', 0, $4, now(), now())
		ON CONFLICT (document_id, job_type) DO NOTHING
		RETURNING` + ocrJobColumns
	out, err := scanOCRJob(r.db.QueryRowContext(ctx, q, job.ID, job.ApplicationID, job.DocumentID, job.MaxRetries))
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	existing, err := r.FindByDocument(ctx, job.DocumentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Requeue only touches rows that are still failed.
func (r *OCRJobPostgres) Requeue(ctx context.Context, id string) (*model.DocumentProcessingJob, error) {
	q := `
		UPDATE document_processing_jobs
		SET status = 'pending', retry_count = retry_count + 1, last_retry_at = now(),
			error_message = NULL, started_at = NULL, completed_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'failed'
		RETURNING` + ocrJobColumns
	return scanOCRJob(r.db.QueryRowContext(ctx, q, id))
}

func (r *OCRJobPostgres) MarkStarted(ctx context.Context, id string) (*model.DocumentProcessingJob, error) {
	q := `
		UPDATE document_processing_jobs
		SET status = 'processing', started_at = COALESCE(started_at, now()), updated_at = now()
		WHERE id = $1
		RETURNING` + ocrJobColumns
	return scanOCRJob(r.db.QueryRowContext(ctx, q, id))
}

func (r *OCRJobPostgres) MarkCompleted(ctx context.Context, id string) (*model.DocumentProcessingJob, error) {
	q := `
		UPDATE document_processing_jobs
		SET status = 'completed', completed_at = now(), error_message = NULL, updated_at = now()
		WHERE id = $1
		RETURNING` + ocrJobColumns
	return scanOCRJob(r.db.QueryRowContext(ctx, q, id))
}

func (r *OCRJobPostgres) MarkFailed(ctx context.Context, id string, message string) (*model.DocumentProcessingJob, error) {
	q := `
		UPDATE document_processing_jobs
		SET status = 'failed', error_message = $2, updated_at = now()
		WHERE id = $1
		RETURNING` + ocrJobColumns
	return scanOCRJob(r.db.QueryRowContext(ctx, q, id, message))
}
