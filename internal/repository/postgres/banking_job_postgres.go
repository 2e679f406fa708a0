package postgres

import (
	"context"
	"database/sql"
	"errors"

	"loanops/internal/model"
	"loanops/internal/repository"
)

// BankingJobPostgres stores banking_analysis_jobs, unique per application.
type BankingJobPostgres struct {
	db repository.DBTX
}

func NewBankingJobPostgres(db repository.DBTX) *BankingJobPostgres {
	return &BankingJobPostgres{db: db}
}

var _ repository.BankingJobRepository = (*BankingJobPostgres)(nil)

const bankingJobColumns = `
	id, application_id, status, statement_months_detected, error_message,
	created_at, started_at, completed_at, updated_at`

func scanBankingJob(row interface{ Scan(...any) error }) (*model.BankingAnalysisJob, error) {
	var (
		j      model.BankingAnalysisJob
		status string
	)
	if err := row.Scan(
		&j.ID,
		&j.ApplicationID,
		&status,
		&j.StatementMonthsDetected,
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

func (r *BankingJobPostgres) FindByApplication(ctx context.Context, applicationID string) (*model.BankingAnalysisJob, error) {
	q := `SELECT` + bankingJobColumns + ` FROM banking_analysis_jobs WHERE application_id = $1`
	return scanBankingJob(r.db.QueryRowContext(ctx, q, applicationID))
}

func (r *BankingJobPostgres) LockByApplication(ctx context.Context, applicationID string) (*model.BankingAnalysisJob, error) {
	q := `SELECT` + bankingJobColumns + ` FROM banking_analysis_jobs WHERE application_id = $1 FOR UPDATE`
	return scanBankingJob(r.db.QueryRowContext(ctx, q, applicationID))
}

// Create is first-wins: a second call for the same application returns the existing row.
func (r *BankingJobPostgres) Create(ctx context.Context, job *model.BankingAnalysisJob) (*model.BankingAnalysisJob, bool, error) {
	q := `
		INSERT INTO banking_analysis_jobs (id, application_id, status, created_at, updated_at)
		VALUES ($1, $2, 'pending', now(), now())
		ON CONFLICT (application_id) DO NOTHING
		RETURNING` + bankingJobColumns
	out, err := scanBankingJob(r.db.QueryRowContext(ctx, q, job.ID, job.ApplicationID))
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	existing, err := r.FindByApplication(ctx, job.ApplicationID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *BankingJobPostgres) MarkStarted(ctx context.Context, id string) (*model.BankingAnalysisJob, error) {
	q := `
		UPDATE banking_analysis_jobs
		SET status = 'processing', started_at = COALESCE(started_at, now()), updated_at = now()
		WHERE id = $1
		RETURNING` + bankingJobColumns
	return scanBankingJob(r.db.QueryRowContext(ctx, q, id))
}

func (r *BankingJobPostgres) MarkCompleted(ctx context.Context, id string, statementMonths *int) (*model.BankingAnalysisJob, error) {
	q := `
		UPDATE banking_analysis_jobs
		SET status = 'completed', completed_at = now(), error_message = NULL,
			statement_months_detected = COALESCE($2, statement_months_detected), updated_at = now()
		WHERE id = $1
		RETURNING` + bankingJobColumns
	return scanBankingJob(r.db.QueryRowContext(ctx, q, id, statementMonths))
}

func (r *BankingJobPostgres) MarkFailed(ctx context.Context, id string, message string) (*model.BankingAnalysisJob, error) {
	q := `
		UPDATE banking_analysis_jobs
		SET status = 'failed', error_message = $2, updated_at = now()
		WHERE id = $1
		RETURNING` + bankingJobColumns
	return scanBankingJob(r.db.QueryRowContext(ctx, q, id, message))
}
