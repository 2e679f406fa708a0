package postgres

import (
	"context"

	"github.com/google/uuid"

	"loanops/internal/repository"
)

// CreditSummaryJobPostgres creates rows in credit_summary_jobs for the
// external credit-summary worker.
type CreditSummaryJobPostgres struct {
	db repository.DBTX
}

func NewCreditSummaryJobPostgres(db repository.DBTX) *CreditSummaryJobPostgres {
	return &CreditSummaryJobPostgres{db: db}
}

var _ repository.CreditSummaryJobRepository = (*CreditSummaryJobPostgres)(nil)

func (r *CreditSummaryJobPostgres) Ensure(ctx context.Context, applicationID string) (bool, error) {
	const q = `
		INSERT INTO credit_summary_jobs (id, application_id, status, created_at, updated_at)
		VALUES ($1, $2, 'pending', now(), now())
		ON CONFLICT (application_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, q, uuid.NewString(), applicationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
