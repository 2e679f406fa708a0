package postgres

import (
	"context"
	"database/sql"

	"loanops/internal/repository"
)

// execOne runs a single-row statement and reports sql.ErrNoRows when no row matched.
func execOne(ctx context.Context, db repository.DBTX, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
