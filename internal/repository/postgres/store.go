package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"loanops/internal/repository"
)

// Store binds every postgres repository to one connection or transaction.
type Store struct {
	db    repository.DBTX
	hooks *[]func()
}

// NewStore returns a Store that runs statements directly on db.
func NewStore(db repository.DBTX) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Applications() repository.ApplicationRepository {
	return NewApplicationPostgres(s.db)
}

func (s *Store) Documents() repository.DocumentRepository {
	return NewDocumentPostgres(s.db)
}

func (s *Store) OCRJobs() repository.OCRJobRepository {
	return NewOCRJobPostgres(s.db)
}

func (s *Store) BankingJobs() repository.BankingJobRepository {
	return NewBankingJobPostgres(s.db)
}

func (s *Store) RequiredDocuments() repository.RequiredDocumentRepository {
	return NewRequiredDocumentPostgres(s.db)
}

func (s *Store) CreditSummaryJobs() repository.CreditSummaryJobRepository {
	return NewCreditSummaryJobPostgres(s.db)
}

func (s *Store) AfterCommit(fn func()) {
	if s.hooks == nil {
		fn()
		return
	}
	*s.hooks = append(*s.hooks, fn)
}

// TxManager opens read-committed transactions on a *sql.DB.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

var _ repository.TxRunner = (*TxManager)(nil)

// InTx begins a transaction, hands fn a Store bound to it and commits when fn
// returns nil. Any error or panic rolls everything back.
func (m *TxManager) InTx(ctx context.Context, fn func(repository.Store) error) (err error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var hooks []func()
	if err := fn(&Store{db: tx, hooks: &hooks}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	for _, h := range hooks {
		h()
	}
	return nil
}
