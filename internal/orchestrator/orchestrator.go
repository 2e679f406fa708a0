// Package orchestrator creates and transitions OCR and banking-analysis jobs
// and hands every change to the stage engine within the same transaction.
package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"loanops/internal/apperror"
	"loanops/internal/breaker"
	"loanops/internal/metrics"
	"loanops/internal/model"
	"loanops/internal/repository"
)

const (
	kindOCR     = "ocr"
	kindBanking = "banking"
)

// StageAdvancer recomputes an application's stage inside an open transaction.
type StageAdvancer interface {
	AdvanceInTx(ctx context.Context, s repository.Store, applicationID string) (model.ProcessingStage, error)
}

// Config holds the job policies.
type Config struct {
	OCRRetryWindow   time.Duration
	OCRMaxRetries    int
	BankingBatchSize int
}

// UploadOutcome reports what an upload produced. Both jobs are nil when the
// upload did not create or touch a job, e.g. a bank statement below the batch
// size.
type UploadOutcome struct {
	OCRJob     *model.DocumentProcessingJob `json:"ocr_job,omitempty"`
	BankingJob *model.BankingAnalysisJob    `json:"banking_job,omitempty"`
	Stage      model.ProcessingStage        `json:"processing_stage"`
}

// OCRResult is returned by the OCR job transitions. Stage is empty when the
// transition does not advance the application.
type OCRResult struct {
	Job   *model.DocumentProcessingJob `json:"job"`
	Stage model.ProcessingStage        `json:"processing_stage,omitempty"`
}

// BankingResult is returned by the banking job transitions.
type BankingResult struct {
	Job   *model.BankingAnalysisJob `json:"job"`
	Stage model.ProcessingStage     `json:"processing_stage,omitempty"`
}

// Orchestrator is the job orchestrator. It owns the breaker registry for the
// job-creation paths.
type Orchestrator struct {
	tx       repository.TxRunner
	stages   StageAdvancer
	breakers *breaker.Registry
	cfg      Config
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides time.Now for retry-window checks.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides the job ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

func New(
	tx repository.TxRunner,
	stages StageAdvancer,
	breakers *breaker.Registry,
	cfg Config,
	m *metrics.Metrics,
	log *zap.Logger,
	opts ...Option,
) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BankingBatchSize <= 0 {
		cfg.BankingBatchSize = 6
	}
	o := &Orchestrator{
		tx:       tx,
		stages:   stages,
		breakers: breakers,
		cfg:      cfg,
		metrics:  m,
		log:      log,
		now:      time.Now,
		newID:    newJobID,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// guarded runs fn in a transaction behind the named breaker. Only a commit
// counts as a success. Errors carrying an application error code roll back
// without touching the database's health record, so they are neutral;
// anything else counts as a failure.
func (o *Orchestrator) guarded(ctx context.Context, name string, fn func(repository.Store) error) error {
	b := o.breakers.Get(name)
	if !b.CanRequest() {
		o.metrics.BreakerRejected(name)
		o.log.Warn("job creation rejected by open circuit", zap.String("breaker", name))
		return apperror.CircuitOpen(name)
	}

	err := o.tx.InTx(ctx, fn)
	switch {
	case err == nil:
		b.RecordSuccess()
	case apperror.CodeOf(err) != "":
		b.Release()
	default:
		b.RecordFailure()
	}
	return err
}

// lockDocument locks the document row and checks it belongs to applicationID.
func lockDocument(ctx context.Context, s repository.Store, applicationID, documentID string) (*model.Document, error) {
	doc, err := s.Documents().LockForUpdate(ctx, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("document %s not found", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock document: %w", err)
	}
	if doc.ApplicationID != applicationID {
		return nil, apperror.DocumentMismatch(documentID, applicationID)
	}
	return doc, nil
}
