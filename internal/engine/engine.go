// Package engine computes and persists the processing stage of an
// application. Every computation runs with the application row locked, so
// concurrent triggers for one application are applied one at a time.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"loanops/internal/apperror"
	"loanops/internal/category"
	"loanops/internal/metrics"
	"loanops/internal/model"
	"loanops/internal/repository"
	"loanops/internal/requirements"
)

const tracerName = "loanops/internal/engine"

// Engine is the processing stage engine.
type Engine struct {
	tx       repository.TxRunner
	resolver requirements.Resolver
	metrics  *metrics.Metrics
	log      *zap.Logger
	tracer   trace.Tracer
}

// New builds an Engine. m and log may be nil.
func New(tx repository.TxRunner, resolver requirements.Resolver, m *metrics.Metrics, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{tx: tx, resolver: resolver, metrics: m, log: log, tracer: otel.Tracer(tracerName)}
}

// Advance recomputes the stage of the application in its own transaction.
func (e *Engine) Advance(ctx context.Context, applicationID string) (model.ProcessingStage, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Advance",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("application.id", applicationID)),
	)
	defer span.End()

	var stage model.ProcessingStage
	err := e.tx.InTx(ctx, func(s repository.Store) error {
		var err error
		stage, err = e.AdvanceInTx(ctx, s, applicationID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("application.stage", string(stage)))
	return stage, nil
}

// AdvanceInTx recomputes the stage inside the caller's transaction. It locks
// the application row, derives the conditions, settles the stage machine
// and writes the stage back when it changed. Reaching
// credit_summary_processing ensures a credit-summary job exists.
func (e *Engine) AdvanceInTx(ctx context.Context, s repository.Store, applicationID string) (model.ProcessingStage, error) {
	app, err := s.Applications().LockForUpdate(ctx, applicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NotFound("application %s not found", applicationID)
	}
	if err != nil {
		return "", fmt.Errorf("lock application: %w", err)
	}

	current := app.ProcessingStage.Normalize()
	cond, err := e.conditions(ctx, s, app, current)
	if err != nil {
		return "", err
	}

	next := Settle(current, cond)
	if next != app.ProcessingStage {
		if err := s.Applications().UpdateStage(ctx, app.ID, next); err != nil {
			return "", fmt.Errorf("update stage: %w", err)
		}
		if next != current {
			appID := app.ID
			s.AfterCommit(func() {
				e.metrics.StageTransition(current, next)
				e.log.Info("processing stage changed",
					zap.String("application_id", appID),
					zap.String("from", string(current)),
					zap.String("to", string(next)),
				)
			})
		}
	}

	if next == model.StageCreditSummaryProcessing {
		created, err := s.CreditSummaryJobs().Ensure(ctx, app.ID)
		if err != nil {
			return "", fmt.Errorf("ensure credit summary job: %w", err)
		}
		if created {
			appID := app.ID
			s.AfterCommit(func() {
				e.log.Info("credit summary job created", zap.String("application_id", appID))
			})
		}
	}
	return next, nil
}

// conditions derives the transition inputs. Completion flags combine the
// stamped timestamps with what the current stage already implies. Documents
// are only evaluated once OCR and banking are both complete, since no rule
// reads them before that.
func (e *Engine) conditions(ctx context.Context, s repository.Store, app *model.Application, stage model.ProcessingStage) (Conditions, error) {
	flags := stage.Flags()

	pending, err := s.Applications().CountPendingJobs(ctx, app.ID)
	if err != nil {
		return Conditions{}, fmt.Errorf("count pending jobs: %w", err)
	}

	cond := Conditions{
		OCRJobPending:          pending.OCR > 0,
		BankingJobPending:      pending.Banking > 0,
		OCRCompleted:           app.OCRCompletedAt != nil || flags.OCRCompleted,
		BankingCompleted:       app.BankingCompletedAt != nil || flags.BankingCompleted,
		CreditSummaryCompleted: app.CreditSummaryCompletedAt != nil || flags.CreditSummaryCompleted,
	}
	if !cond.CanEvaluateDocuments() {
		return cond, nil
	}

	cond.AllAccepted, cond.AnyRejected, err = e.documentState(ctx, s, app)
	if err != nil {
		return Conditions{}, err
	}
	return cond, nil
}

// documentState compares the resolved required categories with the tracked
// statuses. A required category without a tracked entry is not accepted.
func (e *Engine) documentState(ctx context.Context, s repository.Store, app *model.Application) (allAccepted, anyRejected bool, err error) {
	reqs, err := e.resolver.Resolve(ctx, requirements.QueryFor(app))
	if err != nil {
		return false, false, err
	}
	tracked, err := s.RequiredDocuments().List(ctx, app.ID)
	if err != nil {
		return false, false, fmt.Errorf("list required documents: %w", err)
	}

	status := TrackedStatus(tracked)
	allAccepted = true
	for _, r := range reqs {
		if !r.Required {
			continue
		}
		st, ok := status[r.Category]
		if !ok || st != model.DocumentAccepted {
			allAccepted = false
		}
		if st == model.DocumentRejected {
			anyRejected = true
		}
	}
	return allAccepted, anyRejected, nil
}

// TrackedStatus indexes tracker entries by canonical category. When legacy
// rows collapse onto the same category the most recently updated one wins.
func TrackedStatus(entries []model.RequiredDocument) map[string]model.DocumentStatus {
	out := make(map[string]model.DocumentStatus, len(entries))
	latest := make(map[string]model.RequiredDocument, len(entries))
	for _, d := range entries {
		key := category.Key(d.Category)
		if prev, ok := latest[key]; ok && prev.UpdatedAt.After(d.UpdatedAt) {
			continue
		}
		latest[key] = d
		out[key] = d.Status
	}
	return out
}
