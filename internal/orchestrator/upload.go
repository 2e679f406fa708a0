package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loanops/internal/apperror"
	"loanops/internal/breaker"
	"loanops/internal/category"
	"loanops/internal/metrics"
	"loanops/internal/model"
	"loanops/internal/repository"
)

func newJobID() string {
	return uuid.NewString()
}

// OnDocumentUploaded reacts to a stored upload. Bank statements feed the
// banking-analysis batch gate; every other category gets an OCR job.
func (o *Orchestrator) OnDocumentUploaded(ctx context.Context, applicationID, documentID, rawCategory string) (*UploadOutcome, error) {
	if applicationID == "" || documentID == "" {
		return nil, apperror.InvalidInput("application and document ids are required")
	}
	if category.IsBankStatement(rawCategory) {
		return o.onBankStatement(ctx, applicationID, documentID)
	}
	return o.onOCRDocument(ctx, applicationID, documentID)
}

func (o *Orchestrator) onOCRDocument(ctx context.Context, applicationID, documentID string) (*UploadOutcome, error) {
	var (
		out     UploadOutcome
		outcome string
	)
	err := o.guarded(ctx, breaker.OCRJobCreation, func(s repository.Store) error {
		if _, err := lockDocument(ctx, s, applicationID, documentID); err != nil {
			return err
		}

		job, err := s.OCRJobs().LockByDocument(ctx, documentID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			var created bool
			job, created, err = s.OCRJobs().Create(ctx, &model.DocumentProcessingJob{
				ID:            o.newID(),
				ApplicationID: applicationID,
				DocumentID:    documentID,
				JobType:       model.JobTypeOCR,
				Status:        model.JobPending,
				MaxRetries:    o.cfg.OCRMaxRetries,
			})
			if err != nil {
				return fmt.Errorf("create ocr job: %w", err)
			}
			outcome = metrics.OutcomeReused
			if created {
				outcome = metrics.OutcomeCreated
			}
		case err != nil:
			return fmt.Errorf("lock ocr job: %w", err)
		case job.CanRetry(o.now(), o.cfg.OCRRetryWindow):
			job, err = s.OCRJobs().Requeue(ctx, job.ID)
			if err != nil {
				return fmt.Errorf("requeue ocr job: %w", err)
			}
			outcome = metrics.OutcomeRetried
		case job.Status == model.JobFailed:
			outcome = metrics.OutcomeSkipped
		default:
			outcome = metrics.OutcomeReused
		}
		out.OCRJob = job

		stage, err := o.stages.AdvanceInTx(ctx, s, applicationID)
		if err != nil {
			return err
		}
		out.Stage = stage
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.metrics.JobCreation(kindOCR, outcome)
	o.log.Info("ocr job ensured",
		zap.String("application_id", applicationID),
		zap.String("document_id", documentID),
		zap.String("job_id", out.OCRJob.ID),
		zap.String("outcome", outcome),
		zap.Int("retry_count", out.OCRJob.RetryCount),
	)
	return &out, nil
}

func (o *Orchestrator) onBankStatement(ctx context.Context, applicationID, documentID string) (*UploadOutcome, error) {
	var (
		out     UploadOutcome
		outcome string
	)
	err := o.guarded(ctx, breaker.BankingJobCreation, func(s repository.Store) error {
		if _, err := lockDocument(ctx, s, applicationID, documentID); err != nil {
			return err
		}
		// Job before application, the same order MarkBanking* takes them.
		existing, err := s.BankingJobs().LockByApplication(ctx, applicationID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock banking job: %w", err)
		}
		if _, err := s.Applications().LockForUpdate(ctx, applicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("application %s not found", applicationID)
			}
			return fmt.Errorf("lock application: %w", err)
		}

		total, uploaded, err := s.Documents().CountByTypes(ctx, applicationID, category.Aliases(category.BankStatements))
		if err != nil {
			return fmt.Errorf("count bank statements: %w", err)
		}

		switch {
		case total < o.cfg.BankingBatchSize || uploaded != total:
			outcome = metrics.OutcomeSkipped
			o.log.Debug("bank statement batch not ready",
				zap.String("application_id", applicationID),
				zap.Int("total", total),
				zap.Int("uploaded", uploaded),
				zap.Int("batch_size", o.cfg.BankingBatchSize),
			)
		case existing != nil:
			outcome = metrics.OutcomeReused
			out.BankingJob = existing
		default:
			job, created, err := s.BankingJobs().Create(ctx, &model.BankingAnalysisJob{
				ID:            o.newID(),
				ApplicationID: applicationID,
				Status:        model.JobPending,
			})
			if err != nil {
				return fmt.Errorf("create banking job: %w", err)
			}
			outcome = metrics.OutcomeReused
			if created {
				outcome = metrics.OutcomeCreated
			}
			out.BankingJob = job
		}

		stage, err := o.stages.AdvanceInTx(ctx, s, applicationID)
		if err != nil {
			return err
		}
		out.Stage = stage
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.metrics.JobCreation(kindBanking, outcome)
	if out.BankingJob != nil {
		o.log.Info("banking analysis job ensured",
			zap.String("application_id", applicationID),
			zap.String("job_id", out.BankingJob.ID),
			zap.String("outcome", outcome),
		)
	}
	return &out, nil
}
