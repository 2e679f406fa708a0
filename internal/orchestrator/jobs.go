package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"loanops/internal/apperror"
	"loanops/internal/model"
	"loanops/internal/repository"
)

func (o *Orchestrator) lockOCRJob(ctx context.Context, s repository.Store, documentID string) (*model.DocumentProcessingJob, error) {
	job, err := s.OCRJobs().LockByDocument(ctx, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("ocr job for document %s not found", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock ocr job: %w", err)
	}
	return job, nil
}

func (o *Orchestrator) lockBankingJob(ctx context.Context, s repository.Store, applicationID string) (*model.BankingAnalysisJob, error) {
	job, err := s.BankingJobs().LockByApplication(ctx, applicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("banking analysis job for application %s not found", applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock banking job: %w", err)
	}
	return job, nil
}

// MarkOCRStarted moves the document's OCR job from pending to processing.
func (o *Orchestrator) MarkOCRStarted(ctx context.Context, documentID string) (*OCRResult, error) {
	var res OCRResult
	err := o.tx.InTx(ctx, func(s repository.Store) error {
		job, err := o.lockOCRJob(ctx, s, documentID)
		if err != nil {
			return err
		}
		switch job.Status {
		case model.JobProcessing:
			res.Job = job
			return nil
		case model.JobPending:
		default:
			return apperror.InvalidState("ocr job %s is %s", job.ID, job.Status)
		}
		res.Job, err = s.OCRJobs().MarkStarted(ctx, job.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkOCRCompleted completes the document's OCR job, stamps the application's
// OCR completion time unless already set and advances the stage.
func (o *Orchestrator) MarkOCRCompleted(ctx context.Context, documentID string) (*OCRResult, error) {
	var res OCRResult
	err := o.tx.InTx(ctx, func(s repository.Store) error {
		job, err := o.lockOCRJob(ctx, s, documentID)
		if err != nil {
			return err
		}
		if job.Status != model.JobCompleted {
			if job, err = s.OCRJobs().MarkCompleted(ctx, job.ID); err != nil {
				return fmt.Errorf("complete ocr job: %w", err)
			}
		}
		res.Job = job

		if err := s.Applications().StampOCRCompleted(ctx, job.ApplicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("application %s not found", job.ApplicationID)
			}
			return fmt.Errorf("stamp ocr completion: %w", err)
		}
		res.Stage, err = o.stages.AdvanceInTx(ctx, s, job.ApplicationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.metrics.JobResult(kindOCR, model.JobCompleted)
	o.log.Info("ocr job completed",
		zap.String("application_id", res.Job.ApplicationID),
		zap.String("document_id", documentID),
		zap.String("processing_stage", string(res.Stage)),
	)
	return &res, nil
}

// MarkOCRFailed records the failure. The stage is left alone: the application
// stays stalled until a retry succeeds.
func (o *Orchestrator) MarkOCRFailed(ctx context.Context, documentID, message string) (*OCRResult, error) {
	var res OCRResult
	err := o.tx.InTx(ctx, func(s repository.Store) error {
		job, err := o.lockOCRJob(ctx, s, documentID)
		if err != nil {
			return err
		}
		if job.Status == model.JobCompleted {
			return apperror.InvalidState("ocr job %s is already completed", job.ID)
		}
		res.Job, err = s.OCRJobs().MarkFailed(ctx, job.ID, message)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.metrics.JobResult(kindOCR, model.JobFailed)
	o.log.Warn("ocr job failed",
		zap.String("application_id", res.Job.ApplicationID),
		zap.String("document_id", documentID),
		zap.Int("retry_count", res.Job.RetryCount),
		zap.Int("max_retries", res.Job.MaxRetries),
		zap.String("error", message),
	)
	return &res, nil
}

// MarkBankingStarted moves the application's banking job from pending to processing.
func (o *Orchestrator) MarkBankingStarted(ctx context.Context, applicationID string) (*BankingResult, error) {
	var res BankingResult
	err := o.tx.InTx(ctx, func(s repository.Store) error {
		job, err := o.lockBankingJob(ctx, s, applicationID)
		if err != nil {
			return err
		}
		switch job.Status {
		case model.JobProcessing:
			res.Job = job
			return nil
		case model.JobPending:
		default:
			return apperror.InvalidState("banking analysis job %s is %s", job.ID, job.Status)
		}
		res.Job, err = s.BankingJobs().MarkStarted(ctx, job.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkBankingCompleted completes the banking job, stamps the application's
// banking completion time unless already set and advances the stage.
// statementMonths may be nil.
func (o *Orchestrator) MarkBankingCompleted(ctx context.Context, applicationID string, statementMonths *int) (*BankingResult, error) {
	var res BankingResult
	err := o.tx.InTx(ctx, func(s repository.Store) error {
		job, err := o.lockBankingJob(ctx, s, applicationID)
		if err != nil {
			return err
		}
		if job, err = s.BankingJobs().MarkCompleted(ctx, job.ID, statementMonths); err != nil {
			return fmt.Errorf("complete banking job: %w", err)
		}
		res.Job = job

		if err := s.Applications().StampBankingCompleted(ctx, applicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("application %s not found", applicationID)
			}
			return fmt.Errorf("stamp banking completion: %w", err)
		}
		res.Stage, err = o.stages.AdvanceInTx(ctx, s, applicationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.metrics.JobResult(kindBanking, model.JobCompleted)
	o.log.Info("banking analysis job completed",
		zap.String("application_id", applicationID),
		zap.String("processing_stage", string(res.Stage)),
	)
	return &res, nil
}

// MarkBankingFailed records the failure without advancing the stage.
func (o *Orchestrator) MarkBankingFailed(ctx context.Context, applicationID, message string) (*BankingResult, error) {
	var res BankingResult
	err := o.tx.InTx(ctx, func(s repository.Store) error {
		job, err := o.lockBankingJob(ctx, s, applicationID)
		if err != nil {
			return err
		}
		if job.Status == model.JobCompleted {
			return apperror.InvalidState("banking analysis job %s is already completed", job.ID)
		}
		res.Job, err = s.BankingJobs().MarkFailed(ctx, job.ID, message)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.metrics.JobResult(kindBanking, model.JobFailed)
	o.log.Warn("banking analysis job failed",
		zap.String("application_id", applicationID),
		zap.String("error", message),
	)
	return &res, nil
}

// MarkCreditSummaryCompleted stamps the credit summary completion time
// unless already set and advances the stage.
func (o *Orchestrator) MarkCreditSummaryCompleted(ctx context.Context, applicationID string) (model.ProcessingStage, error) {
	var stage model.ProcessingStage
	err := o.tx.InTx(ctx, func(s repository.Store) error {
		if err := s.Applications().StampCreditSummaryCompleted(ctx, applicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("application %s not found", applicationID)
			}
			return fmt.Errorf("stamp credit summary completion: %w", err)
		}
		var err error
		stage, err = o.stages.AdvanceInTx(ctx, s, applicationID)
		return err
	})
	if err != nil {
		return "", err
	}

	o.metrics.JobResult("credit_summary", model.JobCompleted)
	o.log.Info("credit summary completed",
		zap.String("application_id", applicationID),
		zap.String("processing_stage", string(stage)),
	)
	return stage, nil
}
