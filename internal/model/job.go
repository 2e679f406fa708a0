package model

import "time"

// JobStatus is shared by OCR, banking-analysis and credit-summary jobs.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobTypeOCR is the job_type stored on document_processing_jobs rows.
const JobTypeOCR = "ocr"

// DocumentProcessingJob is an OCR job, unique per (document, job type).
type DocumentProcessingJob struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	DocumentID    string     `json:"document_id"`
	JobType       string     `json:"job_type"`
	Status        JobStatus  `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastRetryAt   *time.Time `json:"last_retry_at,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CanRetry reports whether a failed job may be flipped back to pending at
// now, given the minimum window since the previous retry.
func (j *DocumentProcessingJob) CanRetry(now time.Time, window time.Duration) bool {
	if j.Status != JobFailed || j.RetryCount >= j.MaxRetries {
		return false
	}
	if j.LastRetryAt == nil {
		return true
	}
	return now.Sub(*j.LastRetryAt) >= window
}

// BankingAnalysisJob is the single bank-statement analysis job of an application.
type BankingAnalysisJob struct {
	ID                      string     `json:"id"`
	ApplicationID           string     `json:"application_id"`
	Status                  JobStatus  `json:"status"`
	StatementMonthsDetected *int       `json:"statement_months_detected,omitempty"`
	ErrorMessage            *string    `json:"error_message,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	StartedAt               *time.Time `json:"started_at,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// PendingJobCounts are the pending OCR and banking jobs of one application.
type PendingJobCounts struct {
	OCR     int
	Banking int
}
