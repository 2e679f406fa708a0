// Package repository defines data access for the processing core. Methods
// return sql.ErrNoRows (possibly wrapped) when a row is missing; mapping to
// application errors happens in the callers.
package repository

import (
	"context"
	"database/sql"

	"loanops/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ApplicationRepository reads and writes the processing columns of applications.
type ApplicationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Application, error)
	// LockForUpdate reads the application with SELECT ... FOR UPDATE.
	LockForUpdate(ctx context.Context, id string) (*model.Application, error)
	UpdateStage(ctx context.Context, id string, stage model.ProcessingStage) error
	// Stamp* set the completion timestamp to now() unless it is already set.
	StampOCRCompleted(ctx context.Context, id string) error
	StampBankingCompleted(ctx context.Context, id string) error
	StampCreditSummaryCompleted(ctx context.Context, id string) error
	CountPendingJobs(ctx context.Context, id string) (model.PendingJobCounts, error)
}

// DocumentRepository persists uploaded document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)
	FindByID(ctx context.Context, id string) (*model.Document, error)
	LockForUpdate(ctx context.Context, id string) (*model.Document, error)
	ListByApplication(ctx context.Context, applicationID string) ([]model.Document, error)
	// CountByTypes counts the application's documents whose type is one of
	// types, and how many of those are in uploaded status.
	CountByTypes(ctx context.Context, applicationID string, types []string) (total, uploaded int, err error)
	UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, reason *string) (*model.Document, error)
	Delete(ctx context.Context, id string) error
}

// OCRJobRepository persists document_processing_jobs rows of type ocr.
type OCRJobRepository interface {
	FindByDocument(ctx context.Context, documentID string) (*model.DocumentProcessingJob, error)
	LockByDocument(ctx context.Context, documentID string) (*model.DocumentProcessingJob, error)
	// Create inserts a pending job. If a row for the document already exists
	// it is returned with created=false.
	Create(ctx context.Context, job *model.DocumentProcessingJob) (out *model.DocumentProcessingJob, created bool, err error)
	// Requeue flips a failed job back to pending and counts the retry.
	Requeue(ctx context.Context, id string) (*model.DocumentProcessingJob, error)
	MarkStarted(ctx context.Context, id string) (*model.DocumentProcessingJob, error)
	MarkCompleted(ctx context.Context, id string) (*model.DocumentProcessingJob, error)
	MarkFailed(ctx context.Context, id string, message string) (*model.DocumentProcessingJob, error)
}

// BankingJobRepository persists banking_analysis_jobs rows, one per application.
type BankingJobRepository interface {
	FindByApplication(ctx context.Context, applicationID string) (*model.BankingAnalysisJob, error)
	LockByApplication(ctx context.Context, applicationID string) (*model.BankingAnalysisJob, error)
	// Create inserts a pending job unless one exists, in which case the
	// existing row is returned with created=false.
	Create(ctx context.Context, job *model.BankingAnalysisJob) (out *model.BankingAnalysisJob, created bool, err error)
	MarkStarted(ctx context.Context, id string) (*model.BankingAnalysisJob, error)
	MarkCompleted(ctx context.Context, id string, statementMonths *int) (*model.BankingAnalysisJob, error)
	MarkFailed(ctx context.Context, id string, message string) (*model.BankingAnalysisJob, error)
}

// RequiredDocumentRepository is the document requirement tracker. It stores
// whatever status it is given; transition rules live in the stage engine.
type RequiredDocumentRepository interface {
	Upsert(ctx context.Context, applicationID, category string, isRequired bool, status model.DocumentStatus) (*model.RequiredDocument, error)
	List(ctx context.Context, applicationID string) ([]model.RequiredDocument, error)
}

// CreditSummaryJobRepository creates credit-summary jobs.
type CreditSummaryJobRepository interface {
	// Ensure creates a pending job for the application unless one exists.
	Ensure(ctx context.Context, applicationID string) (created bool, err error)
}

// LenderProductRepository reads lender product configuration.
type LenderProductRepository interface {
	FindProduct(ctx context.Context, id string) (*model.LenderProduct, error)
	// ListActive returns active products of active lenders in the category
	// whose country is the given one or BOTH. An empty country matches all.
	ListActive(ctx context.Context, category, country string) ([]model.LenderProduct, error)
}

// Store groups repositories bound to the same connection or transaction.
type Store interface {
	Applications() ApplicationRepository
	Documents() DocumentRepository
	OCRJobs() OCRJobRepository
	BankingJobs() BankingJobRepository
	RequiredDocuments() RequiredDocumentRepository
	CreditSummaryJobs() CreditSummaryJobRepository
	// AfterCommit queues fn until the enclosing transaction commits; a
	// rollback drops it. Outside a transaction fn runs at once.
	AfterCommit(fn func())
}

// TxRunner runs fn inside one database transaction. fn's error, or a panic,
// rolls the transaction back; otherwise it is committed.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
