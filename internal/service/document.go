// Package service implements the document workflow used by staff and
// applicants: upload, review and requirement status. Every change to a
// document is reflected in the requirement tracker and the processing stage.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loanops/internal/apperror"
	"loanops/internal/category"
	"loanops/internal/engine"
	"loanops/internal/model"
	"loanops/internal/orchestrator"
	"loanops/internal/repository"
	"loanops/internal/requirements"
	"loanops/internal/storage"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrReaderNil        = errors.New("reader is nil")
	ErrCategoryRequired = errors.New("document category is required")
	ErrReasonRequired   = errors.New("rejection reason is required")
)

// JobTrigger starts processing for a stored upload.
type JobTrigger interface {
	OnDocumentUploaded(ctx context.Context, applicationID, documentID, category string) (*orchestrator.UploadOutcome, error)
}

// UploadInput describes one document upload.
type UploadInput struct {
	ApplicationID string
	Category      string
	Filename      string
	ContentType   string
	Size          int64
	Body          io.Reader
}

// UploadResult is the stored document plus what processing it triggered.
// ProcessingError is set when the document was stored but job creation
// failed; the caller can retry through Reprocess.
type UploadResult struct {
	Document        *model.Document            `json:"document"`
	Processing      *orchestrator.UploadOutcome `json:"processing,omitempty"`
	ProcessingError string                     `json:"processing_error,omitempty"`
}

// ReviewResult is returned by Accept, Reject and Delete.
type ReviewResult struct {
	Document *model.Document       `json:"document"`
	Stage    model.ProcessingStage `json:"processing_stage"`
}

// RequirementStatus is a resolved requirement with its tracked status.
type RequirementStatus struct {
	requirements.Requirement
	Status model.DocumentStatus `json:"status"`
}

// DocumentService defines the document workflow use cases.
type DocumentService interface {
	// Upload stores the blob, records the document and its tracker entry, then
	// triggers job creation. A failed database write removes the blob again.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	// Reprocess re-runs job creation for a stored document.
	Reprocess(ctx context.Context, documentID string) (*orchestrator.UploadOutcome, error)
	Get(ctx context.Context, id string) (*model.Document, error)
	// Open streams the document content. The caller closes the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)
	DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error)
	ListByApplication(ctx context.Context, applicationID string) ([]model.Document, error)
	Accept(ctx context.Context, id string) (*ReviewResult, error)
	Reject(ctx context.Context, id, reason string) (*ReviewResult, error)
	// Delete removes a document that has not been accepted.
	Delete(ctx context.Context, id string) (*ReviewResult, error)
	// Requirements lists the application's resolved requirements with the
	// tracked status of each category.
	Requirements(ctx context.Context, applicationID string) ([]RequirementStatus, error)
}

type documentService struct {
	blobs    storage.Storage
	store    repository.Store
	tx       repository.TxRunner
	resolver requirements.Resolver
	stages   orchestrator.StageAdvancer
	jobs     JobTrigger
	log      *zap.Logger
}

// NewDocumentService wires the workflow. store is used for reads outside a
// transaction.
func NewDocumentService(
	blobs storage.Storage,
	store repository.Store,
	tx repository.TxRunner,
	resolver requirements.Resolver,
	stages orchestrator.StageAdvancer,
	jobs JobTrigger,
	log *zap.Logger,
) DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &documentService{
		blobs:    blobs,
		store:    store,
		tx:       tx,
		resolver: resolver,
		stages:   stages,
		jobs:     jobs,
		log:      log,
	}
}

func invalid(err error) error {
	return apperror.Wrap(apperror.CodeInvalidInput, err, err.Error())
}

// normalizeCategory resolves raw to a tracker key. Unrecognized categories
// are kept under their cleaned name, since lender configuration may use
// categories outside the alias table.
func (s *documentService) normalizeCategory(raw string) (string, error) {
	c, err := category.Normalize(raw)
	if err == nil {
		return string(c), nil
	}
	var u *category.Unrecognized
	if errors.As(err, &u) && u.Key() != "" {
		s.log.Debug("unrecognized document category", zap.String("raw", raw), zap.String("key", u.Key()))
		return u.Key(), nil
	}
	return "", invalid(ErrCategoryRequired)
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Body == nil {
		return nil, invalid(ErrReaderNil)
	}
	if in.ApplicationID == "" {
		return nil, invalid(ErrIDRequired)
	}
	cat, err := s.normalizeCategory(in.Category)
	if err != nil {
		return nil, err
	}

	app, err := s.store.Applications().FindByID(ctx, in.ApplicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("application %s not found", in.ApplicationID)
	}
	if err != nil {
		return nil, err
	}
	isRequired, err := s.isRequired(ctx, app, cat)
	if err != nil {
		return nil, err
	}

	docID := uuid.NewString()
	key := storage.DocumentKey(app.ID, cat, docID, in.Filename)
	objInfo, err := s.blobs.Put(ctx, key, in.Body, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
			"application-id":    app.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	var stored *model.Document
	err = s.tx.InTx(ctx, func(st repository.Store) error {
		var err error
		stored, err = st.Documents().Create(ctx, &model.Document{
			ID:            docID,
			ApplicationID: app.ID,
			DocumentType:  cat,
			Status:        model.DocumentUploaded,
			Filename:      in.Filename,
			StoragePath:   objInfo.Key,
			Size:          objInfo.Size,
			ContentType:   objInfo.ContentType,
		})
		if err != nil {
			return err
		}
		return s.syncTracker(ctx, st, app.ID, cat, isRequired)
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	res := &UploadResult{Document: stored}
	res.Processing, err = s.jobs.OnDocumentUploaded(ctx, app.ID, stored.ID, cat)
	if err != nil {
		s.log.Warn("document stored but processing not started",
			zap.String("application_id", app.ID),
			zap.String("document_id", stored.ID),
			zap.Error(err),
		)
		res.ProcessingError = err.Error()
	}
	return res, nil
}

func (s *documentService) Reprocess(ctx context.Context, documentID string) (*orchestrator.UploadOutcome, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.jobs.OnDocumentUploaded(ctx, doc.ApplicationID, doc.ID, doc.DocumentType)
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, invalid(ErrIDRequired)
	}
	doc, err := s.store.Documents().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("document %s not found", id)
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read storage: %w", err)
	}
	return rc, doc, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, doc.StoragePath, expiry)
}

func (s *documentService) ListByApplication(ctx context.Context, applicationID string) ([]model.Document, error) {
	if applicationID == "" {
		return nil, invalid(ErrIDRequired)
	}
	return s.store.Documents().ListByApplication(ctx, applicationID)
}

func (s *documentService) Accept(ctx context.Context, id string) (*ReviewResult, error) {
	return s.review(ctx, id, model.DocumentAccepted, nil)
}

func (s *documentService) Reject(ctx context.Context, id, reason string) (*ReviewResult, error) {
	if reason == "" {
		return nil, invalid(ErrReasonRequired)
	}
	return s.review(ctx, id, model.DocumentRejected, &reason)
}

// review sets the document status, refreshes the category's tracker entry
// and advances the stage, all in one transaction.
func (s *documentService) review(ctx context.Context, id string, status model.DocumentStatus, reason *string) (*ReviewResult, error) {
	if id == "" {
		return nil, invalid(ErrIDRequired)
	}

	var res ReviewResult
	err := s.tx.InTx(ctx, func(st repository.Store) error {
		doc, app, err := s.lockDocument(ctx, st, id)
		if err != nil {
			return err
		}
		cat := category.Key(doc.DocumentType)
		isRequired, err := s.isRequired(ctx, app, cat)
		if err != nil {
			return err
		}

		if res.Document, err = st.Documents().UpdateStatus(ctx, doc.ID, status, reason); err != nil {
			return fmt.Errorf("update document status: %w", err)
		}
		if err := s.syncTracker(ctx, st, app.ID, cat, isRequired); err != nil {
			return err
		}
		res.Stage, err = s.stages.AdvanceInTx(ctx, st, app.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("document reviewed",
		zap.String("application_id", res.Document.ApplicationID),
		zap.String("document_id", id),
		zap.String("status", string(status)),
		zap.String("processing_stage", string(res.Stage)),
	)
	return &res, nil
}

func (s *documentService) Delete(ctx context.Context, id string) (*ReviewResult, error) {
	if id == "" {
		return nil, invalid(ErrIDRequired)
	}

	var res ReviewResult
	err := s.tx.InTx(ctx, func(st repository.Store) error {
		doc, app, err := s.lockDocument(ctx, st, id)
		if err != nil {
			return err
		}
		if doc.Status == model.DocumentAccepted {
			return apperror.InvalidState("document %s is accepted and cannot be deleted", id)
		}
		cat := category.Key(doc.DocumentType)
		isRequired, err := s.isRequired(ctx, app, cat)
		if err != nil {
			return err
		}

		if err := st.Documents().Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		if err := s.syncTracker(ctx, st, app.ID, cat, isRequired); err != nil {
			return err
		}
		res.Document = doc
		res.Stage, err = s.stages.AdvanceInTx(ctx, st, app.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The row is gone; a leftover blob is only logged.
	if err := s.blobs.Delete(ctx, res.Document.StoragePath); err != nil {
		s.log.Warn("delete document blob failed",
			zap.String("document_id", id),
			zap.String("key", res.Document.StoragePath),
			zap.Error(err),
		)
	}
	return &res, nil
}

func (s *documentService) Requirements(ctx context.Context, applicationID string) ([]RequirementStatus, error) {
	app, err := s.store.Applications().FindByID(ctx, applicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("application %s not found", applicationID)
	}
	if err != nil {
		return nil, err
	}
	reqs, err := s.resolver.Resolve(ctx, requirements.QueryFor(app))
	if err != nil {
		return nil, err
	}
	tracked, err := s.store.RequiredDocuments().List(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	status := engine.TrackedStatus(tracked)
	out := make([]RequirementStatus, 0, len(reqs))
	for _, r := range reqs {
		st, ok := status[r.Category]
		if !ok {
			st = model.DocumentMissing
		}
		out = append(out, RequirementStatus{Requirement: r, Status: st})
	}
	return out, nil
}

// lockDocument locks the document row and loads its application. The
// document is locked first, matching the job orchestrator's order.
func (s *documentService) lockDocument(ctx context.Context, st repository.Store, id string) (*model.Document, *model.Application, error) {
	doc, err := st.Documents().LockForUpdate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperror.NotFound("document %s not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lock document: %w", err)
	}
	app, err := st.Applications().FindByID(ctx, doc.ApplicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperror.NotFound("application %s not found", doc.ApplicationID)
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, app, nil
}

// isRequired reports whether cat is a required category for the
// application. An application without an eligible lender product has no
// requirements beyond what later resolution decides, so it yields false.
func (s *documentService) isRequired(ctx context.Context, app *model.Application, cat string) (bool, error) {
	reqs, err := s.resolver.Resolve(ctx, requirements.QueryFor(app))
	if errors.Is(err, apperror.ErrInvalidProduct) {
		return cat == string(category.BankStatements), nil
	}
	if err != nil {
		return false, err
	}
	for _, r := range reqs {
		if r.Category == cat {
			return r.Required, nil
		}
	}
	return false, nil
}

// syncTracker recomputes the category's status from its documents and
// upserts the tracker entry.
func (s *documentService) syncTracker(ctx context.Context, st repository.Store, applicationID, cat string, isRequired bool) error {
	docs, err := st.Documents().ListByApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	inCategory := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		if category.Key(d.DocumentType) == cat {
			inCategory = append(inCategory, d)
		}
	}
	if _, err := st.RequiredDocuments().Upsert(ctx, applicationID, cat, isRequired, CategoryStatus(inCategory)); err != nil {
		return fmt.Errorf("upsert required document: %w", err)
	}
	return nil
}

// CategoryStatus folds the documents of one category into a tracker status.
// A rejection stands until a document is uploaded after it; the category is
// accepted once every other document is accepted.
func CategoryStatus(docs []model.Document) model.DocumentStatus {
	if len(docs) == 0 {
		return model.DocumentMissing
	}

	active, accepted := 0, 0
	for _, d := range docs {
		if d.Status == model.DocumentRejected {
			if !supersededRejection(d, docs) {
				return model.DocumentRejected
			}
			continue
		}
		active++
		if d.Status == model.DocumentAccepted {
			accepted++
		}
	}
	if active > 0 && accepted == active {
		return model.DocumentAccepted
	}
	return model.DocumentUploaded
}

func supersededRejection(rejected model.Document, docs []model.Document) bool {
	for _, d := range docs {
		if d.ID != rejected.ID && d.CreatedAt.After(rejected.UpdatedAt) {
			return true
		}
	}
	return false
}
