package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"loanops/internal/apperror"
	"loanops/internal/breaker"
	"loanops/internal/model"
	"loanops/internal/orchestrator"
	"loanops/internal/service"
	serviceMocks "loanops/internal/service/mocks"
	storeMocks "loanops/internal/storage/mocks"
)

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) MarkOCRStarted(ctx context.Context, documentID string) (*orchestrator.OCRResult, error) {
	return m.ocr(m.Called(ctx, documentID))
}

func (m *mockJobs) MarkOCRCompleted(ctx context.Context, documentID string) (*orchestrator.OCRResult, error) {
	return m.ocr(m.Called(ctx, documentID))
}

func (m *mockJobs) MarkOCRFailed(ctx context.Context, documentID, message string) (*orchestrator.OCRResult, error) {
	return m.ocr(m.Called(ctx, documentID, message))
}

func (m *mockJobs) MarkBankingStarted(ctx context.Context, applicationID string) (*orchestrator.BankingResult, error) {
	return m.banking(m.Called(ctx, applicationID))
}

func (m *mockJobs) MarkBankingCompleted(ctx context.Context, applicationID string, months *int) (*orchestrator.BankingResult, error) {
	return m.banking(m.Called(ctx, applicationID, months))
}

func (m *mockJobs) MarkBankingFailed(ctx context.Context, applicationID, message string) (*orchestrator.BankingResult, error) {
	return m.banking(m.Called(ctx, applicationID, message))
}

func (m *mockJobs) MarkCreditSummaryCompleted(ctx context.Context, applicationID string) (model.ProcessingStage, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).(model.ProcessingStage), args.Error(1)
}

func (m *mockJobs) ocr(args mock.Arguments) (*orchestrator.OCRResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orchestrator.OCRResult), args.Error(1)
}

func (m *mockJobs) banking(args mock.Arguments) (*orchestrator.BankingResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orchestrator.BankingResult), args.Error(1)
}

type stubStages struct {
	stage model.ProcessingStage
	err   error
}

func (s stubStages) Advance(context.Context, string) (model.ProcessingStage, error) {
	return s.stage, s.err
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	blobs := new(storeMocks.MockStorage)
	app := newApp()
	circuits := breaker.NewRegistry(1, time.Hour)
	circuits.Get(breaker.OCRJobCreation)
	circuits.Get(breaker.BankingJobCreation)
	app.Get("/health", HealthCheck(db, blobs, circuits))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing()
		blobs.On("Ping", mock.Anything).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body healthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, map[string]string{
			"ocr_job_creation":     "closed",
			"banking_job_creation": "closed",
		}, body.Circuits)
	})

	t.Run("open circuit degrades", func(t *testing.T) {
		circuits.Get(breaker.BankingJobCreation).RecordFailure()
		defer circuits.Get(breaker.BankingJobCreation).RecordSuccess()
		dbMock.ExpectPing()
		blobs.On("Ping", mock.Anything).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body healthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "open", body.Circuits["banking_job_creation"])
		assert.Equal(t, "closed", body.Circuits["ocr_job_creation"])
	})

	t.Run("database down", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})

	t.Run("storage down", func(t *testing.T) {
		dbMock.ExpectPing()
		blobs.On("Ping", mock.Anything).Return(errors.New("bucket missing")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	assert.NoError(t, dbMock.ExpectationsWereMet())
	blobs.AssertExpectations(t)
}

func TestLivenessProbe(t *testing.T) {
	app := newApp()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func multipartUpload(t *testing.T, category, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if category != "" {
		require.NoError(t, writer.WriteField("category", category))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	appID := uuid.NewString()
	path := "/applications/" + appID + "/documents"

	t.Run("success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockDocumentService)
		app := newApp()
		app.Post("/applications/:id/documents", UploadDocument(mockSvc))

		body, ct := multipartUpload(t, "bank statements", "march.pdf", "hello world")
		expected := &service.UploadResult{
			Document:   &model.Document{ID: uuid.NewString(), Filename: "march.pdf"},
			Processing: &orchestrator.UploadOutcome{Stage: model.StageOCRProcessing},
		}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.ApplicationID == appID &&
				in.Category == "bank statements" &&
				in.Filename == "march.pdf" &&
				in.Size == 11 &&
				in.Body != nil
		})).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var result service.UploadResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, expected.Document.ID, result.Document.ID)
		assert.Equal(t, model.StageOCRProcessing, result.Processing.Stage)
		mockSvc.AssertExpectations(t)
	})

	tests := []struct {
		name     string
		path     string
		category string
		filename string
		wantCode string
	}{
		{"invalid application id", "/applications/nope/documents", "passport", "id.png", "INVALID_ID"},
		{"no file", path, "passport", "", "FILE_REQUIRED"},
		{"no category", path, "", "id.png", "CATEGORY_REQUIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockDocumentService)
			app := newApp()
			app.Post("/applications/:id/documents", UploadDocument(mockSvc))

			body, ct := multipartUpload(t, tt.category, tt.filename, "x")
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", ct)
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			mockSvc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
		})
	}

	t.Run("service error", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockDocumentService)
		app := newApp()
		app.Post("/applications/:id/documents", UploadDocument(mockSvc))

		body, ct := multipartUpload(t, "passport", "id.png", "x")
		mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("upload failed")).Once()

		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Error.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{apperror.NotFound("document x not found"), http.StatusNotFound, "NOT_FOUND"},
		{apperror.InvalidState("document is accepted"), http.StatusUnprocessableEntity, "INVALID_STATE"},
		{apperror.InvalidProduct("no active product"), http.StatusUnprocessableEntity, "INVALID_PRODUCT"},
		{apperror.CircuitOpen("ocr_job_creation"), http.StatusServiceUnavailable, "CIRCUIT_OPEN"},
		{apperror.DocumentMismatch("d", "a"), http.StatusBadRequest, "DOCUMENT_MISMATCH"},
		{apperror.InvalidInput("reason is required"), http.StatusBadRequest, "INVALID_INPUT"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockDocumentService)
			app := newApp()
			app.Get("/documents/:id", GetDocument(mockSvc))

			id := uuid.NewString()
			mockSvc.On("Get", mock.Anything, id).Return(nil, tt.err).Once()

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body.Error.Message)
			}
		})
	}
}

func TestErrorHandler_CircuitOpenIsRetryable(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newApp()
	app.Post("/documents/:id/process", ReprocessDocument(mockSvc))

	id := uuid.NewString()
	mockSvc.On("Reprocess", mock.Anything, id).Return(nil, apperror.CircuitOpen("banking_job_creation")).Once()

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/documents/"+id+"/process", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get("Retry-After"))
	assert.True(t, decodeError(t, resp).Error.Retryable)
}

func TestErrorHandler_LogsInternalErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
	app.Get("/documents/:id", GetDocument(mockSvc))

	id := uuid.NewString()
	mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("pq: connection refused")).Once()

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request failed", entry.Message)
	assert.Equal(t, "pq: connection refused", entry.ContextMap()["error"])
}

func TestDocumentRoutes(t *testing.T) {
	id := uuid.NewString()
	doc := &model.Document{
		ID:          id,
		Filename:    "march.pdf",
		ContentType: "application/pdf",
		Size:        7,
		Status:      model.DocumentUploaded,
	}
	review := &service.ReviewResult{Document: doc, Stage: model.StageDocumentsIncomplete}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func(m *serviceMocks.MockDocumentService)
		wantStatus int
		check      func(t *testing.T, resp *http.Response)
	}{
		{
			name:   "get",
			method: http.MethodGet,
			path:   "/documents/" + id,
			setup: func(m *serviceMocks.MockDocumentService) {
				m.On("Get", mock.Anything, id).Return(doc, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "download url",
			method: http.MethodGet,
			path:   "/documents/" + id + "/download-url",
			setup: func(m *serviceMocks.MockDocumentService) {
				m.On("DownloadURL", mock.Anything, id, 15*time.Minute).Return("https://minio.local/signed", nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp *http.Response) {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "https://minio.local/signed", body["url"])
				assert.Equal(t, float64(900), body["expires_in"])
			},
		},
		{
			name:   "content",
			method: http.MethodGet,
			path:   "/documents/" + id + "/content",
			setup: func(m *serviceMocks.MockDocumentService) {
				m.On("Open", mock.Anything, id).Return(io.NopCloser(strings.NewReader("content")), doc, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp *http.Response) {
				data, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, "content", string(data))
				assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
				assert.Equal(t, `attachment; filename="march.pdf"`, resp.Header.Get("Content-Disposition"))
			},
		},
		{
			name:   "delete",
			method: http.MethodDelete,
			path:   "/documents/" + id,
			setup: func(m *serviceMocks.MockDocumentService) {
				m.On("Delete", mock.Anything, id).Return(review, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "accept",
			method: http.MethodPost,
			path:   "/documents/" + id + "/accept",
			setup: func(m *serviceMocks.MockDocumentService) {
				m.On("Accept", mock.Anything, id).Return(review, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp *http.Response) {
				var body service.ReviewResult
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, model.StageDocumentsIncomplete, body.Stage)
			},
		},
		{
			name:   "reject",
			method: http.MethodPost,
			path:   "/documents/" + id + "/reject",
			body:   `{"reason":"blurry scan"}`,
			setup: func(m *serviceMocks.MockDocumentService) {
				m.On("Reject", mock.Anything, id, "blurry scan").Return(review, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "reject malformed body",
			method:     http.MethodPost,
			path:       "/documents/" + id + "/reject",
			body:       `{"reason":`,
			setup:      func(m *serviceMocks.MockDocumentService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "process",
			method: http.MethodPost,
			path:   "/documents/" + id + "/process",
			setup: func(m *serviceMocks.MockDocumentService) {
				m.On("Reprocess", mock.Anything, id).
					Return(&orchestrator.UploadOutcome{Stage: model.StageOCRProcessing}, nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "invalid id",
			method:     http.MethodPost,
			path:       "/documents/invalid-uuid/accept",
			setup:      func(m *serviceMocks.MockDocumentService) {},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockDocumentService)
			tt.setup(mockSvc)
			app := newApp()
			RegisterRoutes(app, Deps{Documents: mockSvc})

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.check != nil {
				tt.check(t, resp)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestApplicationRoutes(t *testing.T) {
	appID := uuid.NewString()

	t.Run("list documents", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockDocumentService)
		mockSvc.On("ListByApplication", mock.Anything, appID).
			Return([]model.Document{{ID: "1"}, {ID: "2"}}, nil).Once()
		app := newApp()
		RegisterRoutes(app, Deps{Documents: mockSvc})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/applications/"+appID+"/documents", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Items []model.Document `json:"items"`
			Total int              `json:"total"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.Items, 2)
		assert.Equal(t, 2, body.Total)
	})

	t.Run("requirements", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockDocumentService)
		reqs := []service.RequirementStatus{{Status: model.DocumentMissing}}
		reqs[0].Category = "bank_statements_6_months"
		reqs[0].Required = true
		mockSvc.On("Requirements", mock.Anything, appID).Return(reqs, nil).Once()
		app := newApp()
		RegisterRoutes(app, Deps{Documents: mockSvc})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/applications/"+appID+"/requirements", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Items []map[string]any `json:"items"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Items, 1)
		assert.Equal(t, "bank_statements_6_months", body.Items[0]["category"])
		assert.Equal(t, "missing", body.Items[0]["status"])
	})

	t.Run("advance", func(t *testing.T) {
		app := newApp()
		RegisterRoutes(app, Deps{Stages: stubStages{stage: model.StageOCRComplete}})

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/applications/"+appID+"/advance", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body stageResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, appID, body.ApplicationID)
		assert.Equal(t, model.StageOCRComplete, body.ProcessingStage)
	})

	t.Run("advance unknown application", func(t *testing.T) {
		app := newApp()
		RegisterRoutes(app, Deps{Stages: stubStages{err: apperror.NotFound("application %s not found", appID)}})

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/applications/"+appID+"/advance", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestJobRoutes(t *testing.T) {
	docID := uuid.NewString()
	appID := uuid.NewString()
	months := 6
	ocrRes := &orchestrator.OCRResult{Job: &model.DocumentProcessingJob{ID: "job-1"}, Stage: model.StageOCRComplete}
	bankRes := &orchestrator.BankingResult{Job: &model.BankingAnalysisJob{ID: "job-2"}, Stage: model.StageBankingComplete}

	tests := []struct {
		name       string
		path       string
		body       string
		setup      func(m *mockJobs)
		wantStatus int
	}{
		{
			name: "ocr start",
			path: "/jobs/ocr/" + docID + "/start",
			setup: func(m *mockJobs) {
				m.On("MarkOCRStarted", mock.Anything, docID).Return(ocrRes, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "ocr complete",
			path: "/jobs/ocr/" + docID + "/complete",
			setup: func(m *mockJobs) {
				m.On("MarkOCRCompleted", mock.Anything, docID).Return(ocrRes, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "ocr fail",
			path: "/jobs/ocr/" + docID + "/fail",
			body: `{"error":"unreadable page"}`,
			setup: func(m *mockJobs) {
				m.On("MarkOCRFailed", mock.Anything, docID, "unreadable page").Return(ocrRes, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "ocr complete without job",
			path: "/jobs/ocr/" + docID + "/complete",
			setup: func(m *mockJobs) {
				m.On("MarkOCRCompleted", mock.Anything, docID).Return(nil, apperror.NotFound("no ocr job"))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "banking start",
			path: "/jobs/banking/" + appID + "/start",
			setup: func(m *mockJobs) {
				m.On("MarkBankingStarted", mock.Anything, appID).Return(bankRes, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "banking complete with months",
			path: "/jobs/banking/" + appID + "/complete",
			body: `{"statement_months_detected":6}`,
			setup: func(m *mockJobs) {
				m.On("MarkBankingCompleted", mock.Anything, appID, &months).Return(bankRes, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "banking complete without body",
			path: "/jobs/banking/" + appID + "/complete",
			setup: func(m *mockJobs) {
				m.On("MarkBankingCompleted", mock.Anything, appID, (*int)(nil)).Return(bankRes, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "banking fail on completed job",
			path: "/jobs/banking/" + appID + "/fail",
			body: `{"error":"timeout"}`,
			setup: func(m *mockJobs) {
				m.On("MarkBankingFailed", mock.Anything, appID, "timeout").
					Return(nil, apperror.InvalidState("banking job is completed"))
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "credit summary complete",
			path: "/jobs/credit-summary/" + appID + "/complete",
			setup: func(m *mockJobs) {
				m.On("MarkCreditSummaryCompleted", mock.Anything, appID).Return(model.StageReadyForLender, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid id",
			path:       "/jobs/ocr/123/start",
			setup:      func(m *mockJobs) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := new(mockJobs)
			tt.setup(jobs)
			app := newApp()
			RegisterRoutes(app, Deps{Jobs: jobs})

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			jobs.AssertExpectations(t)
		})
	}
}

func TestRouting(t *testing.T) {
	app := newApp()
	RegisterRoutes(app, Deps{Documents: new(serviceMocks.MockDocumentService)})

	t.Run("not found route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})
}
