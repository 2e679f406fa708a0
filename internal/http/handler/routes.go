package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"loanops/internal/breaker"
	"loanops/internal/model"
	"loanops/internal/orchestrator"
	"loanops/internal/service"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BlobPinger is satisfied by storage.Storage.
type BlobPinger interface {
	Ping(ctx context.Context) error
}

// CircuitReporter is satisfied by *breaker.Registry.
type CircuitReporter interface {
	Snapshot() map[string]breaker.State
}

// StageAdvancer recomputes an application's processing stage.
type StageAdvancer interface {
	Advance(ctx context.Context, applicationID string) (model.ProcessingStage, error)
}

// JobReporter receives status reports from OCR, banking and credit-summary workers.
type JobReporter interface {
	MarkOCRStarted(ctx context.Context, documentID string) (*orchestrator.OCRResult, error)
	MarkOCRCompleted(ctx context.Context, documentID string) (*orchestrator.OCRResult, error)
	MarkOCRFailed(ctx context.Context, documentID, message string) (*orchestrator.OCRResult, error)
	MarkBankingStarted(ctx context.Context, applicationID string) (*orchestrator.BankingResult, error)
	MarkBankingCompleted(ctx context.Context, applicationID string, statementMonths *int) (*orchestrator.BankingResult, error)
	MarkBankingFailed(ctx context.Context, applicationID, message string) (*orchestrator.BankingResult, error)
	MarkCreditSummaryCompleted(ctx context.Context, applicationID string) (model.ProcessingStage, error)
}

// Deps are the collaborators behind the HTTP routes.
type Deps struct {
	DB        Pinger
	Storage   BlobPinger
	Circuits  CircuitReporter
	Documents service.DocumentService
	Stages    StageAdvancer
	Jobs      JobReporter
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers only translate between HTTP and the services.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB, d.Storage, d.Circuits))
	app.Get("/healthz", LivenessProbe())

	apps := app.Group("/applications/:id")
	apps.Post("/documents", UploadDocument(d.Documents))
	apps.Get("/documents", ListDocuments(d.Documents))
	apps.Get("/requirements", ListRequirements(d.Documents))
	apps.Post("/advance", AdvanceStage(d.Stages))

	docs := app.Group("/documents/:id")
	docs.Get("", GetDocument(d.Documents))
	docs.Get("/download-url", DownloadURL(d.Documents))
	docs.Get("/content", DownloadContent(d.Documents))
	docs.Delete("", DeleteDocument(d.Documents))
	docs.Post("/accept", AcceptDocument(d.Documents))
	docs.Post("/reject", RejectDocument(d.Documents))
	docs.Post("/process", ReprocessDocument(d.Documents))

	ocr := app.Group("/jobs/ocr/:id")
	ocr.Post("/start", StartOCR(d.Jobs))
	ocr.Post("/complete", CompleteOCR(d.Jobs))
	ocr.Post("/fail", FailOCR(d.Jobs))

	banking := app.Group("/jobs/banking/:id")
	banking.Post("/start", StartBanking(d.Jobs))
	banking.Post("/complete", CompleteBanking(d.Jobs))
	banking.Post("/fail", FailBanking(d.Jobs))

	app.Post("/jobs/credit-summary/:id/complete", CompleteCreditSummary(d.Jobs))
}

type healthResponse struct {
	Status   string            `json:"status"`
	Circuits map[string]string `json:"circuits,omitempty"`
}

// HealthCheck checks database and object storage connectivity and reports
// the job-creation circuits. An open circuit degrades the status without
// failing the check. Nil blobs or circuits are skipped.
func HealthCheck(db Pinger, blobs BlobPinger, circuits CircuitReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		if blobs != nil {
			if err := blobs.Ping(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}

		resp := healthResponse{Status: "healthy"}
		if circuits != nil {
			snap := circuits.Snapshot()
			if len(snap) > 0 {
				resp.Circuits = make(map[string]string, len(snap))
			}
			for name, st := range snap {
				resp.Circuits[name] = st.String()
				if st != breaker.StateClosed {
					resp.Status = "degraded"
				}
			}
		}
		return c.Status(fiber.StatusOK).JSON(resp)
	}
}

// LivenessProbe is a simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// idParam returns the :id route parameter when it is a UUID.
func idParam(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}

// parseOptionalBody decodes a JSON body if one was sent.
func parseOptionalBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(v)
}

func invalidBody(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
}

type stageResponse struct {
	ApplicationID   string                `json:"application_id"`
	ProcessingStage model.ProcessingStage `json:"processing_stage"`
}

// AdvanceStage recomputes the stage of an application on demand.
func AdvanceStage(stages StageAdvancer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		stage, err := stages.Advance(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(stageResponse{ApplicationID: id, ProcessingStage: stage})
	}
}
