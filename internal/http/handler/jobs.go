package handler

import (
	"github.com/gofiber/fiber/v2"
)

type failRequest struct {
	Error string `json:"error"`
}

type bankingCompleteRequest struct {
	StatementMonthsDetected *int `json:"statement_months_detected"`
}

// StartOCR marks the document's OCR job as processing.
func StartOCR(jobs JobReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		res, err := jobs.MarkOCRStarted(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// CompleteOCR records OCR completion and advances the application.
func CompleteOCR(jobs JobReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		res, err := jobs.MarkOCRCompleted(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// FailOCR records an OCR failure.
func FailOCR(jobs JobReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		var req failRequest
		if err := parseOptionalBody(c, &req); err != nil {
			return invalidBody(c)
		}
		res, err := jobs.MarkOCRFailed(c.UserContext(), id, req.Error)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func StartBanking(jobs JobReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		res, err := jobs.MarkBankingStarted(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// CompleteBanking records banking completion. The body may carry the number
// of statement months detected.
func CompleteBanking(jobs JobReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		var req bankingCompleteRequest
		if err := parseOptionalBody(c, &req); err != nil {
			return invalidBody(c)
		}
		res, err := jobs.MarkBankingCompleted(c.UserContext(), id, req.StatementMonthsDetected)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func FailBanking(jobs JobReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		var req failRequest
		if err := parseOptionalBody(c, &req); err != nil {
			return invalidBody(c)
		}
		res, err := jobs.MarkBankingFailed(c.UserContext(), id, req.Error)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// CompleteCreditSummary records that the credit summary was generated.
func CompleteCreditSummary(jobs JobReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		stage, err := jobs.MarkCreditSummaryCompleted(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(stageResponse{ApplicationID: id, ProcessingStage: stage})
	}
}
