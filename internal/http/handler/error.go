package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loanops/internal/apperror"
	"loanops/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// statusFor maps application error codes to HTTP status codes.
func statusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeNotFound:
		return fiber.StatusNotFound
	case apperror.CodeInvalidState, apperror.CodeInvalidProduct:
		return fiber.StatusUnprocessableEntity
	case apperror.CodeCircuitOpen:
		return fiber.StatusServiceUnavailable
	case apperror.CodeDocumentMismatch, apperror.CodeInvalidInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error
// responses. Application errors keep their message; anything else is logged
// and reported as an internal error.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperror.Error
		if errors.As(err, &appErr) && statusFor(appErr.Code) != fiber.StatusInternalServerError {
			if appErr.Retryable {
				c.Set(fiber.HeaderRetryAfter, "30")
			}
			return c.Status(statusFor(appErr.Code)).JSON(errorPayload{
				RequestID: requestIDFromCtx(c),
				Error: errorEnvelope{
					Code:      strings.ToUpper(string(appErr.Code)),
					Message:   appErr.Message,
					Retryable: appErr.Retryable,
				},
			})
		}

		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			log.Error("request failed",
				zap.String("request_id", requestIDFromCtx(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
