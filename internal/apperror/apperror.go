// Package apperror defines the typed errors raised by the processing core.
//
// Job failures are data (a failed job row), not errors. Only structural
// problems surface here: missing rows, bad configuration, overload and
// client mistakes.
package apperror

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeInvalidState     Code = "invalid_state"
	CodeInvalidProduct   Code = "invalid_product"
	CodeCircuitOpen      Code = "circuit_open"
	CodeDocumentMismatch Code = "document_mismatch"
	CodeInvalidInput     Code = "invalid_input"
)

// Error is the structured error returned by services, the orchestrator and the engine.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so the sentinels below can
// be used with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "resource not found"}
	ErrInvalidState     = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrInvalidProduct   = &Error{Code: CodeInvalidProduct, Message: "invalid product"}
	ErrCircuitOpen      = &Error{Code: CodeCircuitOpen, Message: "circuit open", Retryable: true}
	ErrDocumentMismatch = &Error{Code: CodeDocumentMismatch, Message: "document does not belong to application"}
	ErrInvalidInput     = &Error{Code: CodeInvalidInput, Message: "invalid input"}
)

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InvalidProduct(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidProduct, Message: fmt.Sprintf(format, args...)}
}

// CircuitOpen is retryable: the caller may try again after the cooldown.
func CircuitOpen(breaker string) *Error {
	return &Error{
		Code:      CodeCircuitOpen,
		Message:   fmt.Sprintf("circuit %q is open", breaker),
		Retryable: true,
	}
}

func DocumentMismatch(documentID, applicationID string) *Error {
	return &Error{
		Code:    CodeDocumentMismatch,
		Message: fmt.Sprintf("document %s does not belong to application %s", documentID, applicationID),
	}
}

func InvalidInput(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error of the given code.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether err is an *Error flagged as retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
