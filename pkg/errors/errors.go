// Package errors provides standardized error types for the loader and its
// destination bindings.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error codes. Data-level failures never surface as errors; these cover
// contract and lifecycle violations plus I/O faults around the core.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeFailedPrecondition = "FAILED_PRECONDITION"
	CodeConnectionFailed   = "CONNECTION_FAILED"
	CodeDestinationClosed  = "DESTINATION_CLOSED"
	CodeIngestFailed       = "INGEST_FAILED"
	CodeExportFailed       = "EXPORT_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeUnsupported        = "UNSUPPORTED"
	CodeCanceled           = "CANCELED"
	CodeInternal           = "INTERNAL_ERROR"
)

// LoadError represents an error with code, message, and optional details.
type LoadError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *LoadError) Is(target error) bool {
	t, ok := target.(*LoadError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *LoadError) WithDetail(key string, value any) *LoadError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrNilDestination    = &LoadError{Code: CodeFailedPrecondition, Message: "destination is nil"}
	ErrInvalidBatchSize  = &LoadError{Code: CodeFailedPrecondition, Message: "batch size must be at least 1"}
	ErrDestinationClosed = &LoadError{Code: CodeDestinationClosed, Message: "destination handle is closed"}
	ErrConnectionFailed  = &LoadError{Code: CodeConnectionFailed, Message: "destination connection failed"}
	ErrUnsupportedFormat = &LoadError{Code: CodeUnsupported, Message: "unsupported format"}
)

// New creates a new LoadError with the given code and message.
func New(code, message string) *LoadError {
	return &LoadError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new LoadError with a formatted message.
func Newf(code, format string, args ...any) *LoadError {
	return &LoadError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a LoadError.
func Wrap(err error, code, message string) *LoadError {
	if err == nil {
		return nil
	}
	return &LoadError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...any) *LoadError {
	if err == nil {
		return nil
	}
	return &LoadError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsPrecondition checks if an error is a contract violation.
func IsPrecondition(err error) bool {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code == CodeFailedPrecondition
	}
	return false
}

// IsConnectionFailed checks if an error is a connection failure.
func IsConnectionFailed(err error) bool {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code == CodeConnectionFailed
	}
	return false
}

// IsCanceled checks if an error is a cancellation, either from a context
// or from an explicit CANCELED code.
func IsCanceled(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code == CodeCanceled
	}
	return false
}

// GetCode extracts the error code from an error. Unknown errors map to
// CodeInternal.
func GetCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Message
	}
	return err.Error()
}
