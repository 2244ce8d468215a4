// Package errors provides structured error types for memorywall.
//
// Every error that crosses a package boundary toward the CLI or the HTTP API
// carries a machine-readable [Code]. The API maps codes to status codes with
// [HTTPStatus]; the CLI prints [UserMessage].
//
// # Error Codes
//
//   - INVALID_*: input or configuration rejected before any work is done
//   - NOT_FOUND: unknown wall, tile or cache entry
//   - FORBIDDEN: wrong join code
//   - LAYOUT_FAILED: a strategy could not place every tile
//   - NETWORK_ERROR, TIMEOUT: backend transport failures
//   - INTERNAL_ERROR: everything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "numColumns must be >= 1, got %d", n)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // reject the request
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "list tiles for wall %s", id)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidTile     Code = "INVALID_TILE"
	ErrCodeInvalidStrategy Code = "INVALID_STRATEGY"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeWallNotFound Code = "WALL_NOT_FOUND"
	ErrCodeConflict     Code = "CONFLICT"

	// Layout errors
	ErrCodeLayoutFailed Code = "LAYOUT_FAILED"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Authorization errors
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeForbidden    Code = "FORBIDDEN"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps the code carried by err to an HTTP status.
// Errors without a code are reported as 500.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidConfig, ErrCodeInvalidTile,
		ErrCodeInvalidStrategy, ErrCodeInvalidFormat, ErrCodeInvalidPath:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeWallNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeLayoutFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
