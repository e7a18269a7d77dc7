// Package apperr defines the error taxonomy surfaced to HTTP clients. Every
// failure that reaches the error boundary is either an *Error carrying its
// status code or is rendered as an internal error.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error is a client-facing failure with an HTTP status.
type Error struct {
	Status  int
	Message string
	Errors  []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an internal cause. The cause is logged, never rendered.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

func newError(status int, msg string, details ...string) *Error {
	return &Error{Status: status, Message: msg, Errors: details}
}

func Validation(msg string, details ...string) *Error {
	return newError(http.StatusBadRequest, msg, details...)
}

func Unauthorized(msg string) *Error { return newError(http.StatusUnauthorized, msg) }

func Forbidden(msg string) *Error { return newError(http.StatusForbidden, msg) }

func NotFound(msg string) *Error { return newError(http.StatusNotFound, msg) }

func Conflict(msg string) *Error { return newError(http.StatusConflict, msg) }

func TooManyRequests(msg string) *Error { return newError(http.StatusTooManyRequests, msg) }

func Internal(msg string) *Error { return newError(http.StatusInternalServerError, msg) }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}
