// Package apperr defines the error kinds shared by the service layer and
// mapped to HTTP status codes by the API.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// Error carries a client-facing message alongside one of the sentinel kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound error with the given message.
func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

// Forbidden returns an ErrForbidden error with the given message.
func Forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

// InvalidInput returns an ErrInvalidInput error with the given message.
func InvalidInput(format string, args ...any) error {
	return newError(ErrInvalidInput, format, args...)
}

// Conflict returns an ErrConflict error with the given message.
func Conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

// Unauthorized returns an ErrUnauthorized error with the given message.
func Unauthorized(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args...)
}

// Message returns the client-facing message of err, or fallback when err
// does not carry one.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// IsNotFound reports whether err is of kind ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
