// Package apperr defines the error taxonomy shared by stores and handlers.
// Stores return the sentinels; handlers return *Error values that carry the
// HTTP status and the client-facing message.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by stores on a unique-key violation.
	ErrConflict = errors.New("already exists")
)

// Error is an error with an HTTP status and a message safe to show clients.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func Unauthenticated(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

func TooLarge(msg string) *Error {
	return &Error{Status: http.StatusRequestEntityTooLarge, Message: msg}
}

// Internal wraps an unexpected store or filesystem failure.
func Internal(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// As converts any error into an *Error, treating unknown errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("Server Error", err)
}
