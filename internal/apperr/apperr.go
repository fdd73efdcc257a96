// Package apperr carries the externally visible error taxonomy. Handlers return
// *Error values and the server's error handler renders them; anything else is
// reported as a sanitized 500.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Status  int
	Message string
	Details string
	// Errors lists field level validation failures.
	Errors []string

	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Wrap keeps cause for logging; it never reaches the client.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.err = cause
	return &cp
}

func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }
func Unavailable(message string) *Error  { return New(http.StatusServiceUnavailable, message) }
func Internal(message string) *Error     { return New(http.StatusInternalServerError, message) }

func Validation(errs []string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "validation failed", Errors: errs}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
