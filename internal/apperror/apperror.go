// Package apperror defines the operational error taxonomy shared by the
// services and the HTTP layer. An operational error is an expected failure
// condition whose message is safe to return to the caller; everything else
// is treated as a defect and surfaced as a generic internal error.
package apperror

import (
	"errors"
	"net/http"
)

// Code identifies the failure condition independently of the HTTP status.
type Code string

const (
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeConflict        Code = "CONFLICT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeInternal        Code = "INTERNAL_SERVER_ERROR"
)

// Error is an operational error carrying the HTTP status it maps to.
type Error struct {
	Code    Code
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an operational error with an explicit status code.
func New(code Code, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func BadRequest(message string) *Error {
	return New(CodeBadRequest, http.StatusBadRequest, message)
}

func Validation(message string) *Error {
	return New(CodeValidation, http.StatusBadRequest, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, http.StatusConflict, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, http.StatusNotFound, message)
}

func TooManyRequests(message string) *Error {
	return New(CodeTooManyRequests, http.StatusTooManyRequests, message)
}

func Internal(message string) *Error {
	return New(CodeInternal, http.StatusInternalServerError, message)
}

// From extracts an *Error from err, if it carries one.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsOperational reports whether err is a known operational error.
func IsOperational(err error) bool {
	_, ok := From(err)
	return ok
}
