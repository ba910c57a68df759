// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Code is the stable, client-facing error identifier.
type Code string

const (
	CodeBadInput           Code = "BAD_INPUT"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeNoToken            Code = "NO_TOKEN"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeTooManyRequests    Code = "TOO_MANY_REQUESTS"
	CodeInternal           Code = "INTERNAL"
)

// Error is the API error carried from services to handlers.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, status int, msg string) *Error {
	return &Error{Code: code, Status: status, Message: msg}
}

func BadInput(msg string) error { return newError(CodeBadInput, http.StatusBadRequest, msg) }

func InvalidCredentials(msg string) error {
	return newError(CodeInvalidCredentials, http.StatusUnauthorized, msg)
}

func InvalidToken(msg string) error {
	return newError(CodeInvalidToken, http.StatusUnauthorized, msg)
}

func NoToken(msg string) error { return newError(CodeNoToken, http.StatusUnauthorized, msg) }

func Forbidden(msg string) error { return newError(CodeForbidden, http.StatusForbidden, msg) }

func NotFound(msg string) error { return newError(CodeNotFound, http.StatusNotFound, msg) }

func AlreadyExists(msg string) error {
	return newError(CodeAlreadyExists, http.StatusConflict, msg)
}

func TooManyRequests(msg string) error {
	return newError(CodeTooManyRequests, http.StatusTooManyRequests, msg)
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(err error) error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Internal error", Err: err}
}

// Map converts repo/infra errors into API errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: "Not found", Err: err}

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Code: CodeAlreadyExists, Status: http.StatusConflict, Message: "Already exists", Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Request was canceled", Err: err}

	default:
		return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Internal error", Err: err}
	}
}

// Is reports whether err maps to the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return Map(err).Code == code
}
