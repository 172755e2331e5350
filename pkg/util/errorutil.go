package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes rendered in the "code" field of error responses.
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeBadRequest            = "BAD_REQUEST"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeConflict              = "CONFLICT"
	CodeRateLimited           = "RATE_LIMITED"
	CodeInternal              = "INTERNAL_ERROR"
	CodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
)

// DomainError is an error that knows how it should be presented over HTTP.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusUnprocessableEntity, details)
}

func NewBadRequest(message string) error {
	return NewDomainError(CodeBadRequest, message, http.StatusBadRequest, nil)
}

// NewNotFound reports a missing resource, e.g. NewNotFound("ticket", nil)
// yields "ticket not found".
func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, resource+" not found", http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewRateLimited(message string) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, nil)
}

// NewInternalError hides err behind a generic message.
func NewInternalError(err error) error {
	return WithMessage(err, "internal server error")
}

// WithMessage wraps err as an internal error carrying a user-facing message.
func WithMessage(err error, message string) error {
	de := NewDomainError(CodeInternal, message, http.StatusInternalServerError, nil)
	de.Err = err
	return de
}

// ToDomainError converts any error into a DomainError. Fiber errors keep
// their status; anything unrecognized becomes a 500.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return NewDomainError(http.StatusText(fiberErr.Code), fiberErr.Message, fiberErr.Code, nil)
	}

	return NewInternalError(err).(*DomainError)
}
