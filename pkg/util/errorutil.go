package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by services and transport.
const (
	CodeValidation            = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeCreateFailed          = "CREATE_FAILED"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeRepositoryUnavailable = "REPOSITORY_UNAVAILABLE"
	CodeInternal              = "INTERNAL_ERROR"
)

// PublicRetryMessage is shown to anonymous callers for any failure they cannot fix themselves.
const PublicRetryMessage = "We could not process your request right now. Please try again."

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewForbidden reports an actor or assignee lacking the role or active status an action needs.
func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidTransition, message, http.StatusUnprocessableEntity, details)
}

func NewCreateFailed(attempts int, err error) error {
	return &DomainError{
		Code:       CodeCreateFailed,
		Message:    "could not allocate a unique ticket number",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"attempts": attempts},
		Err:        err,
	}
}

func NewRepositoryUnavailable(err error) error {
	return &DomainError{
		Code:       CodeRepositoryUnavailable,
		Message:    "repository unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewRepositoryUnavailable(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsCode reports whether err carries the given DomainError code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// PublicError hides storage and internal detail from anonymous callers. Validation and
// not-found errors pass through; everything else becomes a generic retry message.
func PublicError(err error) *DomainError {
	domainErr := ToDomainError(err)
	if domainErr == nil {
		return nil
	}
	switch domainErr.Code {
	case CodeValidation:
		return domainErr
	case CodeNotFound:
		return &DomainError{Code: CodeNotFound, Message: domainErr.Message, HTTPStatus: http.StatusNotFound, Err: domainErr}
	}
	status := http.StatusInternalServerError
	if domainErr.HTTPStatus == http.StatusServiceUnavailable {
		status = http.StatusServiceUnavailable
	}
	return &DomainError{Code: "TRY_AGAIN", Message: PublicRetryMessage, HTTPStatus: status, Err: domainErr}
}
