// Package apperror defines the error classes shared by every layer of the API.
//
// Services return these; handlers translate them into HTTP status codes in
// exactly one place (handler/response.go).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstream        = errors.New("upstream failure")
	ErrNotConfigured   = errors.New("not configured")
	ErrInternal        = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel class
	Message string // Human-readable error message, safe to show to callers
	Field   string // Optional: request field causing the error
	Status  int    // Optional: status code reported by an upstream service
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Missing is a NotFound with a free-form message, used when the absent thing
// has no id worth printing (e.g. "No README found").
func Missing(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the resource is private or the
// caller lacks permission. HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means no usable credential exists for the operation.
// HTTP handlers map this to 401 Unauthorized.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// RateLimited means an upstream kept throttling us. Handlers map this to 429.
func RateLimited(message string) *AppError {
	return &AppError{
		Err:     ErrRateLimited,
		Message: message,
		Status:  429,
	}
}

// Upstream wraps a failure reported by (or while reaching) a third-party API.
// status is the upstream HTTP status, or 0 for transport failures.
func Upstream(status int, message string, cause error) *AppError {
	err := ErrUpstream
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrUpstream, cause)
	}
	return &AppError{
		Err:     err,
		Message: message,
		Status:  status,
	}
}

// NotConfigured reports missing server-side configuration (API keys, client
// credentials). It is returned on every call until the process is
// reconfigured.
func NotConfigured(message string) *AppError {
	return &AppError{
		Err:     ErrNotConfigured,
		Message: message,
	}
}

// Internal is a server-side failure whose message is still safe to show,
// such as a mail provider refusing a message. Handlers map it to 500.
func Internal(message string, cause error) *AppError {
	err := ErrInternal
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrInternal, cause)
	}
	return &AppError{
		Err:     err,
		Message: message,
	}
}
