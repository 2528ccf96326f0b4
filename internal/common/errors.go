// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Model invocation errors.
var (
	// ErrTimeout indicates the model did not answer within its deadline.
	ErrTimeout = errors.New("model timeout")
	// ErrModelUnavailable indicates the model backend failed or rejected the call.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrParseFailure indicates the model returned unusable structure.
	ErrParseFailure = errors.New("unusable model response")
	// ErrRateLimited indicates the caller exhausted its request window.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ValidationError represents a malformed request. It maps to a 400 response
// and is never retried or logged as an anomaly.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a user-facing message.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
