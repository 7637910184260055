package domain

import (
	"context"
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code      string
	Message   string
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code and message, so sentinel errors
// survive wrapping with a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError reports malformed caller input.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// NewConfigurationError reports a missing credential or unusable provider setup.
func NewConfigurationError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeConfiguration, message, err)
}

// NewUpstreamError wraps a failure of a remote model or vector store.
// Upstream failures are always safe to retry.
func NewUpstreamError(message string, err error) *DomainError {
	e := NewDomainErrorWithCause(ErrCodeUpstream, message, err)
	e.Retryable = true
	return e
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeNotIndexed    = "NOT_INDEXED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrNoChunks             = NewDomainError(ErrCodeValidation, "no chunks created from transcript")
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question must not be empty")
	ErrTooShortToTranslate  = NewDomainError(ErrCodeValidation, "Text is too short to translate.")
	ErrTooShortToSummarize  = NewDomainError(ErrCodeValidation, "Text is too short to summarize.")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptySegment         = NewDomainError(ErrCodeValidation, "segment text must not be empty")
	ErrBodyTooLarge         = NewDomainError(ErrCodeValidation, "request body too large")
)

// Configuration errors
var (
	ErrEmbeddingNotConfigured  = NewDomainError(ErrCodeConfiguration, "no embedding provider available")
	ErrGenerationNotConfigured = NewDomainError(ErrCodeConfiguration, "no generation model configured")
	ErrUnknownIndexBackend     = NewDomainError(ErrCodeConfiguration, "unknown index backend")
)

// Index errors
var (
	ErrNotIndexed        = NewDomainError(ErrCodeNotIndexed, "no transcript has been indexed")
	ErrDimensionMismatch = NewDomainError(ErrCodeUpstream, "embedding dimension does not match index")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// IsRetryable reports whether err carries a DomainError flagged retryable.
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// IsTimeout reports whether err was caused by an exceeded deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
