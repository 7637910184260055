package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())

	wrapped := NewDomainErrorWithCause(ErrCodeUpstream, "embedding failed", errors.New("boom"))
	assert.Equal(t, "[UPSTREAM_ERROR] embedding failed: boom", wrapped.Error())
}

func TestDomainError_IsMatchesSentinelThroughWrapping(t *testing.T) {
	err := fmt.Errorf("build index: %w", ErrNoChunks)
	assert.True(t, errors.Is(err, ErrNoChunks))
	assert.False(t, errors.Is(err, ErrEmptyQuestion))

	withCause := NewDomainErrorWithCause(ErrCodeValidation, ErrNoChunks.Message, errors.New("empty"))
	assert.True(t, errors.Is(withCause, ErrNoChunks))
}

func TestNewUpstreamError_IsRetryable(t *testing.T) {
	err := NewUpstreamError("generation failed", errors.New("503"))
	assert.Equal(t, ErrCodeUpstream, err.Code)
	assert.True(t, IsRetryable(err))
	assert.True(t, IsRetryable(fmt.Errorf("query: %w", err)))

	assert.False(t, IsRetryable(NewValidationError("nope")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestIsTimeout(t *testing.T) {
	err := NewUpstreamError("embedding timed out", context.DeadlineExceeded)
	assert.True(t, IsTimeout(err))
	assert.False(t, IsTimeout(NewUpstreamError("refused", errors.New("connection refused"))))
}

func TestNewConfigurationError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewConfigurationError("no embedding provider available", cause)

	assert.Equal(t, ErrCodeConfiguration, err.Code)
	assert.False(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrEmbeddingNotConfigured)
}
