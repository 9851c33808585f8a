package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorTypeChecks(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unknown provider", ErrUnknownProvider, IsUnknownProviderError},
		{"unknown network", ErrUnknownNetwork, IsUnknownNetworkError},
		{"missing credential", ErrMissingCredential, IsMissingCredentialError},
		{"credential", ErrCredential, IsCredentialError},
		{"quota exceeded", ErrQuotaExceeded, IsQuotaExceededError},
		{"no available network", ErrNoAvailableNetwork, IsNoAvailableNetworkError},
		{"upstream", ErrUpstream, IsUpstreamError},
		{"validation", ErrEmptyPrompt, IsValidationError},
		{"unauthorized", ErrUnauthorized, IsUnauthorizedError},
		{"not found", ErrRequestLogNotFound, IsNotFoundError},
		{"internal", ErrInternal, IsInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("plain error")))
		})
	}
}

func TestDomainErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDomainError(ErrorTypeInternal, "database error", cause)

	wrapped := fmt.Errorf("processing failed: %w", err)

	assert.True(t, IsInternalError(wrapped), "type checks must see through wrapping")
	assert.ErrorIs(t, errors.Unwrap(wrapped), err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "database error")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDomainErrorIs(t *testing.T) {
	a := NewDomainError(ErrorTypeQuotaExceeded, "daily limit reached", nil)

	assert.ErrorIs(t, a, ErrQuotaExceeded, "errors of the same type match")
	assert.NotErrorIs(t, a, ErrUpstream)
}

func TestNewUpstreamError(t *testing.T) {
	t.Run("generic status", func(t *testing.T) {
		err := NewUpstreamError("openai", 500, `{"error":"overloaded"}`)

		assert.True(t, IsUpstreamError(err))
		assert.Equal(t, 500, UpstreamStatusCode(err))
		assert.Contains(t, err.Error(), "upstream openai returned status 500")
		assert.Equal(t, `{"error":"overloaded"}`, GetErrorDetails(err)["body"])
	})

	t.Run("rate limited", func(t *testing.T) {
		err := NewUpstreamError("anthropic", 429, "")

		assert.Equal(t, 429, UpstreamStatusCode(err))
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})
}

func TestUpstreamStatusCode(t *testing.T) {
	assert.Equal(t, 0, UpstreamStatusCode(errors.New("plain")))
	assert.Equal(t, 0, UpstreamStatusCode(ErrQuotaExceeded), "only upstream errors carry a status")
	assert.Equal(t, 0, UpstreamStatusCode(ErrUpstream), "upstream sentinel has no status")
}

func TestWithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "invalid payload", nil).
		WithDetail("field", "prompt")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "prompt", details["field"])
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeQuotaExceeded, GetErrorType(ErrQuotaExceeded))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
}

func TestWrapInternal(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapInternal("failed to persist log", cause)

	assert.True(t, IsInternalError(err))
	assert.ErrorIs(t, err, cause)
}
