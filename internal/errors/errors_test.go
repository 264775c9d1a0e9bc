package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	// Given: error codes from each category
	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"config code", ErrCodeConfigInvalid, CategoryConfig},
		{"io code", ErrCodeDatabase, CategoryIO},
		{"provider code", ErrCodeRateLimited, CategoryProvider},
		{"validation code", ErrCodeQueryEmpty, CategoryValidation},
		{"engine code", ErrCodeBusy, CategoryEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: creating an error with the code
			err := New(tt.code, "message", nil)

			// Then: the category is derived from the code
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestNew_RetryableOnlyForTransientCodes(t *testing.T) {
	// Given: one code per retry class
	assert.True(t, New(ErrCodeTransport, "net down", nil).Retryable)
	assert.True(t, New(ErrCodeRateLimited, "quota", nil).Retryable)

	// Then: credentials and database failures never retry
	assert.False(t, New(ErrCodeUnauthorized, "bad key", nil).Retryable)
	assert.False(t, New(ErrCodeDatabase, "db down", nil).Retryable)
}

func TestError_UnwrapPreservesCause(t *testing.T) {
	// Given: a wrapped cause
	cause := errors.New("connection refused")
	err := TransportError("embedding request failed", cause)

	// When: unwrapping through the chain
	// Then: errors.Is finds the cause
	require.ErrorIs(t, err, cause)
}

func TestIsRetryable_SeesThroughWrapping(t *testing.T) {
	// Given: a retryable error wrapped in a plain fmt error
	inner := RateLimitedError("quota exhausted", nil)
	wrapped := fmt.Errorf("batch 3: %w", inner)

	// When: checking retryability
	// Then: the wrapped error is still retryable
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(nil))
}

func TestIsBusy_MatchesOnlyBusyCode(t *testing.T) {
	// Given: a busy error and an unrelated one
	assert.True(t, IsBusy(BusyError()))
	assert.False(t, IsBusy(IndexingError("run failed", nil)))
}

func TestWithDetail_AccumulatesDetails(t *testing.T) {
	// Given: an error with chained details
	err := IndexingError("3 files failed", nil).
		WithDetail("paths", "a.md,b.md,c.md").
		WithDetail("attempts", "5")

	// Then: both details are present
	assert.Equal(t, "a.md,b.md,c.md", err.Details["paths"])
	assert.Equal(t, "5", err.Details["attempts"])
}

func TestGetCode_ReturnsEmptyForForeignErrors(t *testing.T) {
	assert.Equal(t, ErrCodeBusy, GetCode(BusyError()))
	assert.Equal(t, "", GetCode(errors.New("not structured")))
}
