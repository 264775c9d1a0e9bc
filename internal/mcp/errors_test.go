package mcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	semerrors "github.com/semdex/semdex/internal/errors"
)

func TestMapError_NilPassesThrough(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_TaxonomyToProtocolCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"busy", semerrors.BusyError(), ErrCodeIndexingBusy},
		{"empty query", semerrors.New(semerrors.ErrCodeQueryEmpty, "empty", nil), ErrCodeInvalidParams},
		{"invalid input", semerrors.New(semerrors.ErrCodeInvalidInput, "bad", nil), ErrCodeInvalidParams},
		{"config", semerrors.ConfigError("missing url", nil), ErrCodeConfig},
		{"rate limited", semerrors.RateLimitedError("slow down", nil), ErrCodeEmbeddingFailed},
		{"transport", semerrors.TransportError("down", nil), ErrCodeEmbeddingFailed},
		{"unauthorized", semerrors.UnauthorizedError("bad key", nil), ErrCodeEmbeddingFailed},
		{"database", semerrors.New(semerrors.ErrCodeDatabase, "insert failed", nil), ErrCodeDatabase},
		{"indexing failure", semerrors.IndexingError("3 files failed", nil), ErrCodeInternalError},
		{"plain error", errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_ExistingMCPErrorUnchanged(t *testing.T) {
	// Given: an error already in protocol shape
	orig := NewInvalidParamsError("limit must be positive")

	// Then: mapping returns it as-is, even when wrapped
	assert.Same(t, orig, MapError(orig))
}

func TestMCPError_ErrorString(t *testing.T) {
	err := &MCPError{Code: ErrCodeIndexingBusy, Message: "indexing already in progress"}
	assert.Equal(t, "MCP error -32010: indexing already in progress", err.Error())
}
