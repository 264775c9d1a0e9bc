package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	semerrors "github.com/semdex/semdex/internal/errors"
)

func newTestOllama(t *testing.T, host string) *OllamaEmbedder {
	t.Helper()
	e, err := NewOllamaEmbedder(OllamaConfig{Host: host, Model: "nomic-embed-text"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOllamaEmbed_SendsRequestAndParsesVector(t *testing.T) {
	// Given: a runtime asserting the wire format
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "hello", req.Input)

		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float32{{0.5, 0.6}},
		})
	}))
	t.Cleanup(srv.Close)
	e := newTestOllama(t, srv.URL)

	// When: embedding
	vec, err := e.Embed(context.Background(), "hello")

	// Then: the first vector is returned and the dimension latched
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.6}, vec)
	assert.Equal(t, 2, e.Dimensions())
}

func TestOllamaEmbed_ThrottleIsRetryable(t *testing.T) {
	// Given: a runtime answering 429
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	e := newTestOllama(t, srv.URL)

	// When: embedding fails
	_, err := e.Embed(context.Background(), "hello")

	// Then: the failure is retryable with the rate limit code
	require.Error(t, err)
	assert.Equal(t, semerrors.ErrCodeRateLimited, semerrors.GetCode(err))
	assert.True(t, semerrors.IsRetryable(err))
}

func TestOllamaEmbed_ServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	e := newTestOllama(t, srv.URL)

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, semerrors.ErrCodeTransport, semerrors.GetCode(err))
}

func TestOllamaEmbed_UnreachableHostIsTransport(t *testing.T) {
	// Given: nothing listening on the host
	e := newTestOllama(t, "http://127.0.0.1:1")

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, semerrors.ErrCodeTransport, semerrors.GetCode(err))
}

func TestNewOllamaEmbedder_DefaultsModel(t *testing.T) {
	e, err := NewOllamaEmbedder(OllamaConfig{Host: "http://localhost:11434"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaModel, e.ModelName())

	_, err = NewOllamaEmbedder(OllamaConfig{})
	require.Error(t, err)
}
