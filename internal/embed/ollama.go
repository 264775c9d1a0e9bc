package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	semerrors "github.com/semdex/semdex/internal/errors"
)

// DefaultOllamaModel is used when no model override is configured for the
// local runtime.
const DefaultOllamaModel = "nomic-embed-text"

// OllamaConfig configures the local runtime provider.
type OllamaConfig struct {
	// Host is the runtime base URL, e.g. http://localhost:11434.
	Host string

	// Model is the embedding model identifier.
	Model string

	// Dimensions is the expected vector length. Zero means discover
	// from the first response.
	Dimensions int

	// Timeout bounds a single request. Local models can be slow to
	// load, so this is generous.
	Timeout time.Duration
}

// OllamaEmbedder generates embeddings through a local Ollama runtime.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates the local runtime provider.
func NewOllamaEmbedder(cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		return nil, semerrors.ConfigError("ollama host is required", nil)
	}
	cfg.Host = strings.TrimSuffix(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        DefaultPoolSize,
		MaxIdleConnsPerHost: DefaultPoolSize,
		IdleConnTimeout:     10 * time.Second,
	}

	return &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		dims:      cfg.Dimensions,
	}, nil
}

// Embed generates the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, semerrors.TransportError("embedder is closed", nil)
	}
	e.mu.RUnlock()

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{
		Model: e.config.Model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, semerrors.TransportError("failed to reach local embedding runtime", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, semerrors.RateLimitedError(
				fmt.Sprintf("local runtime throttled: %s", strings.TrimSpace(string(respBody))), nil)
		}
		return nil, semerrors.TransportError(
			fmt.Sprintf("embedding failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, semerrors.TransportError("failed to decode embedding response", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, semerrors.TransportError("local runtime returned no embedding", nil)
	}

	vec := result.Embeddings[0]

	e.mu.Lock()
	if e.dims == 0 {
		e.dims = len(vec)
	}
	e.mu.Unlock()

	return vec, nil
}

// Dimensions returns the embedding dimension, zero until discovered.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

// Close releases pooled connections.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
