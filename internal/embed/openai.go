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

// DefaultOpenAIBaseURL is the hosted API endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIConfig configures the hosted or compatible embedding provider.
type OpenAIConfig struct {
	// BaseURL is the API root. Defaults to the hosted endpoint; a
	// compatible remote overrides it.
	BaseURL string

	// APIKey is the bearer credential.
	APIKey string

	// Model is the embedding model identifier.
	Model string

	// Dimensions is the expected vector length. Zero means discover
	// from the first response.
	Dimensions int

	// Timeout bounds a single request.
	Timeout time.Duration
}

// OpenAIEmbedder calls the /embeddings endpoint of the hosted API or any
// remote speaking the same wire format.
type OpenAIEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OpenAIConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIEmbedder creates the hosted/compatible provider.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, semerrors.ConfigError("embedding API key is required", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Model == "" {
		return nil, semerrors.ConfigError("embedding model is required", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        DefaultPoolSize,
		MaxIdleConnsPerHost: DefaultPoolSize,
		IdleConnTimeout:     30 * time.Second,
	}

	// No client-level timeout: each request carries its own context
	// deadline so cancellation propagates immediately.
	return &OpenAIEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		dims:      cfg.Dimensions,
	}, nil
}

// Embed generates the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, semerrors.TransportError("embedder is closed", nil)
	}
	e.mu.RUnlock()

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(openAIEmbedRequest{
		Model: e.config.Model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		e.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, semerrors.TransportError("embedding request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, e.statusError(resp)
	}

	var result openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, semerrors.TransportError("failed to decode embedding response", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, semerrors.TransportError("provider returned no embedding", nil)
	}

	vec := result.Data[0].Embedding
	e.recordDimensions(len(vec))
	return vec, nil
}

// statusError maps a non-200 response onto the error taxonomy.
func (e *OpenAIEmbedder) statusError(resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	detail := strings.TrimSpace(string(respBody))
	var parsed openAIEmbedResponse
	if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil {
		detail = parsed.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return semerrors.RateLimitedError(
			fmt.Sprintf("provider rate limited: %s", detail), nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return semerrors.UnauthorizedError(
			fmt.Sprintf("provider rejected credentials: %s", detail), nil)
	case resp.StatusCode >= 500:
		return semerrors.TransportError(
			fmt.Sprintf("provider error %d: %s", resp.StatusCode, detail), nil)
	default:
		return semerrors.New(semerrors.ErrCodeInvalidInput,
			fmt.Sprintf("provider rejected request with status %d: %s", resp.StatusCode, detail), nil)
	}
}

// recordDimensions stores the discovered vector length on first success.
func (e *OpenAIEmbedder) recordDimensions(n int) {
	e.mu.Lock()
	if e.dims == 0 {
		e.dims = n
	}
	e.mu.Unlock()
}

// Dimensions returns the embedding dimension, zero until discovered.
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.config.Model
}

// Close releases pooled connections.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
