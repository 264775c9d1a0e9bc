// Package embed provides vector embedding providers for semdex.
//
// Three provider variants are supported: the hosted OpenAI API, any remote
// exposing the same wire format, and a local Ollama runtime. All of them
// map provider failures onto the structured error taxonomy so the indexing
// engine can decide what to retry.
package embed

import (
	"context"
	"time"
)

// Default connection settings shared by the HTTP providers.
const (
	// DefaultRequestTimeout bounds a single embedding request.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultConnectTimeout bounds the initial availability probe.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultPoolSize is the HTTP connection pool size.
	DefaultPoolSize = 10
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension. Zero until the first
	// successful call when the provider discovers it lazily.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}
