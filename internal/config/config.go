// Package config loads the semdex configuration from the process
// environment. The engine is configured entirely via env; a local .env file
// is honored for development.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	semerrors "github.com/semdex/semdex/internal/errors"
)

// Provider identifies the configured embedding provider variant.
type Provider string

const (
	// ProviderOpenAI is the hosted provider (requires an API key).
	ProviderOpenAI Provider = "openai"
	// ProviderOllama is the local runtime provider.
	ProviderOllama Provider = "ollama"
	// ProviderCompatible is a remote that mimics the hosted wire format.
	ProviderCompatible Provider = "openai-compatible"
)

// Defaults for tunables not present in the environment.
const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultMinSimilarity  = 0.25
	DefaultMaxResults     = 10
	DefaultMaxSessionSize = 50
	DefaultConsoleAddr    = "127.0.0.1:8643"
)

// Config is the complete semdex configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string. Required.
	DatabaseURL string `env:"DATABASE_URL"`

	// Embedding provider selection. Exactly one variant is chosen, in
	// priority order: compatible endpoint, hosted key, local runtime.
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OllamaBaseURL string `env:"OLLAMA_BASE_URL"`
	CompatBaseURL string `env:"OPENAI_COMPAT_BASE_URL"`
	CompatAPIKey  string `env:"OPENAI_COMPAT_API_KEY"`

	// EmbeddingModel overrides the default model identifier.
	EmbeddingModel string `env:"EMBEDDING_MODEL"`

	// EmbeddingDimension is the expected vector length. Zero means
	// discover from the provider's first response.
	EmbeddingDimension int `env:"EMBEDDING_DIMENSION"`

	// Chunker parameters.
	ChunkSize    int `env:"CHUNK_SIZE"`
	ChunkOverlap int `env:"CHUNK_OVERLAP"`

	// ExcludeCodeLanguages lists languages whose fenced markdown blocks
	// are stripped before chunking (CSV).
	ExcludeCodeLanguages []string `env:"EXCLUDE_CODE_LANGUAGES" envSeparator:","`

	// Search tuning.
	MinSimilarity     float64 `env:"MIN_SIMILARITY"`
	MaxResults        int     `env:"MAX_RESULTS"`
	MaxChunksPerQuery int     `env:"MAX_CHUNKS_PER_QUERY"`

	// Scanner glob lists (CSV).
	IncludePatterns []string `env:"INCLUDE_PATTERNS" envSeparator:","`
	ExcludePatterns []string `env:"EXCLUDE_PATTERNS" envSeparator:","`

	// ReportOutputDir, when set, is added as an implicit exclude so
	// generated reports are never indexed.
	ReportOutputDir string `env:"REPORT_OUTPUT_DIR"`

	// MaxSessionResults bounds the session result cache.
	MaxSessionResults int `env:"MAX_SESSION_RESULTS"`

	// ConsoleAddr is the listen address for the operator HTTP console.
	ConsoleAddr string `env:"CONSOLE_ADDR"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL"`
}

// DefaultIncludePatterns matches documentation and text sources.
var DefaultIncludePatterns = []string{
	"**/*.md", "**/*.markdown", "**/*.txt", "**/*.html", "**/*.htm", "**/*.json",
}

// DefaultExcludePatterns matches trees that are never worth indexing.
var DefaultExcludePatterns = []string{
	"**/node_modules/**", "**/.git/**", "**/vendor/**", "**/dist/**", "**/build/**",
}

// Load reads configuration from the environment, applying defaults.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	// Missing .env is the normal case; only real parse errors matter.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, semerrors.ConfigError("failed to parse environment", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values with defaults.
func (c *Config) applyDefaults() {
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = DefaultMinSimilarity
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.MaxSessionResults <= 0 {
		c.MaxSessionResults = DefaultMaxSessionSize
	}
	if c.ConsoleAddr == "" {
		c.ConsoleAddr = DefaultConsoleAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(c.IncludePatterns) == 0 {
		c.IncludePatterns = append([]string(nil), DefaultIncludePatterns...)
	}
	if len(c.ExcludePatterns) == 0 {
		c.ExcludePatterns = append([]string(nil), DefaultExcludePatterns...)
	}
	if c.ReportOutputDir != "" {
		dir := strings.Trim(strings.ReplaceAll(c.ReportOutputDir, "\\", "/"), "/")
		c.ExcludePatterns = append(c.ExcludePatterns, dir+"/**")
	}
}

// Validate checks that required settings are present and coherent.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return semerrors.New(semerrors.ErrCodeDatabaseURL,
			"DATABASE_URL is required", nil)
	}
	if _, err := c.SelectProvider(); err != nil {
		return err
	}
	if c.CompatBaseURL != "" && c.CompatAPIKey == "" {
		return semerrors.ConfigError(
			"OPENAI_COMPAT_BASE_URL is set but OPENAI_COMPAT_API_KEY is missing", nil)
	}
	return nil
}

// SelectProvider determines which embedding provider variant is configured.
func (c *Config) SelectProvider() (Provider, error) {
	switch {
	case c.CompatBaseURL != "":
		return ProviderCompatible, nil
	case c.OpenAIAPIKey != "":
		return ProviderOpenAI, nil
	case c.OllamaBaseURL != "":
		return ProviderOllama, nil
	default:
		return "", semerrors.New(semerrors.ErrCodeProviderSelection,
			"no embedding provider configured: set OPENAI_API_KEY, OLLAMA_BASE_URL, or OPENAI_COMPAT_BASE_URL",
			nil)
	}
}

// String renders a redacted summary for logging.
func (c *Config) String() string {
	provider, _ := c.SelectProvider()
	return fmt.Sprintf("provider=%s model=%s chunk_size=%d overlap=%d min_similarity=%.2f",
		provider, c.EmbeddingModel, c.ChunkSize, c.ChunkOverlap, c.MinSimilarity)
}
