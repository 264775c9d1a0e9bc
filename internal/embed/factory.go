package embed

import (
	"github.com/semdex/semdex/internal/config"
)

// New creates the embedder selected by the configuration. Selection order
// follows config.SelectProvider: compatible endpoint, hosted key, local
// runtime.
func New(cfg *config.Config) (Embedder, error) {
	provider, err := cfg.SelectProvider()
	if err != nil {
		return nil, err
	}

	switch provider {
	case config.ProviderCompatible:
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.CompatBaseURL,
			APIKey:     cfg.CompatAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimension,
		})
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimension,
		})
	default:
		return NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.OllamaBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimension,
		})
	}
}
