// Package embeddings turns text into fixed-dimension vectors. Catalog titles
// and content chunks share one embedder so both land in the same vector
// space, which course-name resolution depends on.
package embeddings

import (
	"context"
	"fmt"

	"coursechat/config"
)

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:      cfg.Embeddings.Provider,
		Model:         cfg.Embeddings.Model,
		Dimension:     cfg.Embeddings.Dimension,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
}

// checkDimension catches model/config drift before a wrongly sized vector
// reaches the index, where it would skew every later distance comparison.
func checkDimension(provider string, want, got int) error {
	if want > 0 && got != want {
		return fmt.Errorf("%s embedding dimension mismatch: expected %d, got %d", provider, want, got)
	}
	return nil
}
