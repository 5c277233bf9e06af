package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type openAIEmbedder struct {
	client *openai.Client
	opts   Options
}

func NewOpenAIEmbedder(opts Options) Embedder {
	cfg := openai.DefaultConfig(opts.OpenAIAPIKey)
	if opts.OpenAIBaseURL != "" {
		cfg.BaseURL = opts.OpenAIBaseURL
	}
	return &openAIEmbedder{client: openai.NewClientWithConfig(cfg), opts: opts}
}

// Embed sends the whole batch in one request. The configured dimension rides
// along so models that support shortening return vectors already sized for
// the index; the response is checked against it either way.
func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.opts.Model),
		Input: texts,
	}
	if e.opts.Dimension > 0 {
		req.Dimensions = e.opts.Dimension
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// The API carries an index per datum; order by it rather than trusting
	// response order.
	vectors := make([][]float32, len(texts))
	for _, datum := range resp.Data {
		if datum.Index < 0 || datum.Index >= len(vectors) {
			return nil, fmt.Errorf("openai embedding index %d out of range", datum.Index)
		}
		if err := checkDimension("openai", e.opts.Dimension, len(datum.Embedding)); err != nil {
			return nil, err
		}
		vectors[datum.Index] = datum.Embedding
	}
	return vectors, nil
}

var _ Embedder = (*openAIEmbedder)(nil)
