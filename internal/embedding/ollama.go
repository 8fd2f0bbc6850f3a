package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/tmc/langchaingo/embeddings"

	"quiz-rag/internal/config"
)

// NewOllamaEmbedder embeds through Ollama's batch /api/embed endpoint. An
// empty base URL falls back to OLLAMA_HOST.
func NewOllamaEmbedder(cfg *config.LLMConfig, batchSize int) (*embeddings.EmbedderImpl, error) {
	client, err := newOllamaClient(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	embed := func(ctx context.Context, texts []string) ([][]float32, error) {
		resp, err := client.Embed(ctx, &api.EmbedRequest{
			Model: model,
			Input: texts,
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embed: %w", err)
		}
		return resp.Embeddings, nil
	}

	return embeddings.NewEmbedder(embeddings.EmbedderClientFunc(embed),
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
}

func newOllamaClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	return api.NewClient(u, http.DefaultClient), nil
}
