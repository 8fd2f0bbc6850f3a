package embedding

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"quiz-rag/internal/config"
)

// NewEmbedder creates the embedder configured by cfg.Provider.
func NewEmbedder(cfg *config.LLMConfig, batchSize int) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg, batchSize)
	case "openai":
		return NewOpenAIEmbedder(cfg, batchSize)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewOpenAIEmbedder embeds through any OpenAI-compatible endpoint.
func NewOpenAIEmbedder(cfg *config.LLMConfig, batchSize int) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	return embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
}
