package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"quiz-rag/internal/config"
	"quiz-rag/internal/db"
	"quiz-rag/internal/embedding"
	"quiz-rag/internal/index"
	"quiz-rag/internal/llmservice"
)

// Setup wires a session from cfg: embedder, index backend and generation
// client. The returned cleanup releases the database pool, if any.
func Setup(ctx context.Context, cfg *config.Config) (*RAG, func(), error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, cfg.RAG.EmbedBatchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("init embedder: %w", err)
	}
	svc := embedding.NewService(embedder,
		embedding.WithBatchSize(cfg.RAG.EmbedBatchSize),
		embedding.WithConcurrency(cfg.RAG.EmbedConcurrency),
		embedding.WithDimensions(cfg.EmbedLLM.Dimensions),
	)

	idx, cleanup, err := newIndex(ctx, cfg, svc)
	if err != nil {
		return nil, nil, err
	}

	llm, err := llmservice.NewClient(&cfg.LLM)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init llm: %w", err)
	}

	log.Debug().
		Str("backend", cfg.RAG.Backend).
		Str("embed_provider", cfg.EmbedLLM.Provider).
		Str("llm_provider", cfg.LLM.Provider).
		Msg("Session ready")
	return NewRAG(idx, llm, &cfg.RAG), cleanup, nil
}

func newIndex(ctx context.Context, cfg *config.Config, svc *embedding.Service) (index.Index, func(), error) {
	switch cfg.RAG.Backend {
	case "postgres":
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		idx, err := index.NewPostgres(ctx, bunDB, svc)
		if err != nil {
			_ = bunDB.Close()
			return nil, nil, err
		}
		return idx, func() {
			if err := bunDB.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing database")
			}
		}, nil
	default:
		return index.NewMemory(svc, cfg.RAG.Collection, cfg.RAG.EncryptionKey), func() {}, nil
	}
}
