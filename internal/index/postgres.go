package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"quiz-rag/internal/db"
	"quiz-rag/internal/models"
)

// Postgres keeps the index in a pgvector table.
type Postgres struct {
	mu       sync.RWMutex
	db       *bun.DB
	embedder Embedder
	size     int
}

var _ Index = (*Postgres)(nil)

// NewPostgres prepares the table and picks up any chunks already stored.
func NewPostgres(ctx context.Context, bunDB *bun.DB, embedder Embedder) (*Postgres, error) {
	if err := db.InitDB(ctx, bunDB); err != nil {
		return nil, fmt.Errorf("init chunk table: %w", err)
	}
	size, err := db.CountChunks(ctx, bunDB)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return &Postgres{db: bunDB, embedder: embedder, size: size}, nil
}

func (p *Postgres) Build(ctx context.Context, chunks []models.Chunk) error {
	started := time.Now()

	vectors, err := p.embedder.EmbedChunks(ctx, texts(chunks))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := db.ReplaceChunks(ctx, p.db, chunks, vectors); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	p.size = len(chunks)

	log.Info().
		Int("chunks", len(chunks)).
		Dur("elapsed", time.Since(started)).
		Msg("Built postgres index")
	return nil
}

func (p *Postgres) Query(ctx context.Context, text string, k int) ([]models.SearchResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := checkQuery(k, p.size); err != nil {
		return nil, err
	}

	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	records, err := db.SearchChunks(ctx, p.db, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	results := make([]models.SearchResult, len(records))
	for i, r := range records {
		results[i] = models.SearchResult{Chunk: r.Chunk(), Distance: r.Distance}
	}
	return rank(results, k), nil
}

func (p *Postgres) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}
