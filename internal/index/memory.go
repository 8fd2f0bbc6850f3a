package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"quiz-rag/internal/chromemdb"
	"quiz-rag/internal/models"
)

// Memory keeps the index in a chromem-go collection.
type Memory struct {
	mu       sync.RWMutex
	store    *chromemdb.VectorDBManager
	embedder Embedder
}

var _ Index = (*Memory)(nil)

func NewMemory(embedder Embedder, collection, encryptionKey string) *Memory {
	return &Memory{
		store:    chromemdb.NewVectorDBManager(collection, encryptionKey),
		embedder: embedder,
	}
}

// Build embeds every chunk first, so a failed embedding leaves the previous
// contents in place.
func (m *Memory) Build(ctx context.Context, chunks []models.Chunk) error {
	started := time.Now()

	vectors, err := m.embedder.EmbedChunks(ctx, texts(chunks))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Reset(); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := m.store.AddChunks(ctx, chunks, vectors); err != nil {
		return err
	}

	log.Info().
		Int("chunks", len(chunks)).
		Dur("elapsed", time.Since(started)).
		Msg("Built in-memory index")
	return nil
}

func (m *Memory) Query(ctx context.Context, text string, k int) ([]models.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := checkQuery(k, m.store.Count()); err != nil {
		return nil, err
	}

	vector, err := m.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	chunks, similarities, err := m.store.QueryAll(ctx, vector)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]models.SearchResult, len(chunks))
	for i, c := range chunks {
		results[i] = models.SearchResult{Chunk: c, Distance: 1 - similarities[i]}
	}
	results = rank(results, k)

	log.Debug().Int("k", k).Int("returned", len(results)).Msg("Queried in-memory index")
	return results, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Count()
}

// Export writes a snapshot of the collection to path.
func (m *Memory) Export(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Export(path)
}

// Import replaces the contents with a snapshot written by Export.
func (m *Memory) Import(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Import(path)
}
