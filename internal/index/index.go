// Package index holds the semantic index over document chunks: an
// in-memory chromem collection by default, or a pgvector table.
package index

import (
	"context"
	"fmt"
	"sort"

	"quiz-rag/internal/models"
)

// Index stores embedded chunks and answers nearest-neighbour queries.
type Index interface {
	// Build replaces the index contents with chunks.
	Build(ctx context.Context, chunks []models.Chunk) error
	// Query returns the k chunks closest to text, nearest first.
	Query(ctx context.Context, text string, k int) ([]models.SearchResult, error)
	Len() int
}

// Embedder is the part of embedding.Service an index needs.
type Embedder interface {
	EmbedChunks(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

func checkQuery(k, size int) error {
	if size == 0 {
		return models.ErrEmptyIndex
	}
	if k < 1 || k > size {
		return fmt.Errorf("%w: k must be between 1 and %d, got %d", models.ErrInvalidRequest, size, k)
	}
	return nil
}

func texts(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// rank orders results by distance, then ordinal, and keeps the first k.
func rank(results []models.SearchResult, k int) []models.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Chunk.Ordinal < results[j].Chunk.Ordinal
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
