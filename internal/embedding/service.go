package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/sync/errgroup"

	"quiz-rag/internal/models"
)

// Service checks every vector an embedder returns before it reaches the
// index. All failures wrap models.ErrEmbeddingService.
type Service struct {
	embedder    embeddings.Embedder
	batchSize   int
	concurrency int

	mu         sync.Mutex
	dimensions int
}

type Option func(*Service)

// WithBatchSize sets how many texts are sent per embedder call.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of batches in flight.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDimensions pins the expected vector length. Without it the length is
// learned from the first response.
func WithDimensions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dimensions = n
		}
	}
}

func NewService(embedder embeddings.Embedder, opts ...Option) *Service {
	s := &Service{
		embedder:    embedder,
		batchSize:   16,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dimensions returns the vector length seen so far, or 0 before the first call.
func (s *Service) Dimensions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimensions
}

// EmbedChunks returns one vector per text, in input order.
func (s *Service) EmbedChunks(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	started := time.Now()
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for offset := 0; offset < len(texts); offset += s.batchSize {
		end := min(offset+s.batchSize, len(texts))
		batch := texts[offset:end]
		g.Go(func() error {
			got, err := s.embedder.EmbedDocuments(gctx, batch)
			if err != nil {
				return fmt.Errorf("%w: batch at %d: %v", models.ErrEmbeddingService, offset, err)
			}
			if len(got) != len(batch) {
				return fmt.Errorf("%w: batch at %d: got %d vectors for %d texts",
					models.ErrEmbeddingService, offset, len(got), len(batch))
			}
			for i, v := range got {
				if err := s.check(v); err != nil {
					return fmt.Errorf("%w: text %d: %v", models.ErrEmbeddingService, offset+i, err)
				}
			}
			copy(vectors[offset:end], got)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("texts", len(texts)).
		Int("dimensions", s.Dimensions()).
		Dur("elapsed", time.Since(started)).
		Msg("Embedded chunks")
	return vectors, nil
}

// EmbedQuery embeds a single retrieval query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	got, err := s.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", models.ErrEmbeddingService, err)
	}
	if len(got) != 1 {
		return nil, fmt.Errorf("%w: query: got %d vectors", models.ErrEmbeddingService, len(got))
	}
	if err := s.check(got[0]); err != nil {
		return nil, fmt.Errorf("%w: query: %v", models.ErrEmbeddingService, err)
	}
	return got[0], nil
}

func (s *Service) check(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector")
	}

	var norm float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite component")
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("zero vector")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions == 0 {
		s.dimensions = len(v)
	}
	if len(v) != s.dimensions {
		return fmt.Errorf("dimension %d, expected %d", len(v), s.dimensions)
	}
	return nil
}
