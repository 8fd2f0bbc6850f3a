package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"quiz-rag/internal/models"
)

const (
	compress = false

	metaOrdinal = "ordinal"
	metaStart   = "start"
)

// errNoEmbeddingFunc is returned if chromem ever tries to embed on its own.
// Every document and query arrives with its vector already computed.
var errNoEmbeddingFunc = errors.New("chromemdb: vectors must be supplied by the caller")

// VectorDBManager owns one in-memory chromem collection of chunks.
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	encryptionKey  string
}

// NewVectorDBManager initializes an empty in-memory database.
func NewVectorDBManager(collectionName, encryptionKey string) *VectorDBManager {
	return &VectorDBManager{
		db:             chromem.NewDB(),
		collectionName: collectionName,
		encryptionKey:  encryptionKey,
	}
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// Reset drops the collection and creates a fresh, empty one.
func (m *VectorDBManager) Reset() error {
	if m.collection != nil {
		if err := m.db.DeleteCollection(m.collectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %v", err)
		}
		m.collection = nil
	}
	c, err := m.db.CreateCollection(m.collectionName, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("failed to create collection: %v", err)
	}
	m.collection = c
	return nil
}

// AddChunks stores chunks with their precomputed vectors. The slices are
// paired by position.
func (m *VectorDBManager) AddChunks(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      strconv.Itoa(c.Ordinal),
			Content: c.Text,
			Metadata: map[string]string{
				metaOrdinal: strconv.Itoa(c.Ordinal),
				metaStart:   strconv.Itoa(c.Start),
			},
			Embedding: vectors[i],
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// QueryAll ranks every stored chunk against the query vector, most similar
// first. Similarity is chromem's cosine similarity.
func (m *VectorDBManager) QueryAll(ctx context.Context, query []float32) ([]models.Chunk, []float32, error) {
	n := m.Count()
	if n == 0 {
		return nil, nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	chunks := make([]models.Chunk, len(results))
	similarities := make([]float32, len(results))
	for i, r := range results {
		c, err := toChunk(r.Metadata, r.Content)
		if err != nil {
			return nil, nil, fmt.Errorf("document %s: %w", r.ID, err)
		}
		chunks[i] = c
		similarities[i] = r.Similarity
	}
	return chunks, similarities, nil
}

func toChunk(meta map[string]string, content string) (models.Chunk, error) {
	ordinal, err := strconv.Atoi(meta[metaOrdinal])
	if err != nil {
		return models.Chunk{}, fmt.Errorf("bad ordinal metadata: %v", err)
	}
	start, err := strconv.Atoi(meta[metaStart])
	if err != nil {
		return models.Chunk{}, fmt.Errorf("bad start metadata: %v", err)
	}
	return models.Chunk{Ordinal: ordinal, Start: start, Text: content}, nil
}

// Export writes the collection to filePath as a gob snapshot, encrypted
// when the manager has a key.
func (m *VectorDBManager) Export(filePath string) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if filePath == "" {
		return fmt.Errorf("file path is required")
	}

	log.Debug().
		Str("collection", m.collectionName).
		Str("file", filePath).
		Bool("encrypted", m.encryptionKey != "").
		Msg("Exporting collection")

	if err := m.db.ExportToFile(filePath, compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

// Import replaces the collection with the one stored at filePath.
func (m *VectorDBManager) Import(filePath string) error {
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}
	c := m.db.GetCollection(m.collectionName, noEmbedding)
	if c == nil {
		return fmt.Errorf("snapshot %s has no collection %q", filePath, m.collectionName)
	}
	m.collection = c
	return nil
}
