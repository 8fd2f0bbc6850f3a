package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"quiz-rag/internal/config"
	"quiz-rag/internal/models"
)

// ChunkRecord is one indexed chunk. Distance is only filled by searches.
type ChunkRecord struct {
	bun.BaseModel `bun:"table:quiz_chunks,alias:c"`
	Ordinal       int             `bun:"ordinal,pk"`
	Start         int             `bun:"start_offset,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Distance      float32         `bun:"distance,scanonly"`
}

func (r ChunkRecord) Chunk() models.Chunk {
	return models.Chunk{Ordinal: r.Ordinal, Start: r.Start, Text: r.Content}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a pool with the configured driver: bun's pgdriver, lib/pq
// ("postgres") or pgx.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "", "pgdriver":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case "postgres", "pgx":
		return sql.Open(cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// InitDB makes sure the vector extension and chunk table exist.
func InitDB(ctx context.Context, db bun.IDB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	_, err := db.NewCreateTable().Model((*ChunkRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

// ReplaceChunks swaps the whole table contents in one transaction.
func ReplaceChunks(ctx context.Context, db *bun.DB, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := DropChunks(ctx, tx); err != nil {
			return err
		}
		if err := InitDB(ctx, tx); err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		records := make([]ChunkRecord, len(chunks))
		for i, c := range chunks {
			records[i] = ChunkRecord{
				Ordinal:   c.Ordinal,
				Start:     c.Start,
				Content:   c.Text,
				Embedding: pgvector.NewVector(vectors[i]),
			}
		}
		_, err := tx.NewInsert().Model(&records).Exec(ctx)
		return err
	})
}

// CountChunks returns the number of stored chunks.
func CountChunks(ctx context.Context, db bun.IDB) (int, error) {
	return db.NewSelect().Model((*ChunkRecord)(nil)).Count(ctx)
}

// SearchChunks returns the limit nearest chunks by cosine distance, ties
// broken by ordinal.
func SearchChunks(ctx context.Context, db bun.IDB, query []float32, limit int) ([]ChunkRecord, error) {
	var records []ChunkRecord
	err := db.NewSelect().
		Model(&records).
		Column("ordinal", "start_offset", "content").
		ColumnExpr("embedding <=> ? AS distance", pgvector.NewVector(query)).
		OrderExpr("distance ASC, ordinal ASC").
		Limit(limit).
		Scan(ctx)
	return records, err
}

func DropChunks(ctx context.Context, db bun.IDB) error {
	_, err := db.NewDropTable().Model((*ChunkRecord)(nil)).IfExists().Exec(ctx)
	return err
}
