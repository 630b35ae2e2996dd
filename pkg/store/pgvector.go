package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/internal/types"
)

type PgConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PgStore keeps the index in Postgres with pgvector, for deployments
// that already run a database instead of the file-backed collection.
type PgStore struct {
	config PgConfig
	pool   *pgxpool.Pool
}

func NewPgStore(ctx context.Context, config PgConfig) (*PgStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PgStore{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PgStore) initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			content TEXT,
			embedding vector(%d)
		)`, s.config.TableName, s.config.VectorDim)

	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		s.config.TableName, s.config.TableName)

	if _, err := s.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (s *PgStore) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source_url, content, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		s.config.TableName)

	for i, chunk := range chunks {
		if _, err := tx.Exec(ctx, stmt,
			chunk.ID,
			chunk.SourceURL,
			chunk.Text,
			pgvector.NewVector(vectors[i]),
		); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *PgStore) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	stmt := fmt.Sprintf(`
		SELECT id, source_url, content, embedding, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, stmt, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var result models.SearchResult
		var embedding pgvector.Vector
		var distance float64

		if err := rows.Scan(
			&result.ID,
			&result.SourceURL,
			&result.Text,
			&embedding,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		result.Vector = embedding.Slice()
		result.Score = float32(1 - distance/2)
		results = append(results, result)
	}

	return results, rows.Err()
}

func (s *PgStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", s.config.TableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Persist is a no-op; Postgres writes are durable on commit.
func (s *PgStore) Persist() error {
	return nil
}

func (s *PgStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

var _ types.VectorStore = (*PgStore)(nil)
