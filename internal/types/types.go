package types

import (
	"context"

	"github.com/mpuig/rentagpt/internal/models"
)

// Core interfaces

// Embedder computes embedding vectors for texts.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore holds (chunk, vector) pairs and answers nearest-neighbor
// queries. Entries are never mutated after insertion.
type VectorStore interface {
	Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Persist() error
	Close() error
}

// Chunker splits a document into retrieval-sized chunks.
type Chunker interface {
	Split(doc models.Document) ([]models.Chunk, error)
}
