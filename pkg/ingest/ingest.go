package ingest

import (
	"context"
	"fmt"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/internal/types"
	"github.com/mpuig/rentagpt/pkg/store"
)

type IndexerConfig struct {
	Dir            string // collection directory holding the marker
	Collection     string
	EmbeddingModel string
	BatchSize      int
	OnProgress     func(done, total int)
}

// Indexer populates the vector store from a document set exactly once.
// A collection whose manifest already exists is never rebuilt.
type Indexer struct {
	config   IndexerConfig
	store    types.VectorStore
	embedder types.Embedder
	chunker  types.Chunker
}

// Report summarizes one Build call.
type Report struct {
	Skipped     bool // collection was already built
	NewlySplit  int  // chunks produced by this run
	NewlyStored int  // chunks embedded and inserted by this run
}

func NewWithConfig(config IndexerConfig, st types.VectorStore, embedder types.Embedder, chunker types.Chunker) *Indexer {
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	return &Indexer{
		config:   config,
		store:    st,
		embedder: embedder,
		chunker:  chunker,
	}
}

// Build splits, embeds and indexes docs, then writes the completion
// marker. When the marker is already present the whole call is a
// no-op: no splitting, no embedding calls, no writes. Embedding
// failures abort the build before the marker is written, so a partial
// build is never mistaken for a complete one.
func (ix *Indexer) Build(ctx context.Context, docs []models.Document) (Report, error) {
	if store.IndexExists(ix.config.Dir) {
		return Report{Skipped: true}, nil
	}

	var chunks []models.Chunk
	for _, doc := range docs {
		split, err := ix.chunker.Split(doc)
		if err != nil {
			return Report{}, fmt.Errorf("failed to split %s: %w", doc.SourceURL, err)
		}
		chunks = append(chunks, split...)
	}

	report := Report{NewlySplit: len(chunks)}

	var dimensions int
	for start := 0; start < len(chunks); start += ix.config.BatchSize {
		end := start + ix.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return report, fmt.Errorf("embedding failed: %w", err)
		}
		if len(vectors) > 0 {
			dimensions = len(vectors[0])
		}

		if err := ix.store.Add(ctx, batch, vectors); err != nil {
			return report, fmt.Errorf("failed to insert chunks: %w", err)
		}

		report.NewlyStored = end
		if ix.config.OnProgress != nil {
			ix.config.OnProgress(end, len(chunks))
		}
	}

	if err := ix.store.Persist(); err != nil {
		return report, fmt.Errorf("failed to persist index: %w", err)
	}

	// Marker goes last: its presence means every chunk above is durable.
	err := store.WriteManifest(ix.config.Dir, store.Manifest{
		Collection:     ix.config.Collection,
		Dimensions:     dimensions,
		Chunks:         len(chunks),
		EmbeddingModel: ix.config.EmbeddingModel,
	})
	if err != nil {
		return report, fmt.Errorf("failed to write manifest: %w", err)
	}

	return report, nil
}
