package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/pkg/processor"
	"github.com/mpuig/rentagpt/pkg/store"
)

// countingEmbedder returns a constant vector and counts calls, so the
// tests can assert the second build performs zero embedding work.
type countingEmbedder struct {
	calls int
	texts int
	fail  bool
}

func (e *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.texts += len(texts)
	if e.fail {
		return nil, errors.New("embedding service unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return vectors, nil
}

func (e *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(text)), 1, 0}, nil
}

func testDocs() []models.Document {
	return []models.Document{
		{SourceURL: "https://a/b.html", Text: "La campaña de la renta comienza en abril."},
		{SourceURL: "https://a/c.html", Text: "El plazo de presentación termina en junio."},
	}
}

func newTestIndexer(dir string, embedder *countingEmbedder) (*Indexer, *store.FileStore) {
	st := store.NewFileStore(store.FileConfig{Dir: dir, VectorDim: 3})
	chunker := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: 20})
	ix := NewWithConfig(IndexerConfig{
		Dir:        dir,
		Collection: "renta22",
		BatchSize:  10,
	}, st, embedder, &chunker)
	return ix, st
}

func TestBuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	embedder := &countingEmbedder{}

	ix, st := newTestIndexer(dir, embedder)

	report, err := ix.Build(ctx, testDocs())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 2, report.NewlySplit)
	assert.Equal(t, 2, report.NewlyStored)
	assert.True(t, store.IndexExists(dir))

	firstRunCalls := embedder.calls
	require.Greater(t, firstRunCalls, 0)

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Second run: complete no-op, zero embedding calls.
	report, err = ix.Build(ctx, testDocs())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.NewlySplit)
	assert.Equal(t, firstRunCalls, embedder.calls)
}

func TestBuildAbortsOnEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	embedder := &countingEmbedder{fail: true}

	ix, _ := newTestIndexer(dir, embedder)

	_, err := ix.Build(ctx, testDocs())
	require.Error(t, err)

	// No marker: the collection is not mistaken for complete.
	assert.False(t, store.IndexExists(dir))
}

func TestBuildWritesManifest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ix, _ := newTestIndexer(dir, &countingEmbedder{})

	_, err := ix.Build(ctx, testDocs())
	require.NoError(t, err)

	manifest, err := store.ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "renta22", manifest.Collection)
	assert.Equal(t, 3, manifest.Dimensions)
	assert.Equal(t, 2, manifest.Chunks)
}

func TestDocumentCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.json")

	docs, ok, err := LoadDocumentCache(path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, docs)

	require.NoError(t, SaveDocumentCache(path, testDocs()))

	docs, ok, err = LoadDocumentCache(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testDocs(), docs)
}
