package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpuig/rentagpt/internal/models"
)

func testChunks() ([]models.Chunk, [][]float32) {
	chunks := []models.Chunk{
		{ID: "c1", SourceURL: "https://a/b.html", Text: "campaña de la renta"},
		{ID: "c2", SourceURL: "https://a/c.html", Text: "deducciones autonómicas"},
		{ID: "c3", SourceURL: "https://a/d.html", Text: "plazos de presentación"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	return chunks, vectors
}

func TestFileStoreAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(FileConfig{Dir: t.TempDir(), VectorDim: 3})

	chunks, vectors := testChunks()
	require.NoError(t, s.Add(ctx, chunks, vectors))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := s.Search(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, "https://a/b.html", results[0].SourceURL)
	assert.NotEmpty(t, results[0].Vector)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFileStoreSearchEmpty(t *testing.T) {
	s := NewFileStore(FileConfig{Dir: t.TempDir(), VectorDim: 3})

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFileStoreDimensionMismatch(t *testing.T) {
	s := NewFileStore(FileConfig{Dir: t.TempDir(), VectorDim: 3})

	err := s.Add(context.Background(), []models.Chunk{{ID: "c1"}}, [][]float32{{1, 0}})
	assert.Error(t, err)
}

func TestFileStorePersistAndReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewFileStore(FileConfig{Dir: dir, VectorDim: 3})
	chunks, vectors := testChunks()
	require.NoError(t, s.Add(ctx, chunks, vectors))
	require.NoError(t, s.Persist())

	// Persist writes data files but not the completion marker.
	assert.False(t, IndexExists(dir))
	require.NoError(t, WriteManifest(dir, Manifest{Collection: "renta22", Dimensions: 3, Chunks: 3}))
	assert.True(t, IndexExists(dir))

	reopened, err := OpenFileStore(FileConfig{Dir: dir, VectorDim: 3})
	require.NoError(t, err)

	results, err := reopened.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ID)

	manifest, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "renta22", manifest.Collection)
	assert.Equal(t, 3, manifest.Chunks)
	assert.False(t, manifest.CreatedAt.IsZero())
}

func TestOpenFileStoreUnbuilt(t *testing.T) {
	_, err := OpenFileStore(FileConfig{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestRetrieverHonorsK(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(FileConfig{Dir: t.TempDir(), VectorDim: 3})

	chunks, vectors := testChunks()
	require.NoError(t, s.Add(ctx, chunks, vectors))

	r := NewRetriever(s, 10, 0.5)

	results, err := r.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Index holds only three chunks.
	results, err = r.Search(ctx, []float32{1, 0, 0}, 8)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	for _, result := range results {
		assert.Contains(t, []string{"c1", "c2", "c3"}, result.ID)
	}
}
