package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpuig/rentagpt/internal/models"
)

func result(id string, vector []float32) models.SearchResult {
	return models.SearchResult{
		Chunk:  models.Chunk{ID: id, SourceURL: "https://example.com/" + id},
		Vector: vector,
	}
}

func TestMaxMarginalRelevanceNeverExceedsK(t *testing.T) {
	query := []float32{1, 0}
	candidates := []models.SearchResult{
		result("a", []float32{1, 0}),
		result("b", []float32{0.9, 0.1}),
		result("c", []float32{0, 1}),
	}

	assert.Len(t, MaxMarginalRelevance(query, candidates, 2, 0.5), 2)
	assert.Len(t, MaxMarginalRelevance(query, candidates, 10, 0.5), 3)
	assert.Empty(t, MaxMarginalRelevance(query, candidates, 0, 0.5))
	assert.Empty(t, MaxMarginalRelevance(query, nil, 3, 0.5))
}

func TestMaxMarginalRelevancePrefersDiversity(t *testing.T) {
	query := []float32{1, 0.1}
	// Two near-duplicates of the query and one distant candidate.
	candidates := []models.SearchResult{
		result("dup1", []float32{1, 0.12}),
		result("dup2", []float32{1, 0.11}),
		result("other", []float32{0.6, -0.6}),
	}

	selected := MaxMarginalRelevance(query, candidates, 2, 0.5)
	require.Len(t, selected, 2)

	// dup2 is closest to the query and goes first; the remaining
	// duplicate scores lower than the diverse candidate.
	assert.Equal(t, "dup2", selected[0].ID)
	assert.Equal(t, "other", selected[1].ID)
}

func TestMaxMarginalRelevanceNegativeRedundancy(t *testing.T) {
	query := []float32{1, 0}
	// After the exact match is taken, both remaining candidates point
	// away from it. The one most anti-correlated with the pick earns
	// the larger diversity credit and must win, which only happens
	// when negative similarities are not floored at zero.
	candidates := []models.SearchResult{
		result("exact", []float32{1, 0}),
		result("far", []float32{-0.8, 0.6}),
		result("near", []float32{-0.2, 0.98}),
	}

	selected := MaxMarginalRelevance(query, candidates, 2, 0.3)
	require.Len(t, selected, 2)

	assert.Equal(t, "exact", selected[0].ID)
	assert.Equal(t, "far", selected[1].ID)
}

func TestMaxMarginalRelevanceSubsetOfCandidates(t *testing.T) {
	query := []float32{0.2, 0.7}
	candidates := []models.SearchResult{
		result("a", []float32{0.3, 0.6}),
		result("b", []float32{0.8, 0.1}),
		result("c", []float32{0.5, 0.5}),
	}

	ids := map[string]bool{"a": true, "b": true, "c": true}
	for _, selected := range MaxMarginalRelevance(query, candidates, 3, 0.7) {
		assert.True(t, ids[selected.ID])
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, CosineSimilarity(nil, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
