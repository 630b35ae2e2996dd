package store

import (
	"context"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/internal/types"
)

// Retriever runs diversity-aware top-k search: it over-fetches FetchK
// nearest candidates from the store and re-ranks them with maximal
// marginal relevance.
type Retriever struct {
	store  types.VectorStore
	fetchK int
	lambda float32
}

func NewRetriever(store types.VectorStore, fetchK int, lambda float32) *Retriever {
	if fetchK <= 0 {
		fetchK = 20
	}
	if lambda <= 0 || lambda > 1 {
		lambda = 0.5
	}
	return &Retriever{
		store:  store,
		fetchK: fetchK,
		lambda: lambda,
	}
}

// Search returns at most k chunks; fewer only when the index holds
// fewer than k.
func (r *Retriever) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	fetchK := r.fetchK
	if fetchK < k {
		fetchK = k
	}

	candidates, err := r.store.Search(ctx, query, fetchK)
	if err != nil {
		return nil, err
	}

	return MaxMarginalRelevance(query, candidates, k, r.lambda), nil
}
