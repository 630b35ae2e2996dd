package store

import (
	"math"

	"github.com/mpuig/rentagpt/internal/models"
)

// MaxMarginalRelevance selects up to k results from candidates,
// repeatedly taking the one maximizing
//
//	lambda*sim(query, c) - (1-lambda)*max sim(c, selected)
//
// so raw relevance is traded against redundancy among the picks.
func MaxMarginalRelevance(query []float32, candidates []models.SearchResult, k int, lambda float32) []models.SearchResult {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float32, len(candidates))
	for i, candidate := range candidates {
		relevance[i] = CosineSimilarity(query, candidate.Vector)
	}

	selected := make([]models.SearchResult, 0, k)
	picked := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := float32(math.Inf(-1))

		for i, candidate := range candidates {
			if picked[i] {
				continue
			}

			score := lambda * relevance[i]
			if len(selected) > 0 {
				redundancy := float32(math.Inf(-1))
				for _, chosen := range selected {
					if sim := CosineSimilarity(candidate.Vector, chosen.Vector); sim > redundancy {
						redundancy = sim
					}
				}
				score -= (1 - lambda) * redundancy
			}
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		if best < 0 {
			break
		}
		picked[best] = true
		selected = append(selected, candidates[best])
	}

	return selected
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector is empty or zero.
func CosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
