// Package similarity holds the pure ranking helpers shared by retrieval and recommendation.
package similarity

import (
	"math"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// Cosine returns dot(a,b)/(|a||b|). It returns 0 when either vector has zero
// magnitude or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Dedupe drops every recommendation whose id already appeared earlier in the list.
func Dedupe(recs []models.Recommendation) []models.Recommendation {
	seen := make(map[string]struct{}, len(recs))
	out := make([]models.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// MergeByID combines search results from several queries, keeping the higher
// similarity for ids that appear more than once. Order follows first appearance.
func MergeByID(lists ...[]models.BoothSearchResult) []models.BoothSearchResult {
	index := make(map[string]int)
	var merged []models.BoothSearchResult
	for _, list := range lists {
		for _, r := range list {
			if i, ok := index[r.ID]; ok {
				if r.Similarity > merged[i].Similarity {
					merged[i] = r
				}
				continue
			}
			index[r.ID] = len(merged)
			merged = append(merged, r)
		}
	}
	return merged
}
