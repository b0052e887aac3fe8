package clustering

import (
	"fmt"
	"math"
	"sort"

	"ai_server/core/domain"
	"ai_server/core/service/common"
)

const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.6

	cosineEpsilon = 1e-10
)

// CosineSimilarity returns dot(a,b) / (|a||b| + 1e-10). Zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + cosineEpsilon)
}

// FindSimilar ranks candidates by cosine similarity to query and returns at
// most topK entries scoring at least minSimilarity, best first. Equal
// similarities keep candidate order.
func FindSimilar(query []float32, candidates [][]float32, topK int, minSimilarity float64) ([]domain.SimilarIssue, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", common.ErrInvalidInput)
	}
	for i, c := range candidates {
		if len(c) != len(query) {
			return nil, fmt.Errorf("%w: candidate %d has %d values, expected %d", common.ErrDimensionMismatch, i, len(c), len(query))
		}
	}

	results := make([]domain.SimilarIssue, 0, len(candidates))
	for i, c := range candidates {
		sim := CosineSimilarity(query, c)
		if sim >= minSimilarity {
			results = append(results, domain.SimilarIssue{IssueIndex: i, Similarity: sim})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topK < 0 {
		topK = 0
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
