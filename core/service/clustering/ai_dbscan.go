// Package clustering groups complaint embeddings and ranks them by similarity.
package clustering

import (
	"fmt"
	"math"

	"ai_server/core/domain"
	"ai_server/core/service/common"
)

// DefaultThreshold is the similarity used when a request does not carry one.
const DefaultThreshold = 0.75

// Cluster groups embeddings with DBSCAN (min_samples = 1) over the Euclidean
// distance, eps = 1 - threshold. With every point a core point this is
// transitive single-linkage: two points share a cluster when a chain of
// neighbours within eps connects them.
//
// Clusters are numbered by their lowest member index; members are ascending.
func Cluster(embeddings [][]float32, threshold float64) ([]domain.Cluster, error) {
	if math.IsNaN(threshold) || threshold > 1 {
		return nil, fmt.Errorf("%w: similarity threshold must be <= 1, got %v", common.ErrInvalidInput, threshold)
	}
	if len(embeddings) == 0 {
		return []domain.Cluster{}, nil
	}
	if err := checkDimensions(embeddings); err != nil {
		return nil, err
	}

	eps := 1 - threshold
	n := len(embeddings)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	next := 0
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if labels[i] != -1 {
			continue
		}
		labels[i] = next
		queue = append(queue[:0], i)

		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			for q := 0; q < n; q++ {
				if labels[q] != -1 {
					continue
				}
				if euclidean(embeddings[p], embeddings[q]) <= eps {
					labels[q] = next
					queue = append(queue, q)
				}
			}
		}
		next++
	}

	clusters := make([]domain.Cluster, next)
	for i := range clusters {
		clusters[i] = domain.Cluster{ClusterID: i, Members: []int{}}
	}
	for idx, label := range labels {
		clusters[label].Members = append(clusters[label].Members, idx)
	}
	for i := range clusters {
		clusters[i].Size = len(clusters[i].Members)
		clusters[i].Quality = 0
	}
	return clusters, nil
}

func checkDimensions(embeddings [][]float32) error {
	dim := len(embeddings[0])
	if dim == 0 {
		return fmt.Errorf("%w: embedding 0 is empty", common.ErrInvalidInput)
	}
	for i, e := range embeddings {
		if len(e) != dim {
			return fmt.Errorf("%w: embedding %d has %d values, expected %d", common.ErrDimensionMismatch, i, len(e), dim)
		}
	}
	return nil
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
