package clustering

import (
	"math"

	"ai_server/core/domain"
)

// Quality summarizes a clustering. Every field is zero when there are no clusters.
func Quality(clusters []domain.Cluster) domain.ClusterQuality {
	if len(clusters) == 0 {
		return domain.ClusterQuality{}
	}

	var issues, merged int
	for _, c := range clusters {
		issues += c.Size
		if c.Size > 1 {
			merged++
		}
	}

	q := domain.ClusterQuality{
		TotalClusters: len(clusters),
		TotalIssues:   issues,
		TotalMerged:   merged,
	}
	if issues > 0 {
		q.AvgClusterSize = round2(float64(issues) / float64(len(clusters)))
	}
	q.MergeRate = round2(float64(merged) / float64(len(clusters)) * 100)
	return q
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
