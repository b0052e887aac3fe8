package clustering

import (
	"context"
	"fmt"
	"time"

	"ai_server/core/domain"
	"ai_server/core/port/out"
	"ai_server/core/service/common"
	"ai_server/pkg/logger"
)

// ModelInfo describes the embedding model for API responses.
type ModelInfo struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	Type      string `json:"type"`
}

// Service computes embeddings and clusters complaints.
type Service struct {
	model     *common.Lazy[out.EmbeddingModel]
	store     out.EmbeddingStore
	modelName string
	threshold float64
}

// Config for the clustering service.
type Config struct {
	ModelName string  // reported before the model is loaded
	Threshold float64 // default similarity threshold
}

// NewService creates a clustering service. load is called on the first
// embedding request; store may be nil.
func NewService(load func() (out.EmbeddingModel, error), store out.EmbeddingStore, cfg Config) *Service {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Service{
		model:     common.NewLazy(load),
		store:     store,
		modelName: cfg.ModelName,
		threshold: cfg.Threshold,
	}
}

// DefaultThreshold returns the configured similarity threshold.
func (s *Service) DefaultThreshold() float64 {
	return s.threshold
}

// ModelInfo returns the embedding model description.
func (s *Service) ModelInfo() ModelInfo {
	name := s.modelName
	if s.model.Loaded() {
		if m, err := s.model.Get(); err == nil {
			name = m.Name()
		}
	}
	return ModelInfo{Model: name, Dimension: domain.EmbeddingDimension, Type: "semantic"}
}

// Ready reports whether the embedding model has been loaded.
func (s *Service) Ready() bool {
	return s.model.Loaded()
}

// Warmup loads the model eagerly.
func (s *Service) Warmup() error {
	_, err := s.model.Get()
	return err
}

// Close releases the model if it was loaded.
func (s *Service) Close() error {
	if !s.model.Loaded() {
		return nil
	}
	m, err := s.model.Get()
	if err != nil {
		return err
	}
	return m.Close()
}

// GetEmbeddings returns one vector per text, in input order. Cached texts
// are served from the store; the rest are embedded in a single model call.
func (s *Service) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if s.store != nil {
			if emb, ok := s.store.Get(ctx, text); ok {
				results[i] = emb
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	model, err := s.model.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	start := time.Now()
	embeddings, err := model.Embed(ctx, missTexts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Embedding error")
		return nil, err
	}
	if len(embeddings) != len(missTexts) {
		return nil, fmt.Errorf("%w: model returned %d embeddings for %d texts", common.ErrProviderError, len(embeddings), len(missTexts))
	}

	for j, idx := range missIdx {
		results[idx] = embeddings[j]
		if s.store != nil {
			s.store.Set(ctx, missTexts[j], embeddings[j])
		}
	}

	logger.WithContext(ctx).WithDuration(time.Since(start)).
		Debug("embedded %d texts (%d cached)", len(missTexts), len(texts)-len(missTexts))
	return results, nil
}

// ClusterResult is a clustering run with its quality summary.
type ClusterResult struct {
	Clusters     []domain.Cluster      `json:"clusters"`
	Quality      domain.ClusterQuality `json:"cluster_quality"`
	TotalIssues  int                   `json:"total_issues"`
	ClusterCount int                   `json:"cluster_count"`
}

// ClusterEmbeddings groups precomputed embeddings.
func (s *Service) ClusterEmbeddings(ctx context.Context, embeddings [][]float32, threshold float64) (*ClusterResult, error) {
	clusters, err := Cluster(embeddings, threshold)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Clustering error")
		return nil, err
	}

	logger.WithContext(ctx).Info("Created %d clusters from %d issues", len(clusters), len(embeddings))
	return &ClusterResult{
		Clusters:     clusters,
		Quality:      Quality(clusters),
		TotalIssues:  len(embeddings),
		ClusterCount: len(clusters),
	}, nil
}

// ClusterTexts embeds texts and groups them.
func (s *Service) ClusterTexts(ctx context.Context, texts []string, threshold float64) (*ClusterResult, error) {
	embeddings, err := s.GetEmbeddings(ctx, texts)
	if err != nil {
		return nil, err
	}
	return s.ClusterEmbeddings(ctx, embeddings, threshold)
}
