package in

import (
	"context"

	"ai_server/core/domain"
	"ai_server/core/service/analysis"
	"ai_server/core/service/classification"
	"ai_server/core/service/clustering"
)

// Classifier assigns a primary category to complaint text. It never fails:
// errors come back as the Others fallback result.
type Classifier interface {
	Classify(ctx context.Context, req classification.Request) *domain.ClassificationResult
	ClassifyBatch(ctx context.Context, reqs []classification.Request) []*domain.ClassificationResult
}

// Prioritizer scores complaints and attaches the SLA deadline.
type Prioritizer interface {
	Calculate(in domain.PriorityInput) *domain.PriorityResult
	CalculateBatch(inputs []domain.PriorityInput) []*domain.PriorityResult
}

type EmbeddingService interface {
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	ClusterEmbeddings(ctx context.Context, embeddings [][]float32, threshold float64) (*clustering.ClusterResult, error)
	ModelInfo() clustering.ModelInfo
	DefaultThreshold() float64
}

type SentimentAnalyzer interface {
	AnalyzeBatch(ctx context.Context, texts []string) []*domain.SentimentResult
}

// Analyzer runs every stage for one complaint (sync API and stream worker).
type Analyzer interface {
	Analyze(ctx context.Context, c *domain.Complaint, opts analysis.Options) *domain.AnalysisResult
}
