package out

import (
	"context"

	"ai_server/core/domain"
)

// ZeroShotRanker 고정 라벨 집합에 대한 zero-shot 순위 모델
type ZeroShotRanker interface {
	// Rank returns every label with a score, highest first.
	Rank(ctx context.Context, text string, labels []domain.ComplaintCategory) ([]domain.LabelScore, error)
	Name() string
}

// SentimentPrediction is the raw output of an external sentiment model.
type SentimentPrediction struct {
	Label string  // POSITIVE or NEGATIVE
	Score float64 // model confidence in [0,1]
}

// SentimentModel 외부 감성 분류 모델
type SentimentModel interface {
	Predict(ctx context.Context, text string) (*SentimentPrediction, error)
	Name() string
}

// EmbeddingModel 텍스트 임베딩 모델
type EmbeddingModel interface {
	// Embed returns one vector per text, order-preserving.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
	Close() error
}

// EmbeddingStore caches embeddings by text.
type EmbeddingStore interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Set(ctx context.Context, text string, embedding []float32)
}

// CacheStats is reported by stores that track hit rates.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

// StatsReporter is implemented by stores that expose CacheStats.
type StatsReporter interface {
	Stats() CacheStats
}
