package classification

import (
	"context"

	"ai_server/core/domain"
	"ai_server/core/service/keyword"
)

const (
	keywordSmoothing = 0.1
	othersPrior      = 0.5
)

// KeywordRanker is the offline zero-shot ranker: each category is weighted
// by its keyword hits, Others carries a prior, and the weights are
// normalized to sum to 1.
type KeywordRanker struct {
	matchers map[domain.ComplaintCategory]*keyword.Matcher
}

// NewKeywordRanker builds matchers over the category keyword table.
func NewKeywordRanker() *KeywordRanker {
	matchers := make(map[domain.ComplaintCategory]*keyword.Matcher, len(domain.Categories))
	for _, c := range domain.Categories {
		matchers[c] = keyword.NewMatcher(domain.CategoryKeywords[c])
	}
	return &KeywordRanker{matchers: matchers}
}

// Name returns the ranker name.
func (r *KeywordRanker) Name() string {
	return "keyword-ranker"
}

// Rank scores every label. Labels without a keyword list only get smoothing.
func (r *KeywordRanker) Rank(_ context.Context, text string, labels []domain.ComplaintCategory) ([]domain.LabelScore, error) {
	weights := make([]float64, len(labels))
	var total float64

	for i, label := range labels {
		w := keywordSmoothing
		if m, ok := r.matchers[label]; ok {
			w += float64(m.Count(text))
		}
		if label == domain.CategoryOthers {
			w += othersPrior
		}
		weights[i] = w
		total += w
	}

	ranking := make([]domain.LabelScore, len(labels))
	for i, label := range labels {
		ranking[i] = domain.LabelScore{Label: label, Score: weights[i] / total}
	}
	return sortRanking(ranking), nil
}
