// Package classification assigns civic complaints to one of the fixed categories.
package classification

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ai_server/core/domain"
	"ai_server/core/port/out"
	"ai_server/core/service/common"
	"ai_server/core/service/keyword"
	"ai_server/pkg/logger"
)

const (
	// MaxSecondary is how many runner-up labels are considered.
	MaxSecondary = 3
	// SecondaryMinScore 이 점수를 넘어야 보조 카테고리로 포함
	SecondaryMinScore = 0.1
)

// Request is one complaint to classify.
type Request struct {
	Text     string `json:"text"`
	Title    string `json:"title"`
	Language string `json:"language"`
}

// Service classifies complaints with a zero-shot ranker and explains the
// result with the category keyword table.
type Service struct {
	ranker    *common.Lazy[out.ZeroShotRanker]
	modelName string
	keywords  map[domain.ComplaintCategory]*keyword.Matcher
}

// NewService creates a classifier. load is called on first use and retried
// after a failure.
func NewService(load func() (out.ZeroShotRanker, error), modelName string) *Service {
	keywords := make(map[domain.ComplaintCategory]*keyword.Matcher, len(domain.Categories))
	for _, c := range domain.Categories {
		keywords[c] = keyword.NewMatcher(domain.CategoryKeywords[c])
	}
	return &Service{
		ranker:    common.NewLazy(load),
		modelName: modelName,
		keywords:  keywords,
	}
}

// ModelName returns the ranker name, or the configured name before loading.
func (s *Service) ModelName() string {
	if s.ranker.Loaded() {
		if r, err := s.ranker.Get(); err == nil {
			return r.Name()
		}
	}
	return s.modelName
}

// Ready reports whether the ranker has been loaded.
func (s *Service) Ready() bool {
	return s.ranker.Loaded()
}

// Warmup loads the ranker eagerly.
func (s *Service) Warmup() error {
	_, err := s.ranker.Get()
	return err
}

// CombinedText is "{title}. {text}", or text alone when there is no title.
func CombinedText(title, text string) string {
	if title != "" {
		return title + ". " + text
	}
	return text
}

// Classify never fails: any ranker error or panic yields the Others fallback.
func (s *Service) Classify(ctx context.Context, req Request) (result *domain.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Fallback(fmt.Errorf("%v", r))
		}
	}()

	result, err := s.classify(ctx, req)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Classification error")
		return Fallback(err)
	}

	logger.WithContext(ctx).Debug("Classified issue: %s", result.PrimaryCategory)
	return result
}

// ClassifyBatch classifies every request independently.
func (s *Service) ClassifyBatch(ctx context.Context, reqs []Request) []*domain.ClassificationResult {
	results := make([]*domain.ClassificationResult, len(reqs))
	for i, req := range reqs {
		results[i] = s.Classify(ctx, req)
	}
	return results
}

func (s *Service) classify(ctx context.Context, req Request) (*domain.ClassificationResult, error) {
	text := CombinedText(req.Title, req.Text)
	if strings.TrimSpace(text) == "" {
		return nil, common.ErrEmptyInput
	}

	ranker, err := s.ranker.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	ranking, err := ranker.Rank(ctx, text, domain.Categories)
	if err != nil {
		return nil, err
	}
	if len(ranking) == 0 {
		return nil, fmt.Errorf("%w: %s returned no labels", common.ErrProviderError, ranker.Name())
	}

	ranking = sortRanking(ranking)
	primary := ranking[0]

	secondary := make([]domain.ComplaintCategory, 0, MaxSecondary)
	for i := 1; i < len(ranking) && i <= MaxSecondary; i++ {
		if ranking[i].Score > SecondaryMinScore {
			secondary = append(secondary, ranking[i].Label)
		}
	}

	return &domain.ClassificationResult{
		PrimaryCategory:     primary.Label,
		Confidence:          primary.Score,
		SecondaryCategories: secondary,
		Reasoning:           s.Reasoning(text, primary.Label, primary.Score),
	}, nil
}

// Reasoning explains a classification with the category keywords found in text.
func (s *Service) Reasoning(text string, category domain.ComplaintCategory, confidence float64) string {
	var keywordText string
	if m, ok := s.keywords[category]; ok {
		if matched := m.Matches(text); len(matched) > 0 {
			keywordText = " based on keywords: " + strings.Join(matched, ", ")
		}
	}
	return fmt.Sprintf("Classified as '%s' with %d%% confidence%s.", category, int(confidence*100), keywordText)
}

// Fallback is returned when classification fails.
func Fallback(err error) *domain.ClassificationResult {
	return &domain.ClassificationResult{
		PrimaryCategory:     domain.CategoryOthers,
		Confidence:          0.0,
		SecondaryCategories: []domain.ComplaintCategory{},
		Reasoning:           fmt.Sprintf("Classification failed: %v", err),
	}
}

// sortRanking orders labels by score, best first, keeping ranker order on ties.
func sortRanking(ranking []domain.LabelScore) []domain.LabelScore {
	sorted := make([]domain.LabelScore, len(ranking))
	copy(sorted, ranking)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}
