// Package sentiment scores citizen sentiment with keyword lists and an
// optional external model.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"ai_server/core/domain"
	"ai_server/core/port/out"
	"ai_server/core/service/keyword"
	"ai_server/pkg/logger"
)

const (
	PositiveThreshold = 0.3
	NegativeThreshold = -0.3

	// DefaultConfidence is reported for every non-empty text.
	DefaultConfidence = 0.7
	MaxKeywords       = 5
	// MaxModelInput 외부 모델 입력 길이 제한 (문자 수)
	MaxModelInput = 512
)

var (
	positiveWords = []string{
		"good", "excellent", "great", "satisfied", "happy", "thanks", "appreciate",
		"wonderful", "perfect", "amazing", "fantastic", "awesome", "brilliant",
		"pleased", "delighted", "impressed", "grateful", "helpful", "quick",
	}
	// "useless" appears twice and counts twice.
	negativeWords = []string{
		"bad", "poor", "disappointed", "unhappy", "terrible", "waste", "useless",
		"frustrated", "annoyed", "angry", "upset", "slow", "broken", "fail",
		"horrible", "disgusting", "useless", "pathetic", "shameful",
	}
	neutralWords = []string{
		"okay", "normal", "average", "standard", "adequate", "acceptable",
	}
)

// Service analyzes sentiment. model may be nil.
type Service struct {
	positive *keyword.Matcher
	negative *keyword.Matcher
	neutral  *keyword.Matcher
	model    out.SentimentModel
}

// NewService creates a sentiment scorer.
func NewService(model out.SentimentModel) *Service {
	return &Service{
		positive: keyword.NewMatcher(positiveWords),
		negative: keyword.NewMatcher(negativeWords),
		neutral:  keyword.NewMatcher(neutralWords),
		model:    model,
	}
}

// ModelName returns the external model name, or "keywords" without one.
func (s *Service) ModelName() string {
	if s.model == nil {
		return "keywords"
	}
	return s.model.Name()
}

// LabelForScore maps a score in [-1,1] to a label.
func LabelForScore(score float64) domain.SentimentLabel {
	switch {
	case score > PositiveThreshold:
		return domain.SentimentPositive
	case score < NegativeThreshold:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// Neutral is the result for empty input and internal failures.
func Neutral() *domain.SentimentResult {
	return &domain.SentimentResult{
		Sentiment:  domain.SentimentNeutral,
		Score:      0.0,
		Confidence: 0.0,
		Keywords:   []string{},
	}
}

// Analyze scores one text. It never fails.
func (s *Service) Analyze(ctx context.Context, text string) (result *domain.SentimentResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithContext(ctx).Error("Sentiment analysis error: %v", r)
			result = Neutral()
		}
	}()

	if strings.TrimSpace(text) == "" {
		return Neutral()
	}

	score := s.KeywordScore(text)

	if s.model != nil {
		if modelScore, err := s.modelScore(ctx, text); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("sentiment model failed, using keyword score")
		} else {
			score = (score + modelScore) / 2
		}
	}

	return &domain.SentimentResult{
		Sentiment:  LabelForScore(score),
		Score:      round3(score),
		Confidence: DefaultConfidence,
		Keywords:   s.Keywords(text),
	}
}

// AnalyzeBatch scores every text independently.
func (s *Service) AnalyzeBatch(ctx context.Context, texts []string) []*domain.SentimentResult {
	results := make([]*domain.SentimentResult, len(texts))
	for i, text := range texts {
		results[i] = s.Analyze(ctx, text)
	}
	return results
}

// KeywordScore is (pos - neg) / (pos + neg + neutral), 0 with no matches.
func (s *Service) KeywordScore(text string) float64 {
	pos := s.positive.Count(text)
	neg := s.negative.Count(text)
	neu := s.neutral.Count(text)

	total := pos + neg + neu
	if total == 0 {
		return 0.0
	}
	return float64(pos-neg) / float64(total)
}

// Keywords lists +positive then -negative hits, at most MaxKeywords.
func (s *Service) Keywords(text string) []string {
	found := make([]string, 0, MaxKeywords)
	for _, w := range s.positive.Matches(text) {
		found = append(found, "+"+w)
	}
	for _, w := range s.negative.Matches(text) {
		found = append(found, "-"+w)
	}
	if len(found) > MaxKeywords {
		found = found[:MaxKeywords]
	}
	return found
}

// modelScore returns the model confidence in [0,1]. The label is not
// consulted: a confident NEGATIVE still contributes a positive value.
func (s *Service) modelScore(ctx context.Context, text string) (float64, error) {
	pred, err := s.model.Predict(ctx, truncateRunes(text, MaxModelInput))
	if err != nil {
		return 0, err
	}
	if math.IsNaN(pred.Score) || pred.Score < 0 || pred.Score > 1 {
		return 0, fmt.Errorf("sentiment model score out of range: %v", pred.Score)
	}
	return pred.Score, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
