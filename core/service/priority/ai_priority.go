// Package priority implements the weighted multi-factor complaint priority score.
package priority

import (
	"fmt"
	"math"
	"strings"

	"ai_server/core/domain"
	"ai_server/core/service/common"
	"ai_server/pkg/logger"
)

// =============================================================================
// Priority Scoring
// =============================================================================
//
// score = 0.35·category_risk + 0.25·location + 0.20·engagement + 0.10·age + 0.10·safety
// (each factor on a 0-100 scale, result truncated to int)

// -----------------------------------------------------------------------------
// Weights
// -----------------------------------------------------------------------------
const (
	WeightCategoryRisk = 0.35
	WeightLocation     = 0.25
	WeightEngagement   = 0.20
	WeightAge          = 0.10
	WeightSafety       = 0.10
)

// -----------------------------------------------------------------------------
// Factor normalization
// -----------------------------------------------------------------------------
const (
	MaxFactor          = 100.0
	LocationMultiplier = 1.2  // density → location factor
	PointsPerUpvote    = 10.0 // 10회 이상이면 100
	PointsPerDay       = 5.0  // 20일 이상이면 100
)

// -----------------------------------------------------------------------------
// Level thresholds
// -----------------------------------------------------------------------------
const (
	HighThreshold   = 70
	MediumThreshold = 40

	FallbackScore = 50
)

// -----------------------------------------------------------------------------
// Reasoning disclosure thresholds
// -----------------------------------------------------------------------------
const (
	disclosureRisk       = 70.0
	disclosureLocation   = 60.0
	disclosureEngagement = 50.0
	disclosureAge        = 50.0
	disclosureSafety     = 70.0
)

// Factors are the five normalized inputs to the score.
type Factors struct {
	CategoryRisk      float64
	LocationDensity   float64
	CitizenEngagement float64
	Age               float64
	SafetyRating      float64
}

// Map renders the factors with their wire keys.
func (f Factors) Map() map[string]float64 {
	return map[string]float64{
		domain.FactorCategoryRisk:      f.CategoryRisk,
		domain.FactorLocationDensity:   f.LocationDensity,
		domain.FactorCitizenEngagement: f.CitizenEngagement,
		domain.FactorAge:               f.Age,
		domain.FactorSafetyRating:      f.SafetyRating,
	}
}

// Score is the truncated weighted sum. Each product is rounded on its own
// so the result does not depend on fused multiply-add.
func (f Factors) Score() int {
	total := float64(f.CategoryRisk*WeightCategoryRisk) +
		float64(f.LocationDensity*WeightLocation) +
		float64(f.CitizenEngagement*WeightEngagement) +
		float64(f.Age*WeightAge) +
		float64(f.SafetyRating*WeightSafety)
	return int(total)
}

// LevelForScore maps a score onto High/Medium/Low.
func LevelForScore(score int) domain.PriorityLevel {
	switch {
	case score >= HighThreshold:
		return domain.PriorityHigh
	case score >= MediumThreshold:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// ComputeFactors normalizes the raw inputs. Safety passes through unclamped.
func ComputeFactors(in domain.PriorityInput) (Factors, error) {
	if err := validateInput(in); err != nil {
		return Factors{}, err
	}

	return Factors{
		CategoryRisk:      float64(domain.CategoryRisk(in.Category)),
		LocationDensity:   math.Min(MaxFactor, in.LocationDensity*LocationMultiplier),
		CitizenEngagement: math.Min(MaxFactor, float64(in.CitizenUpvotes)*PointsPerUpvote),
		Age:               math.Min(MaxFactor, float64(in.AgeHours)/24*PointsPerDay),
		SafetyRating:      in.SafetyRating,
	}, nil
}

func validateInput(in domain.PriorityInput) error {
	checks := []struct {
		name  string
		value float64
	}{
		{"location_density", in.LocationDensity},
		{"citizen_upvotes", float64(in.CitizenUpvotes)},
		{"age_hours", float64(in.AgeHours)},
		{"safety_rating", in.SafetyRating},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("%w: %s is not a finite number", common.ErrInvalidInput, c.name)
		}
		if c.value < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %v", common.ErrInvalidInput, c.name, c.value)
		}
	}
	return nil
}

// Service calculates complaint priorities. It holds no state.
type Service struct{}

// NewService creates a priority service.
func NewService() *Service {
	return &Service{}
}

// Calculate scores one complaint. It never fails: any error or panic
// yields the Medium/50 fallback with the error in the reasoning.
func (s *Service) Calculate(in domain.PriorityInput) (result *domain.PriorityResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Fallback(fmt.Errorf("%v", r))
		}
	}()

	factors, err := ComputeFactors(in)
	if err != nil {
		logger.WithField("issue_id", in.IssueID).WithError(err).Error("Priority calculation error")
		return Fallback(err)
	}

	score := factors.Score()
	level := LevelForScore(score)

	return &domain.PriorityResult{
		PriorityLevel: level,
		PriorityScore: score,
		Factors:       factors.Map(),
		Reasoning:     Reasoning(level, score, factors, categoryLabel(in.Category)),
	}
}

// CalculateBatch scores every input independently; a failing item gets its
// own fallback and does not affect the others.
func (s *Service) CalculateBatch(inputs []domain.PriorityInput) []*domain.PriorityResult {
	results := make([]*domain.PriorityResult, len(inputs))
	for i, in := range inputs {
		results[i] = s.Calculate(in)
	}
	return results
}

// Fallback is the safe result returned when scoring fails.
func Fallback(err error) *domain.PriorityResult {
	return &domain.PriorityResult{
		PriorityLevel: domain.PriorityMedium,
		PriorityScore: FallbackScore,
		Factors:       map[string]float64{},
		Reasoning:     fmt.Sprintf("Error in priority calculation: %v", err),
	}
}

// Reasoning lists the factors that crossed their disclosure thresholds.
func Reasoning(level domain.PriorityLevel, score int, f Factors, category string) string {
	parts := []string{fmt.Sprintf("Priority set to %s (score: %d/100)", level, score)}

	if f.CategoryRisk >= disclosureRisk {
		parts = append(parts, fmt.Sprintf("- High-risk category: %s", category))
	}
	if f.LocationDensity >= disclosureLocation {
		parts = append(parts, "- High complaint density in this area")
	}
	if f.CitizenEngagement >= disclosureEngagement {
		parts = append(parts, "- Multiple citizen reports/upvotes")
	}
	if f.Age >= disclosureAge {
		parts = append(parts, "- Issue persisting for extended period")
	}
	if f.SafetyRating >= disclosureSafety {
		parts = append(parts, "- Safety-critical concern")
	}

	return strings.Join(parts, ". ") + "."
}

func categoryLabel(raw string) string {
	if c, ok := domain.ParseCategory(raw); ok {
		return string(c)
	}
	return raw
}
