package priority

import (
	"math"
	"strings"
	"testing"
	"time"

	"ai_server/core/domain"
)

func TestCalculate_CategoryOnly(t *testing.T) {
	svc := NewService()

	tests := []struct {
		category  domain.ComplaintCategory
		wantScore int
		wantLevel domain.PriorityLevel
	}{
		{domain.CategoryRoads, 21, domain.PriorityLow},
		{domain.CategoryWater, 28, domain.PriorityLow},
		{domain.CategoryElectricity, 31, domain.PriorityLow},
		{domain.CategoryWaste, 17, domain.PriorityLow},
		{domain.CategoryAmenities, 14, domain.PriorityLow},
		{domain.CategoryEnvironment, 24, domain.PriorityLow},
		{domain.CategoryOthers, 10, domain.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			got := svc.Calculate(domain.PriorityInput{Category: string(tt.category)})
			if got.PriorityScore != tt.wantScore {
				t.Errorf("score = %d, want %d", got.PriorityScore, tt.wantScore)
			}
			if got.PriorityLevel != tt.wantLevel {
				t.Errorf("level = %s, want %s", got.PriorityLevel, tt.wantLevel)
			}
			if got.Factors[domain.FactorCategoryRisk] != float64(tt.category.Risk()) {
				t.Errorf("category_risk = %v, want %d", got.Factors[domain.FactorCategoryRisk], tt.category.Risk())
			}
		})
	}
}

func TestCalculate_UnknownAndAliasCategories(t *testing.T) {
	svc := NewService()

	unknown := svc.Calculate(domain.PriorityInput{Category: "Potholes"})
	if unknown.Factors[domain.FactorCategoryRisk] != domain.DefaultCategoryRisk {
		t.Errorf("unknown category risk = %v, want %d", unknown.Factors[domain.FactorCategoryRisk], domain.DefaultCategoryRisk)
	}

	alias := svc.Calculate(domain.PriorityInput{Category: "water"})
	if alias.Factors[domain.FactorCategoryRisk] != 80 {
		t.Errorf("alias category risk = %v, want 80", alias.Factors[domain.FactorCategoryRisk])
	}
	if !strings.Contains(alias.Reasoning, "- High-risk category: Water & Sanitation") {
		t.Errorf("reasoning should name the canonical category: %q", alias.Reasoning)
	}
}

func TestComputeFactors_Clamping(t *testing.T) {
	tests := []struct {
		name  string
		in    domain.PriorityInput
		check func(Factors) (float64, float64)
	}{
		{
			name:  "location density 100 clamps to 100",
			in:    domain.PriorityInput{LocationDensity: 100},
			check: func(f Factors) (float64, float64) { return f.LocationDensity, 100 },
		},
		{
			name:  "location density 50 scales by 1.2",
			in:    domain.PriorityInput{LocationDensity: 50},
			check: func(f Factors) (float64, float64) { return f.LocationDensity, 60 },
		},
		{
			name:  "10 upvotes clamps engagement to 100",
			in:    domain.PriorityInput{CitizenUpvotes: 10},
			check: func(f Factors) (float64, float64) { return f.CitizenEngagement, 100 },
		},
		{
			name:  "25 upvotes still 100",
			in:    domain.PriorityInput{CitizenUpvotes: 25},
			check: func(f Factors) (float64, float64) { return f.CitizenEngagement, 100 },
		},
		{
			name:  "480 hours is 20 days",
			in:    domain.PriorityInput{AgeHours: 480},
			check: func(f Factors) (float64, float64) { return f.Age, 100 },
		},
		{
			name:  "240 hours is half",
			in:    domain.PriorityInput{AgeHours: 240},
			check: func(f Factors) (float64, float64) { return f.Age, 50 },
		},
		{
			name:  "safety passes through",
			in:    domain.PriorityInput{SafetyRating: 120},
			check: func(f Factors) (float64, float64) { return f.SafetyRating, 120 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ComputeFactors(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, want := tt.check(f)
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestCalculate_Reasoning(t *testing.T) {
	svc := NewService()

	tests := []struct {
		name      string
		in        domain.PriorityInput
		wantScore int
		wantLevel domain.PriorityLevel
		want      string
	}{
		{
			name:      "low with no disclosures",
			in:        domain.PriorityInput{Category: "Others"},
			wantScore: 10,
			wantLevel: domain.PriorityLow,
			want:      "Priority set to Low (score: 10/100).",
		},
		{
			name: "medium with four disclosures",
			in: domain.PriorityInput{
				Category:        "Electricity & Power",
				LocationDensity: 50,
				CitizenUpvotes:  6,
				AgeHours:        48,
				SafetyRating:    80,
			},
			wantScore: 67,
			wantLevel: domain.PriorityMedium,
			want: "Priority set to Medium (score: 67/100). " +
				"- High-risk category: Electricity & Power. " +
				"- High complaint density in this area. " +
				"- Multiple citizen reports/upvotes. " +
				"- Safety-critical concern.",
		},
		{
			name: "high with every disclosure",
			in: domain.PriorityInput{
				Category:        "Water & Sanitation",
				LocationDensity: 100,
				CitizenUpvotes:  10,
				AgeHours:        480,
				SafetyRating:    100,
			},
			wantScore: 93,
			wantLevel: domain.PriorityHigh,
			want: "Priority set to High (score: 93/100). " +
				"- High-risk category: Water & Sanitation. " +
				"- High complaint density in this area. " +
				"- Multiple citizen reports/upvotes. " +
				"- Issue persisting for extended period. " +
				"- Safety-critical concern.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Calculate(tt.in)
			if got.PriorityScore != tt.wantScore {
				t.Errorf("score = %d, want %d", got.PriorityScore, tt.wantScore)
			}
			if got.PriorityLevel != tt.wantLevel {
				t.Errorf("level = %s, want %s", got.PriorityLevel, tt.wantLevel)
			}
			if got.Reasoning != tt.want {
				t.Errorf("reasoning =\n  %q\nwant\n  %q", got.Reasoning, tt.want)
			}
		})
	}
}

func TestCalculate_Fallback(t *testing.T) {
	svc := NewService()

	tests := []struct {
		name string
		in   domain.PriorityInput
	}{
		{"NaN density", domain.PriorityInput{Category: "Others", LocationDensity: math.NaN()}},
		{"infinite safety", domain.PriorityInput{Category: "Others", SafetyRating: math.Inf(1)}},
		{"negative upvotes", domain.PriorityInput{Category: "Others", CitizenUpvotes: -3}},
		{"negative age", domain.PriorityInput{Category: "Others", AgeHours: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Calculate(tt.in)
			if got.PriorityLevel != domain.PriorityMedium || got.PriorityScore != FallbackScore {
				t.Errorf("got %s/%d, want Medium/50", got.PriorityLevel, got.PriorityScore)
			}
			if len(got.Factors) != 0 {
				t.Errorf("fallback factors should be empty, got %v", got.Factors)
			}
			if !strings.HasPrefix(got.Reasoning, "Error in priority calculation: ") {
				t.Errorf("reasoning = %q", got.Reasoning)
			}
		})
	}
}

func TestCalculate_Monotonic(t *testing.T) {
	svc := NewService()
	base := domain.PriorityInput{Category: "Roads & Infrastructure", LocationDensity: 20, CitizenUpvotes: 2, AgeHours: 24, SafetyRating: 30}

	vary := map[string]func(in *domain.PriorityInput, step int){
		"location": func(in *domain.PriorityInput, step int) { in.LocationDensity = float64(step * 5) },
		"upvotes":  func(in *domain.PriorityInput, step int) { in.CitizenUpvotes = step },
		"age":      func(in *domain.PriorityInput, step int) { in.AgeHours = step * 24 },
		"safety":   func(in *domain.PriorityInput, step int) { in.SafetyRating = float64(step * 5) },
	}

	for name, apply := range vary {
		t.Run(name, func(t *testing.T) {
			prev := -1
			for step := 0; step <= 25; step++ {
				in := base
				apply(&in, step)
				score := svc.Calculate(in).PriorityScore
				if score < prev {
					t.Fatalf("score decreased at step %d: %d < %d", step, score, prev)
				}
				prev = score
			}
		})
	}
}

func TestCalculateBatch_IsolatesFailures(t *testing.T) {
	svc := NewService()

	results := svc.CalculateBatch([]domain.PriorityInput{
		{IssueID: "a", Category: "Others"},
		{IssueID: "b", Category: "Others", LocationDensity: math.NaN()},
		{IssueID: "c", Category: "Water & Sanitation", LocationDensity: 100, CitizenUpvotes: 10, AgeHours: 480, SafetyRating: 100},
	})

	if len(results) != 3 {
		t.Fatalf("len = %d, want 3", len(results))
	}
	if results[0].PriorityScore != 10 {
		t.Errorf("first score = %d, want 10", results[0].PriorityScore)
	}
	if results[1].PriorityScore != FallbackScore {
		t.Errorf("second should fall back, got %d", results[1].PriorityScore)
	}
	if results[2].PriorityLevel != domain.PriorityHigh {
		t.Errorf("third level = %s, want High", results[2].PriorityLevel)
	}
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  domain.PriorityLevel
	}{
		{100, domain.PriorityHigh},
		{70, domain.PriorityHigh},
		{69, domain.PriorityMedium},
		{40, domain.PriorityMedium},
		{39, domain.PriorityLow},
		{0, domain.PriorityLow},
	}
	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestSLADeadline(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		level        string
		wantHours    int
		wantDeadline string
		wantPriority domain.PriorityLevel
	}{
		{"High", 24, "2024-03-02T10:00:00Z", domain.PriorityHigh},
		{"medium", 72, "2024-03-04T10:00:00Z", domain.PriorityMedium},
		{"Low", 168, "2024-03-08T10:00:00Z", domain.PriorityLow},
		{"Urgent", 72, "2024-03-04T10:00:00Z", domain.PriorityLevel("Urgent")},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got := SLADeadline(tt.level, created)
			if got.SLAHours != tt.wantHours {
				t.Errorf("sla_hours = %d, want %d", got.SLAHours, tt.wantHours)
			}
			if got.Deadline != tt.wantDeadline {
				t.Errorf("deadline = %s, want %s", got.Deadline, tt.wantDeadline)
			}
			if got.Priority != tt.wantPriority {
				t.Errorf("priority = %s, want %s", got.Priority, tt.wantPriority)
			}
		})
	}
}
