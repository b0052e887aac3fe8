package domain

import "strings"

// ComplaintCategory is one of the fixed civic complaint categories.
type ComplaintCategory string

const (
	CategoryRoads       ComplaintCategory = "Roads & Infrastructure"
	CategoryWater       ComplaintCategory = "Water & Sanitation"
	CategoryElectricity ComplaintCategory = "Electricity & Power"
	CategoryWaste       ComplaintCategory = "Waste Management"
	CategoryAmenities   ComplaintCategory = "Public Amenities"
	CategoryEnvironment ComplaintCategory = "Environment"
	CategoryOthers      ComplaintCategory = "Others"
)

// Categories is the fixed label set, in display and ranking order.
var Categories = []ComplaintCategory{
	CategoryRoads,
	CategoryWater,
	CategoryElectricity,
	CategoryWaste,
	CategoryAmenities,
	CategoryEnvironment,
	CategoryOthers,
}

// DefaultCategoryRisk applies to any label outside the fixed set.
const DefaultCategoryRisk = 30

// categoryRisk 카테고리별 위험도 (0-100)
var categoryRisk = map[ComplaintCategory]int{
	CategoryRoads:       60,
	CategoryWater:       80,
	CategoryElectricity: 90,
	CategoryWaste:       50,
	CategoryAmenities:   40,
	CategoryEnvironment: 70,
	CategoryOthers:      30,
}

// categoryAliases maps lower-cased short names onto canonical labels.
var categoryAliases = map[string]ComplaintCategory{
	"roads":          CategoryRoads,
	"road":           CategoryRoads,
	"infrastructure": CategoryRoads,
	"water":          CategoryWater,
	"sanitation":     CategoryWater,
	"electricity":    CategoryElectricity,
	"power":          CategoryElectricity,
	"waste":          CategoryWaste,
	"amenities":      CategoryAmenities,
	"environment":    CategoryEnvironment,
	"others":         CategoryOthers,
	"other":          CategoryOthers,
}

// CategoryKeywords lists the explanation keywords per category. The order
// (and the duplicate "garbage") is part of the reasoning output.
var CategoryKeywords = map[ComplaintCategory][]string{
	CategoryRoads:       {"road", "pothole", "pavement", "street", "sidewalk", "asphalt", "crack"},
	CategoryWater:       {"water", "sewer", "drainage", "sanitation", "leak", "pipe", "flood"},
	CategoryElectricity: {"light", "electricity", "power", "electric", "streetlight", "outage"},
	CategoryWaste:       {"garbage", "waste", "trash", "litter", "garbage", "dumping", "cleanup"},
	CategoryAmenities:   {"park", "bench", "playground", "facility", "amenity", "public"},
	CategoryEnvironment: {"tree", "pollution", "environment", "green", "air quality", "noise", "dust"},
	CategoryOthers:      {},
}

// ParseCategory resolves a canonical label or a short alias. The second
// return value is false when the input matches neither.
func ParseCategory(s string) (ComplaintCategory, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	if c, ok := categoryAliases[strings.ToLower(s)]; ok {
		return c, true
	}
	return ComplaintCategory(s), false
}

// IsValid reports whether c is one of the fixed labels.
func (c ComplaintCategory) IsValid() bool {
	_, ok := categoryRisk[c]
	return ok
}

// Risk returns the category risk weight, DefaultCategoryRisk for unknown labels.
func (c ComplaintCategory) Risk() int {
	if risk, ok := categoryRisk[c]; ok {
		return risk
	}
	return DefaultCategoryRisk
}

// CategoryRisk looks up the risk weight for a raw label or alias.
func CategoryRisk(label string) int {
	c, _ := ParseCategory(label)
	return c.Risk()
}

// CategoryNames returns the labels as plain strings.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}
