package domain

import "time"

// EmbeddingDimension is the vector size produced by all-MiniLM-L6-v2.
const EmbeddingDimension = 384

// Complaint is a citizen-submitted civic complaint. It is created
// elsewhere and is read-only to this service.
type Complaint struct {
	ID              string     `json:"issue_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category,omitempty"`
	Language        string     `json:"language,omitempty"`
	LocationDensity float64    `json:"location_density"`
	Upvotes         int        `json:"citizen_upvotes"`
	AgeHours        int        `json:"age_hours"`
	SafetyRating    float64    `json:"safety_rating"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

// PriorityInput holds the scalar fields the priority engine reads.
type PriorityInput struct {
	IssueID         string
	Category        string
	LocationDensity float64
	CitizenUpvotes  int
	AgeHours        int
	SafetyRating    float64
}

// PriorityInput extracts the priority fields of the complaint.
func (c *Complaint) PriorityInput() PriorityInput {
	return PriorityInput{
		IssueID:         c.ID,
		Category:        c.Category,
		LocationDensity: c.LocationDensity,
		CitizenUpvotes:  c.Upvotes,
		AgeHours:        c.AgeHours,
		SafetyRating:    c.SafetyRating,
	}
}

// PriorityLevel is the three-level priority label.
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "High"
	PriorityMedium PriorityLevel = "Medium"
	PriorityLow    PriorityLevel = "Low"
)

// Factor keys used in PriorityResult.Factors.
const (
	FactorCategoryRisk      = "category_risk"
	FactorLocationDensity   = "location_density"
	FactorCitizenEngagement = "citizen_engagement"
	FactorAge               = "age_factor"
	FactorSafetyRating      = "safety_rating"
)

// PriorityResult is derived purely from a complaint's scalar fields.
type PriorityResult struct {
	PriorityLevel PriorityLevel      `json:"priority_level"`
	PriorityScore int                `json:"priority_score"`
	Factors       map[string]float64 `json:"factors"`
	Reasoning     string             `json:"reasoning"`
}

// SLAInfo is the resolution budget attached to a priority level.
type SLAInfo struct {
	SLAHours int           `json:"sla_hours"`
	Deadline string        `json:"deadline"`
	Priority PriorityLevel `json:"priority"`
}

// Cluster is one group of near-duplicate complaints. Members are indices
// into the clustered input.
type Cluster struct {
	ClusterID int     `json:"cluster_id"`
	Members   []int   `json:"members"`
	Size      int     `json:"size"`
	Quality   float64 `json:"quality"`
}

// ClusterQuality summarizes a clustering run.
type ClusterQuality struct {
	TotalClusters  int     `json:"total_clusters"`
	TotalIssues    int     `json:"total_issues"`
	TotalMerged    int     `json:"total_merged"`
	MergeRate      float64 `json:"merge_rate"`
	AvgClusterSize float64 `json:"avg_cluster_size"`
}

// SimilarIssue is one find-similar hit.
type SimilarIssue struct {
	IssueIndex int     `json:"issue_index"`
	Similarity float64 `json:"similarity"`
}

// LabelScore is one entry of a zero-shot ranking.
type LabelScore struct {
	Label ComplaintCategory `json:"label"`
	Score float64           `json:"score"`
}

// ClassificationResult is the classifier output.
type ClassificationResult struct {
	PrimaryCategory     ComplaintCategory   `json:"primary_category"`
	Confidence          float64             `json:"confidence"`
	SecondaryCategories []ComplaintCategory `json:"secondary_categories"`
	Reasoning           string              `json:"reasoning"`
}

// SentimentLabel is the three-way sentiment label.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNegative SentimentLabel = "Negative"
	SentimentNeutral  SentimentLabel = "Neutral"
)

// SentimentResult is the sentiment scorer output.
type SentimentResult struct {
	Sentiment  SentimentLabel `json:"sentiment"`
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	Keywords   []string       `json:"keywords"`
}

// AnalysisResult bundles every stage of the analyze pipeline for one complaint.
type AnalysisResult struct {
	IssueID        string                `json:"issue_id,omitempty"`
	Classification *ClassificationResult `json:"classification"`
	Sentiment      *SentimentResult      `json:"sentiment"`
	Priority       *PriorityResult       `json:"priority"`
	SLA            *SLAInfo              `json:"sla"`
	Embedding      []float32             `json:"embedding,omitempty"`
	Warnings       []string              `json:"warnings,omitempty"`
	ProcessedAt    time.Time             `json:"processed_at"`
}
