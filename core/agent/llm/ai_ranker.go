package llm

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"ai_server/core/domain"
)

const rankerSystemPrompt = `You are a zero-shot text classifier for civic complaints filed by citizens.
Score how well the complaint fits each candidate label.
Respond with JSON only: {"scores": {"<label>": <score between 0 and 1>, ...}}.
Use every candidate label exactly as written. Scores should sum to 1.`

// ZeroShotRanker ranks complaint categories with a chat model.
type ZeroShotRanker struct {
	client *Client
}

// NewZeroShotRanker creates a ranker on top of client.
func NewZeroShotRanker(client *Client) *ZeroShotRanker {
	return &ZeroShotRanker{client: client}
}

// Name returns the chat model name.
func (r *ZeroShotRanker) Name() string {
	return r.client.Model()
}

// Rank returns every label with a normalized score, best first.
func (r *ZeroShotRanker) Rank(ctx context.Context, text string, labels []domain.ComplaintCategory) ([]domain.LabelScore, error) {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = fmt.Sprintf("- %s", l)
	}
	prompt := fmt.Sprintf("Candidate labels:\n%s\n\nComplaint:\n%s", strings.Join(names, "\n"), text)

	resp, err := r.client.CompleteJSON(ctx, rankerSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return parseRanking(resp, labels)
}

type rankingResponse struct {
	Scores map[string]float64 `json:"scores"`
}

// parseRanking maps the reply onto labels. Unknown names are dropped,
// aliases resolve to their canonical label, missing labels score 0 and the
// result is normalized to sum to 1.
func parseRanking(raw string, labels []domain.ComplaintCategory) ([]domain.LabelScore, error) {
	var resp rankingResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse ranking response: %w", err)
	}

	byLabel := make(map[domain.ComplaintCategory]float64, len(labels))
	for name, score := range resp.Scores {
		c, ok := domain.ParseCategory(name)
		if !ok || math.IsNaN(score) || score <= 0 {
			continue
		}
		byLabel[c] += score
	}

	var total float64
	for _, l := range labels {
		total += byLabel[l]
	}
	if total <= 0 || math.IsInf(total, 0) {
		return nil, fmt.Errorf("ranking response has no usable scores: %s", raw)
	}

	ranking := make([]domain.LabelScore, len(labels))
	for i, l := range labels {
		ranking[i] = domain.LabelScore{Label: l, Score: byLabel[l] / total}
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})
	return ranking, nil
}
