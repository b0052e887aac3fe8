package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"ai_server/core/port/out"
)

const sentimentSystemPrompt = `You are a binary sentiment classifier for citizen feedback.
Respond with JSON only: {"label": "POSITIVE" or "NEGATIVE", "score": <confidence between 0 and 1>}.`

// SentimentModel is a POSITIVE/NEGATIVE classifier backed by a chat model.
type SentimentModel struct {
	client *Client
}

// NewSentimentModel creates a sentiment model on top of client.
func NewSentimentModel(client *Client) *SentimentModel {
	return &SentimentModel{client: client}
}

// Name returns the chat model name.
func (m *SentimentModel) Name() string {
	return m.client.Model()
}

// Predict labels text as POSITIVE or NEGATIVE.
func (m *SentimentModel) Predict(ctx context.Context, text string) (*out.SentimentPrediction, error) {
	resp, err := m.client.CompleteJSON(ctx, sentimentSystemPrompt, text)
	if err != nil {
		return nil, err
	}
	return parseSentiment(resp)
}

func parseSentiment(raw string) (*out.SentimentPrediction, error) {
	var pred out.SentimentPrediction
	var body struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &body); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment response: %w", err)
	}

	pred.Label = strings.ToUpper(strings.TrimSpace(body.Label))
	pred.Score = body.Score
	if pred.Label != "POSITIVE" && pred.Label != "NEGATIVE" {
		return nil, fmt.Errorf("unexpected sentiment label %q", body.Label)
	}
	if pred.Score < 0 || pred.Score > 1 {
		return nil, fmt.Errorf("sentiment score out of range: %v", pred.Score)
	}
	return &pred, nil
}
