// Package analysis runs every AI stage for a single complaint.
//
// Stages:
//
//  1. Classification → category (used by priority when the complaint has none)
//  2. Sentiment
//  3. Embedding      → optional, for later duplicate detection
//  4. Priority
//  5. SLA
//
// A stage that fails falls back on its own and never aborts the pipeline.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai_server/core/domain"
	"ai_server/core/service/classification"
	"ai_server/core/service/priority"
	"ai_server/pkg/logger"
)

// Classifier is the classification stage.
type Classifier interface {
	Classify(ctx context.Context, req classification.Request) *domain.ClassificationResult
}

// SentimentAnalyzer is the sentiment stage.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) *domain.SentimentResult
}

// Embedder is the embedding stage.
type Embedder interface {
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Prioritizer is the priority stage.
type Prioritizer interface {
	Calculate(in domain.PriorityInput) *domain.PriorityResult
}

// Options controls optional stages.
type Options struct {
	IncludeEmbedding bool
}

// Pipeline wires the stages together. embedder may be nil.
type Pipeline struct {
	classifier Classifier
	sentiment  SentimentAnalyzer
	embedder   Embedder
	priority   Prioritizer
	now        func() time.Time
}

// NewPipeline creates an analysis pipeline.
func NewPipeline(c Classifier, s SentimentAnalyzer, e Embedder, p Prioritizer) *Pipeline {
	return &Pipeline{
		classifier: c,
		sentiment:  s,
		embedder:   e,
		priority:   p,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Analyze runs all stages for one complaint.
func (p *Pipeline) Analyze(ctx context.Context, c *domain.Complaint, opts Options) *domain.AnalysisResult {
	start := time.Now()
	log := logger.WithContext(ctx).WithField("issue_id", c.ID)

	result := &domain.AnalysisResult{IssueID: c.ID}
	text := classification.CombinedText(c.Title, c.Description)

	// 1. classification
	result.Classification = p.classifier.Classify(ctx, classification.Request{
		Text:     c.Description,
		Title:    c.Title,
		Language: c.Language,
	})
	if strings.HasPrefix(result.Classification.Reasoning, "Classification failed") {
		result.Warnings = append(result.Warnings, "classification: "+result.Classification.Reasoning)
	}

	// 2. sentiment
	result.Sentiment = p.sentiment.Analyze(ctx, text)

	// 3. embedding
	if opts.IncludeEmbedding && p.embedder != nil {
		embeddings, err := p.embedder.GetEmbeddings(ctx, []string{text})
		if err != nil {
			log.WithError(err).Warn("embedding stage failed")
			result.Warnings = append(result.Warnings, fmt.Sprintf("embedding: %v", err))
		} else if len(embeddings) == 1 {
			result.Embedding = embeddings[0]
		}
	}

	// 4. priority
	in := c.PriorityInput()
	if strings.TrimSpace(in.Category) == "" {
		in.Category = string(result.Classification.PrimaryCategory)
	}
	result.Priority = p.priority.Calculate(in)
	if strings.HasPrefix(result.Priority.Reasoning, "Error in priority calculation") {
		result.Warnings = append(result.Warnings, "priority: "+result.Priority.Reasoning)
	}

	// 5. SLA
	createdAt := p.now()
	if c.CreatedAt != nil {
		createdAt = *c.CreatedAt
	}
	result.SLA = priority.SLADeadline(string(result.Priority.PriorityLevel), createdAt)

	result.ProcessedAt = p.now()
	log.WithDuration(time.Since(start)).Info("analyzed complaint: %s / %s", result.Classification.PrimaryCategory, result.Priority.PriorityLevel)
	return result
}
