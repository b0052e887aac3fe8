package stream

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ai_server/core/domain"
)

// AnalyzeJob asks the worker to run the full analysis for one complaint.
type AnalyzeJob struct {
	ID               string           `json:"id"`
	Complaint        domain.Complaint `json:"complaint"`
	IncludeEmbedding bool             `json:"include_embedding"`
	CreatedAt        time.Time        `json:"created_at"`
}

// AnalyzedEvent is published once a job has been processed. Error is set
// only when the job payload could not be analyzed at all.
type AnalyzedEvent struct {
	JobID       string                 `json:"job_id"`
	IssueID     string                 `json:"issue_id,omitempty"`
	Result      *domain.AnalysisResult `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	ProcessedAt time.Time              `json:"processed_at"`
}

type Producer struct {
	stream *RedisStream
}

func NewProducer(stream *RedisStream) *Producer {
	return &Producer{stream: stream}
}

// PublishAnalyze enqueues a complaint and returns the job id.
func (p *Producer) PublishAnalyze(ctx context.Context, c domain.Complaint, includeEmbedding bool) (string, error) {
	job := &AnalyzeJob{
		ID:               uuid.New().String(),
		Complaint:        c,
		IncludeEmbedding: includeEmbedding,
		CreatedAt:        time.Now().UTC(),
	}
	if _, err := p.stream.Publish(ctx, StreamAnalyze, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// PublishAnalyzed emits a processed result.
func (p *Producer) PublishAnalyzed(ctx context.Context, ev *AnalyzedEvent) (string, error) {
	return p.stream.Publish(ctx, StreamAnalyzed, ev)
}
