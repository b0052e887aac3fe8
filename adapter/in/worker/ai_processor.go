package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"ai_server/core/port/in"
	"ai_server/core/service/analysis"
	"ai_server/internal/stream"
	"ai_server/pkg/logger"
)

// ResultPublisher emits processed jobs.
type ResultPublisher interface {
	PublishAnalyzed(ctx context.Context, ev *stream.AnalyzedEvent) (string, error)
}

// Processor turns one stream message into one analyzed event.
type Processor struct {
	analyzer  in.Analyzer
	publisher ResultPublisher
	timeout   time.Duration
	now       func() time.Time
}

// NewProcessor creates a job processor. timeout bounds a single analysis.
func NewProcessor(analyzer in.Analyzer, publisher ResultPublisher, timeout time.Duration) *Processor {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &Processor{
		analyzer:  analyzer,
		publisher: publisher,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handle analyzes the job in msg and publishes the result. A payload that
// cannot be decoded is reported as an error event and not retried. The
// returned error is non-nil only when the result could not be published,
// which leaves the message pending.
func (p *Processor) Handle(ctx context.Context, msg stream.Message) error {
	log := logger.WithContext(ctx).WithField("message_id", msg.ID)

	var job stream.AnalyzeJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.WithError(err).Warn("invalid analyze job payload")
		return p.publish(ctx, &stream.AnalyzedEvent{
			JobID:       msg.ID,
			Error:       fmt.Sprintf("invalid job payload: %v", err),
			ProcessedAt: p.now(),
		})
	}
	if job.ID == "" {
		job.ID = msg.ID
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.analyzer.Analyze(jobCtx, &job.Complaint, analysis.Options{IncludeEmbedding: job.IncludeEmbedding})

	return p.publish(ctx, &stream.AnalyzedEvent{
		JobID:       job.ID,
		IssueID:     job.Complaint.ID,
		Result:      result,
		ProcessedAt: p.now(),
	})
}

func (p *Processor) publish(ctx context.Context, ev *stream.AnalyzedEvent) error {
	if _, err := p.publisher.PublishAnalyzed(ctx, ev); err != nil {
		return fmt.Errorf("publish result for job %s: %w", ev.JobID, err)
	}
	return nil
}
