package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"ai_server/core/domain"
	"ai_server/core/service/analysis"
	"ai_server/internal/stream"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []string
	opts  []analysis.Options
}

func (f *fakeAnalyzer) Analyze(_ context.Context, c *domain.Complaint, opts analysis.Options) *domain.AnalysisResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c.ID)
	f.opts = append(f.opts, opts)
	return &domain.AnalysisResult{
		IssueID:  c.ID,
		Priority: &domain.PriorityResult{PriorityLevel: domain.PriorityHigh, PriorityScore: 80},
	}
}

// fakePublisher returns err for the first failN calls, or for every call
// when failN is 0.
type fakePublisher struct {
	mu     sync.Mutex
	events []*stream.AnalyzedEvent
	err    error
	failN  int
	calls  int
}

func (f *fakePublisher) PublishAnalyzed(_ context.Context, ev *stream.AnalyzedEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil && (f.failN == 0 || f.calls <= f.failN) {
		return "", f.err
	}
	f.events = append(f.events, ev)
	return "1-0", nil
}

func jobMessage(t *testing.T, job stream.AnalyzeJob) stream.Message {
	t.Helper()
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	return stream.Message{ID: "1-0", Stream: stream.StreamAnalyze, Data: data}
}

func TestProcessor_Handle(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	pub := &fakePublisher{}
	p := NewProcessor(analyzer, pub, time.Second)

	msg := jobMessage(t, stream.AnalyzeJob{ID: "job-1", Complaint: domain.Complaint{ID: "c-1"}, IncludeEmbedding: true})
	if err := p.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.JobID != "job-1" || ev.IssueID != "c-1" || ev.Error != "" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Result == nil || ev.Result.Priority.PriorityLevel != domain.PriorityHigh {
		t.Errorf("result = %+v", ev.Result)
	}
	if !analyzer.opts[0].IncludeEmbedding {
		t.Error("include_embedding should be passed to the pipeline")
	}
}

func TestProcessor_InvalidPayload(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	pub := &fakePublisher{}
	p := NewProcessor(analyzer, pub, time.Second)

	err := p.Handle(context.Background(), stream.Message{ID: "7-0", Stream: stream.StreamAnalyze, Data: []byte("{not json")})
	if err != nil {
		t.Fatalf("invalid payload should be reported, not retried: %v", err)
	}
	if len(analyzer.calls) != 0 {
		t.Error("analyzer should not run for an invalid payload")
	}
	if len(pub.events) != 1 || pub.events[0].Error == "" || pub.events[0].JobID != "7-0" {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestProcessor_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	p := NewProcessor(&fakeAnalyzer{}, pub, time.Second)

	msg := jobMessage(t, stream.AnalyzeJob{ID: "job-2", Complaint: domain.Complaint{ID: "c-2"}})
	if err := p.Handle(context.Background(), msg); err == nil {
		t.Fatal("publish failure should be returned so the message stays pending")
	}
}

func TestPool_EndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rs := stream.NewRedisStream(client, "test-group").WithBlock(10 * time.Millisecond)
	producer := stream.NewProducer(rs)
	analyzer := &fakeAnalyzer{}

	cfg := DefaultPoolConfig()
	cfg.Workers = 2
	wp := NewPool(rs, NewProcessor(analyzer, producer, time.Second), nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rs.CreateGroup(ctx, stream.StreamAnalyze); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"c-1", "c-2", "c-3"} {
		if _, err := producer.PublishAnalyze(ctx, domain.Complaint{ID: id}, false); err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- wp.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for {
		n, _ := rs.Len(context.Background(), stream.StreamAnalyzed)
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("analyzed events = %d, want 3", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	stats := wp.Stats()
	if stats.JobsReceived != 3 || stats.JobsProcessed != 3 || stats.JobsFailed != 0 {
		t.Errorf("stats = %+v", stats)
	}

	pending, err := rs.Pending(context.Background(), stream.StreamAnalyze)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Errorf("pending = %d, want 0", pending)
	}
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakePublisher) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPool_ReclaimsPendingJobs(t *testing.T) {
	tests := []struct {
		name          string
		publisher     *fakePublisher
		maxDeliveries int64
		wantPublished int
		wantDead      int64
	}{
		{
			name:          "failed publish is retried after idle",
			publisher:     &fakePublisher{err: errors.New("redis down"), failN: 1},
			maxDeliveries: 3,
			wantPublished: 1,
		},
		{
			name:          "job exceeding max deliveries is dead-lettered",
			publisher:     &fakePublisher{err: errors.New("redis down")},
			maxDeliveries: 2,
			wantDead:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })

			rs := stream.NewRedisStream(client, "test-group").WithBlock(10 * time.Millisecond)
			producer := stream.NewProducer(rs)
			analyzer := &fakeAnalyzer{}

			cfg := DefaultPoolConfig()
			cfg.Workers = 1
			cfg.PendingCheckInterval = 20 * time.Millisecond
			cfg.PendingIdle = 50 * time.Millisecond
			cfg.MaxDeliveries = tt.maxDeliveries
			wp := NewPool(rs, NewProcessor(analyzer, tt.publisher, time.Second), nil, cfg)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := rs.CreateGroup(ctx, stream.StreamAnalyze); err != nil {
				t.Fatal(err)
			}
			if _, err := producer.PublishAnalyze(ctx, domain.Complaint{ID: "c-1"}, false); err != nil {
				t.Fatal(err)
			}

			done := make(chan error, 1)
			go func() { done <- wp.Run(ctx) }()

			waitFor(t, "pending list to drain", func() bool {
				st := wp.Stats()
				if st.JobsProcessed+st.DeadLettered == 0 {
					return false
				}
				n, err := rs.Pending(context.Background(), stream.StreamAnalyze)
				return err == nil && n == 0
			})

			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Run: %v", err)
			}

			stats := wp.Stats()
			if stats.JobsReceived != 1 || stats.JobsReclaimed == 0 {
				t.Errorf("stats = %+v", stats)
			}
			if got := tt.publisher.published(); got != tt.wantPublished {
				t.Errorf("published = %d, want %d", got, tt.wantPublished)
			}
			if stats.DeadLettered != tt.wantDead {
				t.Errorf("dead lettered = %d, want %d", stats.DeadLettered, tt.wantDead)
			}
			if analyzer.callCount() < 2 {
				t.Errorf("analyzer calls = %d, want at least 2", analyzer.callCount())
			}

			dlq, err := rs.Len(context.Background(), stream.DeadLetterPrefix+stream.StreamAnalyze)
			if err != nil {
				t.Fatal(err)
			}
			if dlq != tt.wantDead {
				t.Errorf("dead letter stream length = %d, want %d", dlq, tt.wantDead)
			}
		})
	}
}
