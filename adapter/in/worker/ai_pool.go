package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"

	"ai_server/internal/stream"
	"ai_server/pkg/logger"
	"ai_server/pkg/metrics"
)

// =============================================================================
// go-pkgz/pool 기반 Analyze Worker Pool
// =============================================================================

const (
	DefaultWorkers    = 4
	DefaultJobTimeout = 60 * time.Second

	// Pending 재처리 기본값
	DefaultPendingCheckInterval = 30 * time.Second
	DefaultPendingIdle          = 2 * time.Minute
	DefaultMaxDeliveries        = 3
)

// JobSource is the consumer-group view of the analyze stream.
type JobSource interface {
	CreateGroup(ctx context.Context, stream string) error
	Read(ctx context.Context, stream, consumer string, count int64) ([]stream.Message, error)
	Ack(ctx context.Context, stream, id string) error
	PendingEntries(ctx context.Context, stream string, minIdle time.Duration, count int64) ([]stream.PendingEntry, error)
	Claim(ctx context.Context, stream, consumer string, minIdle time.Duration, ids ...string) ([]stream.Message, error)
	DeadLetter(ctx context.Context, stream, id, reason string) error
}

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	Stream         string
	Consumer       string
	Workers        int
	ReadCount      int64 // XREADGROUP COUNT
	BatchSize      int   // 1이면 제출 즉시 워커로 전달
	WorkerChanSize int
	ShutdownWait   time.Duration

	// PendingIdle is how long an unacked job waits before another
	// consumer claims it. A job delivered MaxDeliveries times goes to the
	// dead letter stream instead.
	PendingCheckInterval time.Duration
	PendingIdle          time.Duration
	MaxDeliveries        int64
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Stream:         stream.StreamAnalyze,
		Consumer:       "ai-worker-1",
		Workers:        DefaultWorkers,
		ReadCount:      stream.DefaultReadCount,
		BatchSize:      1,
		WorkerChanSize: 100,
		ShutdownWait:   30 * time.Second,

		PendingCheckInterval: DefaultPendingCheckInterval,
		PendingIdle:          DefaultPendingIdle,
		MaxDeliveries:        DefaultMaxDeliveries,
	}
}

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	JobsReceived  int64 `json:"jobs_received"`
	JobsProcessed int64 `json:"jobs_processed"`
	JobsFailed    int64 `json:"jobs_failed"`
	AckFailures   int64 `json:"ack_failures"`
	JobsReclaimed int64 `json:"jobs_reclaimed"`
	DeadLettered  int64 `json:"dead_lettered"`
}

// Pool reads analyze jobs from the stream and fans them out to workers.
type Pool struct {
	source    JobSource
	processor *Processor
	metrics   *metrics.Metrics
	config    PoolConfig

	group *pool.WorkerGroup[stream.Message]

	mu      sync.Mutex
	running bool

	received  atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	ackFailed atomic.Int64
	reclaimed atomic.Int64
	dead      atomic.Int64

	log zerolog.Logger
}

// messageWorker implements pool.Worker for stream messages.
type messageWorker struct {
	pool *Pool
}

// Do implements pool.Worker.
func (w *messageWorker) Do(ctx context.Context, msg stream.Message) error {
	return w.pool.processJob(ctx, msg)
}

// NewPool creates a worker pool. m may be nil.
func NewPool(source JobSource, processor *Processor, m *metrics.Metrics, cfg PoolConfig) *Pool {
	def := DefaultPoolConfig()
	if cfg.Stream == "" {
		cfg.Stream = def.Stream
	}
	if cfg.Consumer == "" {
		cfg.Consumer = def.Consumer
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ReadCount <= 0 {
		cfg.ReadCount = def.ReadCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.WorkerChanSize <= 0 {
		cfg.WorkerChanSize = def.WorkerChanSize
	}
	if cfg.ShutdownWait <= 0 {
		cfg.ShutdownWait = def.ShutdownWait
	}
	if cfg.PendingCheckInterval <= 0 {
		cfg.PendingCheckInterval = def.PendingCheckInterval
	}
	if cfg.PendingIdle <= 0 {
		cfg.PendingIdle = def.PendingIdle
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = def.MaxDeliveries
	}

	return &Pool{
		source:    source,
		processor: processor,
		metrics:   m,
		config:    cfg,
		log:       logger.Default().Zerolog().With().Str("component", "worker_pool").Logger(),
	}
}

// Run consumes the stream until ctx is cancelled, then drains the workers.
func (p *Pool) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	if err := p.source.CreateGroup(ctx, p.config.Stream); err != nil {
		return err
	}

	// 워커는 부모 ctx 취소 후에도 남은 작업을 끝낼 수 있도록 별도 ctx 사용
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	p.group = pool.New[stream.Message](p.config.Workers, &messageWorker{pool: p}).
		WithBatchSize(p.config.BatchSize).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	if err := p.group.Go(workCtx); err != nil {
		return err
	}

	p.log.Info().
		Str("stream", p.config.Stream).
		Str("consumer", p.config.Consumer).
		Int("workers", p.config.Workers).
		Msg("analyze worker pool started")

	// 재시작 전 남은 pending 작업도 첫 체크에서 회수된다
	var reclaimWG sync.WaitGroup
	reclaimWG.Add(1)
	go func() {
		defer reclaimWG.Done()
		p.reclaimLoop(ctx)
	}()

	p.readLoop(ctx)
	reclaimWG.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownWait)
	defer cancel()
	if err := p.group.Close(closeCtx); err != nil {
		p.log.Warn().Err(err).Msg("error closing worker pool")
	}

	stats := p.Stats()
	p.log.Info().
		Int64("processed", stats.JobsProcessed).
		Int64("failed", stats.JobsFailed).
		Msg("analyze worker pool stopped")
	return nil
}

func (p *Pool) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := p.source.Read(ctx, p.config.Stream, p.config.Consumer, p.config.ReadCount)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error().Err(err).Msg("stream read error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			p.received.Add(1)
			p.group.Send(msg)
		}
	}
}

func (p *Pool) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(p.config.PendingCheckInterval)
	defer ticker.Stop()

	for {
		p.reclaimPending(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// reclaimPending claims jobs left unacked past PendingIdle and resubmits
// them. Jobs already delivered MaxDeliveries times are dead-lettered.
func (p *Pool) reclaimPending(ctx context.Context) {
	entries, err := p.source.PendingEntries(ctx, p.config.Stream, p.config.PendingIdle, p.config.ReadCount)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error().Err(err).Str("stream", p.config.Stream).Msg("error getting pending jobs")
		}
		return
	}

	for _, e := range entries {
		if e.Deliveries >= p.config.MaxDeliveries {
			p.log.Warn().
				Str("message_id", e.ID).
				Int64("deliveries", e.Deliveries).
				Msg("job exceeded max deliveries, moving to dead letter stream")
			if err := p.source.DeadLetter(ctx, p.config.Stream, e.ID, "max deliveries exceeded"); err != nil {
				p.log.Error().Err(err).Str("message_id", e.ID).Msg("error dead-lettering job")
				continue
			}
			p.dead.Add(1)
			continue
		}

		claimed, err := p.source.Claim(ctx, p.config.Stream, p.config.Consumer, p.config.PendingIdle, e.ID)
		if err != nil {
			p.log.Error().Err(err).Str("message_id", e.ID).Msg("error claiming pending job")
			continue
		}
		for _, msg := range claimed {
			p.log.Info().
				Str("message_id", msg.ID).
				Str("previous_consumer", e.Consumer).
				Dur("idle", e.Idle).
				Msg("reclaimed pending job")
			p.reclaimed.Add(1)
			p.group.Send(msg)
		}
	}
}

func (p *Pool) processJob(ctx context.Context, msg stream.Message) error {
	start := time.Now()

	err := p.processor.Handle(ctx, msg)
	p.metrics.ObserveJob(err, time.Since(start))
	if err != nil {
		p.failed.Add(1)
		p.log.Warn().Err(err).Str("message_id", msg.ID).Msg("job failed, left pending for reclaim")
		return err
	}

	if ackErr := p.source.Ack(ctx, msg.Stream, msg.ID); ackErr != nil {
		p.ackFailed.Add(1)
		p.log.Warn().Err(ackErr).Str("message_id", msg.ID).Msg("ack failed")
	}
	p.processed.Add(1)
	return nil
}

// Stats returns the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		JobsReceived:  p.received.Load(),
		JobsProcessed: p.processed.Load(),
		JobsFailed:    p.failed.Load(),
		AckFailures:   p.ackFailed.Load(),
		JobsReclaimed: p.reclaimed.Load(),
		DeadLettered:  p.dead.Load(),
	}
}
