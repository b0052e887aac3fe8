package bootstrap

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"ai_server/adapter/in/worker"
	"ai_server/config"
	"ai_server/internal/stream"
	"ai_server/pkg/logger"
)

// Worker consumes complaint:analyze and publishes complaint:analyzed.
type Worker struct {
	pool   *worker.Pool
	deps   *Dependencies
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	zlog   zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}
	return newWorker(deps), cleanup, nil
}

func newWorker(deps *Dependencies) *Worker {
	cfg := deps.Config
	zlog := logger.Default().Zerolog().With().Str("component", "worker").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		zlog:   zlog,
	}

	// Redis Stream이 없으면 풀 없이 대기만 한다
	if deps.Stream == nil {
		logger.Warn("Redis not available, analyze worker is idle")
		return w
	}

	processor := worker.NewProcessor(deps.Pipeline, deps.Producer, cfg.JobTimeout())
	w.pool = worker.NewPool(deps.Stream, processor, deps.Metrics, worker.PoolConfig{
		Stream:   stream.StreamAnalyze,
		Consumer: cfg.StreamConsumer,
		Workers:  cfg.WorkerConcurrency,

		PendingIdle:   cfg.PendingIdle(),
		MaxDeliveries: int64(cfg.MaxDeliveries),
	})
	logger.Info("Analyze worker configured (consumer: %s, workers: %d)", cfg.StreamConsumer, cfg.WorkerConcurrency)
	return w
}

// Start blocks until Stop is called.
func (w *Worker) Start() {
	if w.pool != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.zlog.Info().Str("stream", stream.StreamAnalyze).Msg("Starting Redis Stream consumer...")
			if err := w.pool.Run(w.ctx); err != nil && err != context.Canceled {
				w.zlog.Error().Err(err).Msg("Analyze worker pool error")
			}
		}()
	}

	<-w.ctx.Done()
	w.wg.Wait()
}

// Stop cancels reading and waits for in-flight jobs to drain.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

// Stats returns the pool counters, zero when the worker is idle.
func (w *Worker) Stats() worker.PoolStats {
	if w.pool == nil {
		return worker.PoolStats{}
	}
	return w.pool.Stats()
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
