package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/queue"
)

// Source is the dequeue side of a job queue.
type Source interface {
	Name() string
	Dequeue(ctx context.Context) (*core.Job, error)
}

// Executor runs one dequeued job to a terminal or retried state.
type Executor interface {
	Execute(ctx context.Context, job *core.Job)
}

// Quarantine receives payloads that could not be decoded into jobs.
type Quarantine interface {
	PushRaw(ctx context.Context, queueName, raw, reason string) error
}

// PollerConfig controls the drain schedule of one queue.
type PollerConfig struct {
	Interval time.Duration // Time between ticks.
	Budget   int           // Maximum dequeues per tick.
}

// Poller drains a queue on a fixed schedule and hands each job to a pool, so
// the poll loop itself never waits on slow external calls.
type Poller struct {
	source     Source
	pool       *Pool
	executor   Executor
	quarantine Quarantine
	cfg        PollerConfig
	logger     *slog.Logger
}

// NewPoller wires a queue to a pool.
func NewPoller(source Source, pool *Pool, executor Executor, quarantine Quarantine, cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 1
	}
	return &Poller{
		source:     source,
		pool:       pool,
		executor:   executor,
		quarantine: quarantine,
		cfg:        cfg,
		logger:     logger.With("queue", source.Name()),
	}
}

// Run ticks until ctx is cancelled. A failed tick is logged and retried on
// the next schedule.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting poller", "interval", p.cfg.Interval, "budget", p.cfg.Budget)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down poller")
			return nil
		case <-ticker.C:
			if _, err := p.Tick(ctx); err != nil {
				p.logger.Error("poll tick abandoned", "error", err)
			}
		}
	}
}

// Tick performs one IDLE -> DRAINING -> DISPATCHED cycle and returns how many
// jobs were dispatched. Draining stops early on an empty queue. A store
// failure abandons the rest of the tick.
func (p *Poller) Tick(ctx context.Context) (int, error) {
	dispatched := 0
	for dispatched < p.cfg.Budget {
		if ctx.Err() != nil {
			return dispatched, nil
		}

		job, err := p.source.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				break
			}
			var decodeErr *queue.DecodeError
			if errors.As(err, &decodeErr) {
				p.quarantineRaw(ctx, decodeErr)
				continue
			}
			return dispatched, err
		}

		if err := p.pool.Submit(func(taskCtx context.Context) {
			p.executor.Execute(taskCtx, job)
		}); err != nil {
			// The job is already off the queue; run it here rather than lose it.
			p.logger.Warn("pool rejected job, executing inline", "job_id", job.ID, "error", err)
			p.executor.Execute(ctx, job)
		}
		dispatched++
	}

	if dispatched > 0 {
		p.logger.Debug("poll tick dispatched jobs", "count", dispatched)
	}
	return dispatched, nil
}

func (p *Poller) quarantineRaw(ctx context.Context, decodeErr *queue.DecodeError) {
	p.logger.Error("dropping undecodable job payload to dead-letter sink", "error", decodeErr)
	if p.quarantine == nil {
		return
	}
	if err := p.quarantine.PushRaw(ctx, p.source.Name(), decodeErr.Raw, decodeErr.Error()); err != nil {
		p.logger.Error("failed to dead-letter undecodable payload", "error", err)
	}
}
