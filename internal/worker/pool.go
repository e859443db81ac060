// Package worker drains job queues on a fixed schedule and executes the jobs
// on bounded goroutine pools.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sevigo/code-pulse/internal/metrics"
)

// ErrPoolStopped is returned by Submit after Stop was called.
var ErrPoolStopped = errors.New("worker pool is stopped")

// Task is a unit of work executed by the pool.
type Task func(ctx context.Context)

// PoolConfig sizes a pool.
type PoolConfig struct {
	Name          string
	CoreSize      int           // Goroutines kept alive for the lifetime of the pool.
	MaxSize       int           // Upper bound including temporary burst goroutines.
	QueueCapacity int           // Tasks buffered before the pool starts bursting.
	KeepAlive     time.Duration // Idle time after which a burst goroutine exits.
}

// Pool is a bounded goroutine pool. When both the task buffer and the burst
// capacity are exhausted, Submit runs the task on the calling goroutine, so a
// saturated pool throttles its producer instead of dropping work.
type Pool struct {
	cfg    PoolConfig
	tasks  chan Task      // Buffered tasks waiting for a worker.
	size   atomic.Int32   // Live worker goroutines, core and burst.
	wg     sync.WaitGroup // Tracks workers for graceful shutdown.
	mu     sync.RWMutex   // Guards stopped against concurrent Submit.
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	stopped bool
}

// NewPool starts the core workers of a pool. Invalid sizes are corrected:
// at least one core worker, max never below core, a buffer of at least one.
func NewPool(cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.CoreSize <= 0 {
		cfg.CoreSize = 1
	}
	if cfg.MaxSize < cfg.CoreSize {
		cfg.MaxSize = cfg.CoreSize
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		tasks:  make(chan Task, cfg.QueueCapacity),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("pool", cfg.Name),
	}
	p.startWorkers()
	return p
}

// startWorkers launches the core goroutines.
func (p *Pool) startWorkers() {
	for range p.cfg.CoreSize {
		p.size.Add(1)
		p.wg.Add(1)
		go p.coreWorker()
	}
	p.logger.Info("worker pool started", "core", p.cfg.CoreSize, "max", p.cfg.MaxSize, "capacity", p.cfg.QueueCapacity)
}

// coreWorker processes tasks until the buffer is closed.
func (p *Pool) coreWorker() {
	defer p.wg.Done()
	defer p.size.Add(-1)

	for task := range p.tasks {
		p.run(task)
	}
}

// burstWorker runs its first task, then keeps draining the buffer until it
// has been idle for KeepAlive.
func (p *Pool) burstWorker(first Task) {
	defer p.wg.Done()
	defer p.size.Add(-1)

	p.run(first)

	idle := time.NewTimer(p.cfg.KeepAlive)
	defer idle.Stop()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(task)
			idle.Reset(p.cfg.KeepAlive)
		case <-idle.C:
			return
		}
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "panic", r)
		}
	}()
	task(p.ctx)
}

// Submit hands task to the pool. It never drops work: if no worker can take
// the task it is executed synchronously before Submit returns.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return ErrPoolStopped
	}

	select {
	case p.tasks <- task:
		p.mu.RUnlock()
		return nil
	default:
	}

	if p.tryBurst(task) {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	metrics.CallerRuns.WithLabelValues(p.cfg.Name).Inc()
	p.logger.Debug("pool saturated, running task on caller")
	p.run(task)
	return nil
}

// tryBurst starts a temporary worker for task if the pool is below MaxSize.
// Callers hold the read lock so Stop cannot race the WaitGroup.
func (p *Pool) tryBurst(task Task) bool {
	for {
		n := p.size.Load()
		if int(n) >= p.cfg.MaxSize {
			return false
		}
		if p.size.CompareAndSwap(n, n+1) {
			p.wg.Add(1)
			go p.burstWorker(task)
			return true
		}
	}
}

// Size returns the number of live worker goroutines.
func (p *Pool) Size() int { return int(p.size.Load()) }

// Stop stops accepting tasks and waits for buffered and running ones. If ctx
// expires first, the task context is cancelled and Stop waits for the workers
// to notice.
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.logger.Info("stopping worker pool and waiting for tasks to finish")

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("all pool tasks have finished")
	case <-ctx.Done():
		p.logger.Warn("pool shutdown timed out, cancelling running tasks")
		p.cancel()
		<-done
	}
	p.cancel()
}
