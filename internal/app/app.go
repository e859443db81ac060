// Package app orchestrates the running service: the webhook server, one
// poller and worker pool per job queue, and the dirty-set sweeper.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/queue"
	"github.com/sevigo/code-pulse/internal/retry"
	"github.com/sevigo/code-pulse/internal/worker"
)

// HTTPServer is the part of server.Server the app drives.
type HTTPServer interface {
	Start() error
	Stop() error
}

// Pipeline is the consumer side of one queue.
type Pipeline struct {
	Kind   core.JobKind
	Poller *worker.Poller
	Pool   *worker.Pool
}

// Pipelines holds one Pipeline per job kind.
type Pipelines []*Pipeline

// NewPipelines builds a poller and pool per queue. Every job runs through a
// retry.Handler that dispatches on the registry and reports batch outcomes.
func NewPipelines(cfg *config.Config, queues *queue.Set, handler core.Handler, sink *retry.Sink, batches retry.BatchReporter, logger *slog.Logger) Pipelines {
	pipelines := make(Pipelines, 0, len(core.Kinds))
	for _, kind := range core.Kinds {
		qc := cfg.Queues.For(kind)
		q := queues.Get(kind)

		pool := worker.NewPool(worker.PoolConfig{
			Name:          string(kind),
			CoreSize:      qc.CoreWorkers,
			MaxSize:       qc.MaxWorkers,
			QueueCapacity: qc.Capacity,
			KeepAlive:     qc.KeepAlive,
		}, logger)
		executor := retry.NewHandler(q, handler, sink, batches, cfg.Queues.MaxRetries, logger)
		poller := worker.NewPoller(q, pool, executor, sink, worker.PollerConfig{
			Interval: qc.Interval,
			Budget:   qc.Budget,
		}, logger)

		pipelines = append(pipelines, &Pipeline{Kind: kind, Poller: poller, Pool: pool})
	}
	return pipelines
}

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     HTTPServer
	pipelines  Pipelines
	aggregator *aggregate.Aggregator
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewApp assembles the application.
func NewApp(cfg *config.Config, srv HTTPServer, pipelines Pipelines, aggregator *aggregate.Aggregator, logger *slog.Logger) *App {
	return &App{
		cfg:        cfg,
		server:     srv,
		pipelines:  pipelines,
		aggregator: aggregator,
		logger:     logger,
	}
}

// Start runs the server, the pollers and the sweeper, and blocks until ctx is
// cancelled, Stop is called, or one of them fails.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	a.mu.Lock()
	a.cancel = cancel
	a.group = g
	a.mu.Unlock()

	a.logger.Info("starting code-pulse",
		"server_port", a.cfg.Server.Port,
		"queues", len(a.pipelines),
		"sweep_interval", a.cfg.Sweep.Interval)

	g.Go(a.server.Start)
	for _, p := range a.pipelines {
		g.Go(func() error { return p.Poller.Run(gctx) })
	}
	g.Go(func() error { return a.aggregator.Run(gctx, a.cfg.Sweep.Interval) })

	// A failing component takes the server down with it.
	g.Go(func() error {
		<-gctx.Done()
		if err := a.server.Stop(); err != nil {
			a.logger.Error("error during HTTP server shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// Stop shuts down the application in order: the server stops accepting
// webhooks, the pollers stop dequeuing, and the pools drain what they hold.
func (a *App) Stop() error {
	a.logger.Info("shutting down code-pulse services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.mu.Lock()
	cancel, group := a.cancel, a.group
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		if err := group.Wait(); err != nil {
			a.logger.Warn("component exited with error", "error", err)
		}
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancelDrain := context.WithTimeout(context.Background(), timeout)
	defer cancelDrain()
	for _, p := range a.pipelines {
		p.Pool.Stop(ctx)
	}

	if serverErr != nil && !errors.Is(serverErr, context.Canceled) {
		a.logger.Error("code-pulse stopped with errors", "error", serverErr)
		return serverErr
	}
	a.logger.Info("code-pulse stopped successfully")
	return nil
}
