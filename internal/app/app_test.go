package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/coord/coordtest"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/queue"
	"github.com/sevigo/code-pulse/internal/retry"
)

type fakeServer struct {
	stopOnce sync.Once
	stopped  chan struct{}
	startErr error
	stops    atomic.Int32
}

func newFakeServer() *fakeServer { return &fakeServer{stopped: make(chan struct{})} }

func (s *fakeServer) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.stopped
	return nil
}

func (s *fakeServer) Stop() error {
	s.stops.Add(1)
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

func testConfig() *config.Config {
	q := config.QueueConfig{Interval: 10 * time.Millisecond, Budget: 5, CoreWorkers: 1, MaxWorkers: 2, Capacity: 2, KeepAlive: time.Second}
	return &config.Config{
		Server: config.ServerConfig{Port: "0", ShutdownTimeout: time.Second},
		Queues: config.QueuesConfig{Sync: q, CommitFetch: q, Enrichment: q, MaxRetries: 1},
		Sweep:  config.SweepConfig{Interval: 10 * time.Millisecond, LeaseTTL: time.Minute},
	}
}

func TestApp_ProcessesJobsAndStops(t *testing.T) {
	store, _ := coordtest.NewStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	queues := queue.NewSet(store)
	sink := retry.NewSink(store)

	var handled sync.Map
	handler := core.HandlerFunc(func(_ context.Context, job *core.Job) (core.Result, error) {
		if job.RepoFullName == "acme/broken" {
			return core.Result{}, errors.New("boom")
		}
		handled.Store(job.Key(), job.Kind)
		return core.Result{}, nil
	})

	swept := make(chan string, 10)
	agg := aggregate.New(store, time.Minute, logger)
	agg.Register(aggregate.SetRepository, aggregate.RecomputeFunc(func(_ context.Context, id string) error {
		swept <- id
		return nil
	}))

	srv := newFakeServer()
	a := NewApp(cfg, srv, NewPipelines(cfg, queues, handler, sink, nil, logger), agg, logger)

	done := make(chan error, 1)
	go func() { done <- a.Start(context.Background()) }()

	ctx := context.Background()
	require.NoError(t, queues.Enqueue(ctx, &core.Job{Kind: core.KindSync, RepoFullName: "acme/api"}))
	require.NoError(t, queues.Enqueue(ctx, &core.Job{Kind: core.KindEnrichment, RepoFullName: "acme/api", CommitSHA: "abc"}))
	require.NoError(t, queues.Enqueue(ctx, &core.Job{Kind: core.KindCommitFetch, RepoFullName: "acme/broken", CommitSHA: "def"}))
	require.NoError(t, agg.MarkDirty(ctx, aggregate.SetRepository, "acme/api"))

	require.Eventually(t, func() bool {
		_, synced := handled.Load("acme/api")
		_, enrich := handled.Load("acme/api@abc")
		n, _ := sink.Len(ctx, string(core.KindCommitFetch))
		return synced && enrich && n == 1
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case id := <-swept:
		assert.Equal(t, "acme/api", id)
	case <-time.After(5 * time.Second):
		t.Fatal("dirty entity was never swept")
	}

	require.NoError(t, a.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.GreaterOrEqual(t, srv.stops.Load(), int32(1))
}

func TestApp_ServerFailureStopsEverything(t *testing.T) {
	store, _ := coordtest.NewStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()

	srv := newFakeServer()
	srv.startErr = errors.New("address already in use")
	handler := core.HandlerFunc(func(context.Context, *core.Job) (core.Result, error) { return core.Result{}, nil })
	a := NewApp(cfg, srv, NewPipelines(cfg, queue.NewSet(store), handler, retry.NewSink(store), nil, logger), aggregate.New(store, 0, logger), logger)

	err := a.Start(context.Background())
	assert.ErrorContains(t, err, "address already in use")
	assert.NoError(t, a.Stop())
}

func TestNewPipelines(t *testing.T) {
	store, _ := coordtest.NewStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	handler := core.HandlerFunc(func(context.Context, *core.Job) (core.Result, error) { return core.Result{}, nil })

	pipelines := NewPipelines(cfg, queue.NewSet(store), handler, retry.NewSink(store), nil, logger)
	t.Cleanup(func() {
		for _, p := range pipelines {
			p.Pool.Stop(context.Background())
		}
	})

	require.Len(t, pipelines, len(core.Kinds))
	for i, kind := range core.Kinds {
		assert.Equal(t, kind, pipelines[i].Kind)
		assert.Equal(t, 1, pipelines[i].Pool.Size())
	}
}
