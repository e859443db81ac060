// Package status collects a point-in-time view of the pipeline from the
// coordination store, for the CLI and the monitor.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/normalize"
	"github.com/sevigo/code-pulse/internal/queue"
	"github.com/sevigo/code-pulse/internal/retry"
)

// DirtySets lists the sets swept by the aggregator.
var DirtySets = []string{aggregate.SetRepository, aggregate.SetUser, aggregate.SetTeamSprint}

type QueueStatus struct {
	Name        string `json:"name"`
	Depth       int64  `json:"depth"`
	DeadLetters int64  `json:"dead_letters"`
}

type DirtySetStatus struct {
	Name       string `json:"name"`
	Pending    int64  `json:"pending"`
	Processing int64  `json:"processing"`
}

type Snapshot struct {
	Queues    []QueueStatus           `json:"queues"`
	DirtySets []DirtySetStatus        `json:"dirty_sets"`
	Stats     []normalize.RunningStat `json:"stats"`
	TakenAt   time.Time               `json:"taken_at"`
}

// Collector reads snapshots.
type Collector struct {
	store      coord.Store
	queues     *queue.Set
	sink       *retry.Sink
	normalizer *normalize.Normalizer
}

func NewCollector(store coord.Store) *Collector {
	return &Collector{
		store:      store,
		queues:     queue.NewSet(store),
		sink:       retry.NewSink(store),
		normalizer: normalize.New(store),
	}
}

// Collect reads queue depths, dead-letter counts, dirty-set sizes and the
// running statistics of every score metric.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{TakenAt: time.Now().UTC()}

	for _, kind := range core.Kinds {
		q := c.queues.Get(kind)
		depth, err := q.Len(ctx)
		if err != nil {
			return nil, fmt.Errorf("queue %s depth: %w", kind, err)
		}
		dead, err := c.sink.Len(ctx, q.Name())
		if err != nil {
			return nil, fmt.Errorf("queue %s dead letters: %w", kind, err)
		}
		snap.Queues = append(snap.Queues, QueueStatus{Name: q.Name(), Depth: depth, DeadLetters: dead})
	}

	for _, set := range DirtySets {
		pending, err := c.store.SetCard(ctx, aggregate.DirtyKey(set))
		if err != nil {
			return nil, fmt.Errorf("dirty set %s: %w", set, err)
		}
		processing, err := c.store.SetCard(ctx, aggregate.ProcessingKey(set))
		if err != nil {
			return nil, fmt.Errorf("dirty set %s: %w", set, err)
		}
		snap.DirtySets = append(snap.DirtySets, DirtySetStatus{Name: set, Pending: pending, Processing: processing})
	}

	for _, metric := range core.ScoreMetrics {
		st, err := c.normalizer.Snapshot(ctx, metric)
		if err != nil {
			return nil, fmt.Errorf("running stat %s: %w", metric, err)
		}
		snap.Stats = append(snap.Stats, st)
	}
	return snap, nil
}

// TotalDeadLetters sums the dead letters of every queue.
func (s *Snapshot) TotalDeadLetters() int64 {
	var n int64
	for _, q := range s.Queues {
		n += q.DeadLetters
	}
	return n
}
