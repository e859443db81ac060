// Package aggregate keeps derived statistics eventually consistent. Writers
// mark the affected entities dirty; a periodic sweep claims each dirty set
// and recomputes its members from authoritative data.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/metrics"
)

// Dirty set names.
const (
	SetRepository = "repository"
	SetUser       = "user"
	SetTeamSprint = "team-sprint"
)

// DefaultLeaseTTL bounds how long a claimed set may stay unattended before
// another sweeper adopts it.
const DefaultLeaseTTL = 5 * time.Minute

// Recomputer rebuilds the aggregate of one entity and persists it.
type Recomputer interface {
	Recompute(ctx context.Context, entityID string) error
}

// RecomputeFunc adapts a function to the Recomputer interface.
type RecomputeFunc func(ctx context.Context, entityID string) error

// Recompute calls f(ctx, entityID).
func (f RecomputeFunc) Recompute(ctx context.Context, entityID string) error {
	return f(ctx, entityID)
}

// Marker records entities that owe a recompute.
type Marker interface {
	MarkDirty(ctx context.Context, set, entityID string) error
}

// DirtyKey is the live set that collects new dirty marks.
func DirtyKey(set string) string { return "dirty:" + set }

// ProcessingKey is the claimed set a sweep works through.
func ProcessingKey(set string) string { return "dirty:" + set + ":processing" }

func leaseKey(set string) string { return "dirty:" + set + ":processing:lease" }

// SweepResult reports what a sweep did for one set.
type SweepResult struct {
	Set        string `json:"set"`
	Claimed    bool   `json:"claimed"`
	Recomputed int    `json:"recomputed"`
	Failed     int    `json:"failed"`
}

// Aggregator owns the dirty sets and their sweep.
type Aggregator struct {
	store    coord.Store
	sets     []string
	recomp   map[string]Recomputer
	leaseTTL time.Duration
	owner    string
	logger   *slog.Logger
}

var _ Marker = (*Aggregator)(nil)

// New creates an aggregator. Register a Recomputer per set before sweeping.
func New(store coord.Store, leaseTTL time.Duration, logger *slog.Logger) *Aggregator {
	if leaseTTL <= 0 {
		leaseTTL = DefaultLeaseTTL
	}
	return &Aggregator{
		store:    store,
		recomp:   make(map[string]Recomputer),
		leaseTTL: leaseTTL,
		owner:    uuid.NewString(),
		logger:   logger,
	}
}

// Register attaches the recomputer of a dirty set. Sets are swept in
// registration order.
func (a *Aggregator) Register(set string, r Recomputer) {
	if _, ok := a.recomp[set]; !ok {
		a.sets = append(a.sets, set)
	}
	a.recomp[set] = r
}

// Sets returns the registered set names.
func (a *Aggregator) Sets() []string {
	return append([]string(nil), a.sets...)
}

// MarkDirty records that entityID in set needs recomputing. It is an
// idempotent add and safe to call while a sweep is running.
func (a *Aggregator) MarkDirty(ctx context.Context, set, entityID string) error {
	if _, err := a.store.SetAdd(ctx, DirtyKey(set), entityID); err != nil {
		return fmt.Errorf("mark %s/%s dirty: %w", set, entityID, err)
	}
	return nil
}

// Run sweeps every interval until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) error {
	a.logger.Info("starting dirty-set sweeper", "interval", interval, "sets", a.sets)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down dirty-set sweeper")
			return nil
		case <-ticker.C:
			if _, err := a.Sweep(ctx); err != nil {
				a.logger.Error("sweep abandoned", "error", err)
			}
		}
	}
}

// Sweep runs one pass over every registered set. A store failure abandons
// the pass; whatever was claimed stays claimed and is picked up again once
// its lease expires.
func (a *Aggregator) Sweep(ctx context.Context) ([]SweepResult, error) {
	results := make([]SweepResult, 0, len(a.sets))
	for _, set := range a.sets {
		res, err := a.sweepSet(ctx, set)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("sweep %s: %w", set, err)
		}
	}
	return results, nil
}

func (a *Aggregator) sweepSet(ctx context.Context, set string) (SweepResult, error) {
	res := SweepResult{Set: set}

	claimed, err := a.claim(ctx, set)
	if err != nil || !claimed {
		return res, err
	}
	res.Claimed = true

	members, err := a.store.SetMembers(ctx, ProcessingKey(set))
	if err != nil {
		return res, err
	}

	recomputer := a.recomp[set]
	for _, id := range members {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		if err := recomputer.Recompute(ctx, id); err != nil {
			a.logger.Warn("recompute failed, entity stays dirty", "set", set, "entity", id, "error", err)
			metrics.SweptEntities.WithLabelValues(set, "failed").Inc()
			res.Failed++
			// Re-mark before dropping it from the claimed set so the signal
			// survives the deletion of the claimed set.
			if err := a.MarkDirty(ctx, set, id); err != nil {
				return res, err
			}
		} else {
			metrics.SweptEntities.WithLabelValues(set, "recomputed").Inc()
			res.Recomputed++
		}

		if err := a.store.SetRemove(ctx, ProcessingKey(set), id); err != nil {
			return res, err
		}
	}

	if err := a.store.Delete(ctx, ProcessingKey(set), leaseKey(set)); err != nil {
		return res, err
	}

	if res.Recomputed > 0 || res.Failed > 0 {
		a.logger.Info("dirty set swept", "set", set, "recomputed", res.Recomputed, "failed", res.Failed)
	}
	return res, nil
}

// claim moves the live set to the processing name. The rename only succeeds
// when no processing set exists, which is what keeps concurrent sweepers
// apart. A processing set whose lease expired belongs to a sweeper that
// died mid-pass and is adopted.
func (a *Aggregator) claim(ctx context.Context, set string) (bool, error) {
	ok, err := a.store.RenameIfAbsent(ctx, DirtyKey(set), ProcessingKey(set))
	if err != nil {
		return false, err
	}
	if ok {
		return true, a.store.SetWithTTL(ctx, leaseKey(set), a.owner, a.leaseTTL)
	}

	pending, err := a.store.Exists(ctx, ProcessingKey(set))
	if err != nil || !pending {
		return false, err
	}

	leased, err := a.store.Exists(ctx, leaseKey(set))
	if err != nil {
		return false, err
	}
	if leased {
		a.logger.Debug("dirty set is being swept elsewhere", "set", set)
		return false, nil
	}

	a.logger.Warn("adopting orphaned claimed set", "set", set)
	return true, a.store.SetWithTTL(ctx, leaseKey(set), a.owner, a.leaseTTL)
}
