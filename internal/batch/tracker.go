// Package batch tracks groups of jobs spawned from one triggering event and
// signals once every member reached a terminal state. All counters live in
// the coordination store and change only through atomic increments.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/metrics"
)

// ErrNotFound is returned for batches that were never opened or are gone.
var ErrNotFound = errors.New("batch not found")

// Unfinalized is the total of a batch whose members are still being spawned.
const Unfinalized int64 = -1

// Status is a snapshot of a batch's counters.
type Status struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Total     int64   `json:"total"`
	Processed int64   `json:"processed"`
	Succeeded int64   `json:"succeeded"`
	ScoreSum  float64 `json:"score_sum"`
}

// Ready reports whether every member of a finalized batch is done.
func (s Status) Ready() bool {
	return s.Total != Unfinalized && s.Processed >= s.Total
}

// CompletionFunc is invoked once per batch, with the final counters.
type CompletionFunc func(ctx context.Context, final Status)

// Tracker implements the batch lifecycle open -> add members -> finalize ->
// complete. Readiness is checked by both the finalizer and every completing
// member; a one-shot latch guarantees the completion callbacks run once.
type Tracker struct {
	store  coord.Store
	logger *slog.Logger

	mu        sync.RWMutex
	callbacks []CompletionFunc
}

// NewTracker creates a tracker on the coordination store.
func NewTracker(store coord.Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

func totalKey(id string) string     { return "batch:" + id + ":total" }
func processedKey(id string) string { return "batch:" + id + ":processed" }
func succeededKey(id string) string { return "batch:" + id + ":succeeded" }
func scoreKey(id string) string     { return "batch:" + id + ":score" }
func membersKey(id string) string   { return "batch:" + id + ":members" }
func firedKey(id string) string     { return "batch:" + id + ":fired" }
func labelKey(id string) string     { return "batch:" + id + ":label" }

func allKeys(id string) []string {
	return []string{totalKey(id), processedKey(id), succeededKey(id), scoreKey(id), membersKey(id), firedKey(id), labelKey(id)}
}

// OnComplete registers a callback for completed batches.
func (t *Tracker) OnComplete(fn CompletionFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, fn)
}

// Open allocates a batch with an unknown number of members. label is an
// opaque description handed back on completion (e.g. the repository).
func (t *Tracker) Open(ctx context.Context, label string) (string, error) {
	id := uuid.NewString()

	if err := t.store.SetInt(ctx, totalKey(id), Unfinalized); err != nil {
		return "", fmt.Errorf("open batch: %w", err)
	}
	for _, key := range []string{processedKey(id), succeededKey(id), scoreKey(id)} {
		if err := t.store.SetInt(ctx, key, 0); err != nil {
			return "", fmt.Errorf("open batch: %w", err)
		}
	}
	if err := t.store.SetWithTTL(ctx, labelKey(id), label, 0); err != nil {
		return "", fmt.Errorf("open batch: %w", err)
	}

	t.logger.Debug("batch opened", "batch_id", id, "label", label)
	return id, nil
}

// AddMember tags job as a member of the batch.
func (t *Tracker) AddMember(_ context.Context, id string, job *core.Job) {
	job.BatchID = id
}

// Finalize records the real member count. A batch with no members is deleted
// right away. It returns true if this call observed the batch completing,
// which happens when every member finished before spawning did.
func (t *Tracker) Finalize(ctx context.Context, id string, total int64) (bool, error) {
	if total == 0 {
		if err := t.store.Delete(ctx, allKeys(id)...); err != nil {
			return false, fmt.Errorf("delete empty batch: %w", err)
		}
		t.logger.Debug("empty batch discarded", "batch_id", id)
		return false, nil
	}

	if err := t.store.SetInt(ctx, totalKey(id), total); err != nil {
		return false, fmt.Errorf("finalize batch: %w", err)
	}
	t.logger.Debug("batch finalized", "batch_id", id, "total", total)

	return t.checkReady(ctx, id)
}

// RecordCompletion counts one member reaching a terminal state. A non-empty
// memberKey that was already counted is ignored, since at-least-once
// delivery can complete the same member twice. It returns true if this call
// observed the batch completing.
func (t *Tracker) RecordCompletion(ctx context.Context, id, memberKey string, success bool, scoreDelta float64) (bool, error) {
	exists, err := t.store.Exists(ctx, totalKey(id))
	if err != nil {
		return false, fmt.Errorf("record completion: %w", err)
	}
	if !exists {
		t.logger.Warn("completion for unknown or finished batch ignored", "batch_id", id, "member", memberKey)
		return false, nil
	}

	if memberKey != "" {
		added, err := t.store.SetAdd(ctx, membersKey(id), memberKey)
		if err != nil {
			return false, fmt.Errorf("record completion: %w", err)
		}
		if !added {
			t.logger.Debug("duplicate batch completion ignored", "batch_id", id, "member", memberKey)
			return false, nil
		}
	}

	if success {
		if _, err := t.store.Incr(ctx, succeededKey(id), 1); err != nil {
			return false, fmt.Errorf("record completion: %w", err)
		}
		if scoreDelta != 0 {
			if _, err := t.store.IncrFloat(ctx, scoreKey(id), scoreDelta); err != nil {
				return false, fmt.Errorf("record completion: %w", err)
			}
		}
	}
	// processed goes last so a reader that sees it complete also sees the
	// matching succeeded and score increments.
	if _, err := t.store.Incr(ctx, processedKey(id), 1); err != nil {
		return false, fmt.Errorf("record completion: %w", err)
	}

	// The batch may have completed and been deleted after the guard above,
	// in which case the writes here recreated orphan counters.
	exists, err = t.store.Exists(ctx, totalKey(id))
	if err != nil {
		return false, fmt.Errorf("record completion: %w", err)
	}
	if !exists {
		t.logger.Warn("completion raced batch end, discarding recreated counters", "batch_id", id, "member", memberKey)
		if err := t.store.Delete(ctx, allKeys(id)...); err != nil {
			return false, fmt.Errorf("discard recreated counters: %w", err)
		}
		return false, nil
	}

	return t.checkReady(ctx, id)
}

// Status reads the current counters of a batch.
func (t *Tracker) Status(ctx context.Context, id string) (Status, error) {
	st := Status{ID: id}

	total, err := t.store.GetInt(ctx, totalKey(id))
	if err != nil {
		if errors.Is(err, coord.ErrNil) {
			return st, ErrNotFound
		}
		return st, fmt.Errorf("batch status: %w", err)
	}
	st.Total = total

	if st.Processed, err = t.intOrZero(ctx, processedKey(id)); err != nil {
		return st, err
	}
	if st.Succeeded, err = t.intOrZero(ctx, succeededKey(id)); err != nil {
		return st, err
	}
	score, err := t.store.GetFloat(ctx, scoreKey(id))
	if err != nil && !errors.Is(err, coord.ErrNil) {
		return st, fmt.Errorf("batch status: %w", err)
	}
	st.ScoreSum = score

	label, err := t.store.Get(ctx, labelKey(id))
	if err != nil && !errors.Is(err, coord.ErrNil) {
		return st, fmt.Errorf("batch status: %w", err)
	}
	st.Label = label

	return st, nil
}

func (t *Tracker) intOrZero(ctx context.Context, key string) (int64, error) {
	n, err := t.store.GetInt(ctx, key)
	if err != nil && !errors.Is(err, coord.ErrNil) {
		return 0, fmt.Errorf("batch status: %w", err)
	}
	return n, nil
}

// checkReady fires the completion exactly once if the counters match.
func (t *Tracker) checkReady(ctx context.Context, id string) (bool, error) {
	st, err := t.Status(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !st.Ready() {
		return false, nil
	}

	n, err := t.store.Incr(ctx, firedKey(id), 1)
	if err != nil {
		return false, fmt.Errorf("claim batch completion: %w", err)
	}
	if n != 1 {
		return false, nil
	}
	// A winner that already fired deletes every key, the latch included, so
	// a fresh latch is only trusted while the counters still exist.
	st, err = t.Status(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = t.store.Delete(ctx, firedKey(id))
			return false, nil
		}
		return false, err
	}

	t.logger.Info("batch complete",
		"batch_id", id,
		"label", st.Label,
		"total", st.Total,
		"succeeded", st.Succeeded,
		"score_sum", st.ScoreSum,
	)
	metrics.BatchesCompleted.Inc()

	t.mu.RLock()
	callbacks := append([]CompletionFunc(nil), t.callbacks...)
	t.mu.RUnlock()
	for _, fn := range callbacks {
		fn(ctx, st)
	}

	if err := t.store.Delete(ctx, allKeys(id)...); err != nil {
		t.logger.Error("failed to delete completed batch counters", "batch_id", id, "error", err)
	}
	return true, nil
}
