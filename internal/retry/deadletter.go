// Package retry wraps job execution with bounded re-enqueueing and diverts
// jobs that exhausted their attempts to a per-queue dead-letter sink.
package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/queue"
)

// DeadLetter is the terminal record of a job that will not be retried.
// Raw is set instead of Job when the payload could not be decoded.
type DeadLetter struct {
	Queue    string    `json:"queue"`
	Job      *core.Job `json:"job,omitempty"`
	Raw      string    `json:"raw,omitempty"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// Sink stores dead letters in one list per queue.
type Sink struct {
	store coord.Store
	now   func() time.Time
}

// NewSink creates a dead-letter sink on the coordination store.
func NewSink(store coord.Store) *Sink {
	return &Sink{store: store, now: time.Now}
}

// Key returns the store key of the dead-letter list of a queue.
func Key(queueName string) string { return "dlq:" + queueName }

// Push appends an entry to the queue's dead-letter list.
func (s *Sink) Push(ctx context.Context, entry *DeadLetter) error {
	if entry.FailedAt.IsZero() {
		entry.FailedAt = s.now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	if err := s.store.ListPush(ctx, Key(entry.Queue), string(data)); err != nil {
		return fmt.Errorf("push dead letter: %w", err)
	}
	return nil
}

// PushRaw dead-letters a payload that never decoded into a job.
func (s *Sink) PushRaw(ctx context.Context, queueName, raw, reason string) error {
	return s.Push(ctx, &DeadLetter{Queue: queueName, Raw: raw, Reason: reason})
}

// Len returns the number of dead letters for a queue.
func (s *Sink) Len(ctx context.Context, queueName string) (int64, error) {
	return s.store.ListLen(ctx, Key(queueName))
}

// List returns up to limit entries starting at offset, oldest first.
func (s *Sink) List(ctx context.Context, queueName string, offset, limit int64) ([]*DeadLetter, error) {
	if limit <= 0 {
		return nil, nil
	}
	raws, err := s.store.ListRange(ctx, Key(queueName), offset, offset+limit-1)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	entries := make([]*DeadLetter, 0, len(raws))
	for _, raw := range raws {
		var e DeadLetter
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			entries = append(entries, &DeadLetter{Queue: queueName, Raw: raw, Reason: "unreadable dead letter: " + err.Error()})
			continue
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// Replay moves up to n of the oldest dead letters back to the live queue
// with their attempt counter reset. Entries without a decodable job are
// pushed back to the end of the sink and not counted.
func (s *Sink) Replay(ctx context.Context, q *queue.Queue, n int) (int, error) {
	available, err := s.Len(ctx, q.Name())
	if err != nil {
		return 0, fmt.Errorf("count dead letters: %w", err)
	}
	if int64(n) > available {
		n = int(available)
	}

	replayed := 0
	for i := 0; i < n; i++ {
		raw, err := s.store.ListPop(ctx, Key(q.Name()))
		if err != nil {
			if errors.Is(err, coord.ErrNil) {
				break
			}
			return replayed, fmt.Errorf("pop dead letter: %w", err)
		}

		var e DeadLetter
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.Job == nil {
			if pushErr := s.store.ListPush(ctx, Key(q.Name()), raw); pushErr != nil {
				return replayed, fmt.Errorf("restore unreplayable dead letter: %w", pushErr)
			}
			continue
		}

		job := e.Job
		job.Attempt = 0
		if err := q.Enqueue(ctx, job); err != nil {
			// Put it back so the replay can be attempted again.
			if pushErr := s.store.ListPush(ctx, Key(q.Name()), raw); pushErr != nil {
				return replayed, errors.Join(err, fmt.Errorf("restore dead letter %s, entry lost: %w", job.ID, pushErr))
			}
			return replayed, err
		}
		replayed++
	}
	return replayed, nil
}

// Purge deletes every dead letter of a queue.
func (s *Sink) Purge(ctx context.Context, queueName string) error {
	return s.store.Delete(ctx, Key(queueName))
}
