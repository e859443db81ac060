// Package queue implements a typed FIFO job queue on top of the coordination
// store's list primitive. Removal is final: there is no peek and no ack, so a
// consumer that crashes after Dequeue loses the job unless it re-enqueued it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/core"
)

// ErrEmpty is returned by the dequeue operations when no job is available.
var ErrEmpty = errors.New("queue: empty")

// DecodeError carries a payload that could not be decoded into a job.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("queue: decode job: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Queue is one job family's FIFO channel.
type Queue struct {
	name  string
	store coord.Store
	now   func() time.Time
}

// New returns the queue with the given name.
func New(store coord.Store, name string) *Queue {
	return &Queue{name: name, store: store, now: time.Now}
}

// ForKind returns the queue that carries jobs of the given kind.
func ForKind(store coord.Store, kind core.JobKind) *Queue {
	return New(store, string(kind))
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Key returns the store key backing this queue.
func Key(name string) string { return "queue:" + name }

// Enqueue appends job to the tail. A missing ID or timestamp is filled in.
func (q *Queue) Enqueue(ctx context.Context, job *core.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue %s: encode job: %w", q.name, err)
	}
	if err := q.store.ListPush(ctx, Key(q.name), string(data)); err != nil {
		return fmt.Errorf("queue %s: enqueue: %w", q.name, err)
	}
	return nil
}

// Dequeue removes and returns the head job without waiting.
func (q *Queue) Dequeue(ctx context.Context) (*core.Job, error) {
	raw, err := q.store.ListPop(ctx, Key(q.name))
	return q.decode(raw, err)
}

// DequeueBlocking waits up to timeout for a job to arrive.
func (q *Queue) DequeueBlocking(ctx context.Context, timeout time.Duration) (*core.Job, error) {
	raw, err := q.store.ListPopBlocking(ctx, Key(q.name), timeout)
	return q.decode(raw, err)
}

// Len returns the number of jobs waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.store.ListLen(ctx, Key(q.name))
}

func (q *Queue) decode(raw string, err error) (*core.Job, error) {
	if err != nil {
		if errors.Is(err, coord.ErrNil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("queue %s: dequeue: %w", q.name, err)
	}

	var job core.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}
	return &job, nil
}

// Set holds one queue per job kind and routes jobs to the matching queue.
type Set struct {
	queues map[core.JobKind]*Queue
}

var _ core.Producer = (*Set)(nil)

// NewSet builds the queues for every known job kind.
func NewSet(store coord.Store) *Set {
	s := &Set{queues: make(map[core.JobKind]*Queue, len(core.Kinds))}
	for _, kind := range core.Kinds {
		s.queues[kind] = ForKind(store, kind)
	}
	return s
}

// Get returns the queue for kind, or nil if the kind is unknown.
func (s *Set) Get(kind core.JobKind) *Queue {
	return s.queues[kind]
}

// Enqueue routes job to the queue of its kind.
func (s *Set) Enqueue(ctx context.Context, job *core.Job) error {
	q, ok := s.queues[job.Kind]
	if !ok {
		return fmt.Errorf("queue: unknown job kind %q", job.Kind)
	}
	return q.Enqueue(ctx, job)
}
