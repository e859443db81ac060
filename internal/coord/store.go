// Package coord provides the shared coordination store used as queue
// transport and as scratchpad for dirty sets, batch counters and running
// statistics. Multiple process instances coordinate through it, so nothing
// here may be replaced by in-process state.
package coord

import (
	"context"
	"errors"
	"time"
)

// ErrNil is returned when a read targets a key that does not exist, or a
// blocking pop times out.
var ErrNil = errors.New("coord: nil")

// Store is the set of atomic primitives the job-processing core relies on.
type Store interface {
	// ListPush appends values to the tail of the list.
	ListPush(ctx context.Context, key string, values ...string) error
	// ListPop removes and returns the head of the list, or ErrNil.
	ListPop(ctx context.Context, key string) (string, error)
	// ListPopBlocking waits up to timeout for a head element, or returns ErrNil.
	ListPopBlocking(ctx context.Context, key string, timeout time.Duration) (string, error)
	ListLen(ctx context.Context, key string) (int64, error)
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// SetAdd reports whether member was newly added.
	SetAdd(ctx context.Context, key, member string) (bool, error)
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetRemove(ctx context.Context, key, member string) error
	SetCard(ctx context.Context, key string) (int64, error)

	Incr(ctx context.Context, key string, delta int64) (int64, error)
	IncrFloat(ctx context.Context, key string, delta float64) (float64, error)
	GetInt(ctx context.Context, key string) (int64, error)
	GetFloat(ctx context.Context, key string) (float64, error)
	SetInt(ctx context.Context, key string, value int64) error
	// Get reads a string value, or returns ErrNil.
	Get(ctx context.Context, key string) (string, error)
	// SetWithTTL stores a string value that expires after ttl. A zero ttl
	// keeps the value until it is deleted.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// RenameIfAbsent renames src to dst only when dst does not exist. A
	// missing src reports false.
	RenameIfAbsent(ctx context.Context, src, dst string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	Ping(ctx context.Context) error
}
