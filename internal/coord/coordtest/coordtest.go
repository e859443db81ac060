// Package coordtest provides a Redis-backed coord.Store for tests, running
// against an in-process miniredis server.
package coordtest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sevigo/code-pulse/internal/coord"
)

// NewStore starts a miniredis server that lives for the duration of the test
// and returns a store connected to it.
func NewStore(t testing.TB) (*coord.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return coord.NewRedisStore(client), mr
}
