package coord_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/coord/coordtest"
)

func TestRedisStore_ListIsFIFO(t *testing.T) {
	ctx := context.Background()
	s, _ := coordtest.NewStore(t)

	require.NoError(t, s.ListPush(ctx, "q", "a", "b"))
	require.NoError(t, s.ListPush(ctx, "q", "c"))

	n, err := s.ListLen(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, want := range []string{"a", "b", "c"} {
		got, err := s.ListPop(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = s.ListPop(ctx, "q")
	assert.ErrorIs(t, err, coord.ErrNil)
}

func TestRedisStore_ListPopBlockingTimesOut(t *testing.T) {
	ctx := context.Background()
	s, _ := coordtest.NewStore(t)

	_, err := s.ListPopBlocking(ctx, "empty", 50*time.Millisecond)
	assert.ErrorIs(t, err, coord.ErrNil)

	require.NoError(t, s.ListPush(ctx, "full", "x"))
	v, err := s.ListPopBlocking(ctx, "full", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestRedisStore_Sets(t *testing.T) {
	ctx := context.Background()
	s, _ := coordtest.NewStore(t)

	added, err := s.SetAdd(ctx, "set", "r1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.SetAdd(ctx, "set", "r1")
	require.NoError(t, err)
	assert.False(t, added, "second add of the same member is a no-op")

	_, err = s.SetAdd(ctx, "set", "r2")
	require.NoError(t, err)

	members, err := s.SetMembers(ctx, "set")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2"}, members)

	require.NoError(t, s.SetRemove(ctx, "set", "r1"))
	n, err := s.SetCard(ctx, "set")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisStore_Counters(t *testing.T) {
	ctx := context.Background()
	s, _ := coordtest.NewStore(t)

	_, err := s.GetInt(ctx, "missing")
	assert.ErrorIs(t, err, coord.ErrNil)

	n, err := s.Incr(ctx, "c", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	f, err := s.IncrFloat(ctx, "f", 1.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f, 1e-9)

	got, err := s.GetFloat(ctx, "f")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got, 1e-9)

	require.NoError(t, s.SetInt(ctx, "c", -1))
	n, err = s.GetInt(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)
}

func TestRedisStore_RenameIfAbsent(t *testing.T) {
	ctx := context.Background()
	s, _ := coordtest.NewStore(t)

	ok, err := s.RenameIfAbsent(ctx, "src", "dst")
	require.NoError(t, err)
	assert.False(t, ok, "missing source cannot be renamed")

	_, err = s.SetAdd(ctx, "src", "a")
	require.NoError(t, err)
	ok, err = s.RenameIfAbsent(ctx, "src", "dst")
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := s.Exists(ctx, "src")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.SetAdd(ctx, "src", "b")
	require.NoError(t, err)
	ok, err = s.RenameIfAbsent(ctx, "src", "dst")
	require.NoError(t, err)
	assert.False(t, ok, "rename must not clobber an existing target")

	require.NoError(t, s.Delete(ctx, "src", "dst"))
	exists, err = s.Exists(ctx, "dst")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStore_Prefix(t *testing.T) {
	ctx := context.Background()
	s, mr := coordtest.NewStore(t)

	_, err := s.Incr(ctx, "k", 1)
	require.NoError(t, err)
	assert.True(t, mr.Exists(coord.DefaultPrefix+"k"))
}

func TestRedisStore_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := coordtest.NewStore(t)

	require.NoError(t, s.SetWithTTL(ctx, "lease", "me", time.Minute))
	exists, err := s.Exists(ctx, "lease")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(2 * time.Minute)
	exists, err = s.Exists(ctx, "lease")
	require.NoError(t, err)
	assert.False(t, exists)
}
