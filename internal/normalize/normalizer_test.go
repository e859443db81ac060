package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/coord/coordtest"
)

func newNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	store, _ := coordtest.NewStore(t)
	return New(store)
}

func TestNormalize_FirstSampleIsReturnedRaw(t *testing.T) {
	n := newNormalizer(t)

	got, err := n.Normalize(context.Background(), "quality", 73.5)
	require.NoError(t, err)
	assert.Equal(t, 73.5, got)
}

func TestNormalize_ZeroVariance(t *testing.T) {
	ctx := context.Background()
	n := newNormalizer(t)

	_, err := n.Normalize(ctx, "quality", 50)
	require.NoError(t, err)
	got, err := n.Normalize(ctx, "quality", 50)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)
}

func TestNormalize_ValueAtMean(t *testing.T) {
	ctx := context.Background()
	n := newNormalizer(t)

	for _, v := range []float64{40, 80} {
		_, err := n.Normalize(ctx, "risk", v)
		require.NoError(t, err)
	}
	// Population becomes {40, 80, 60}; 60 is the mean.
	got, err := n.Normalize(ctx, "risk", 60)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)
}

func TestNormalize_Clamped(t *testing.T) {
	ctx := context.Background()
	n := newNormalizer(t)

	for i := 0; i < 20; i++ {
		_, err := n.Normalize(ctx, "quality", 50)
		require.NoError(t, err)
	}

	high, err := n.Normalize(ctx, "quality", 100)
	require.NoError(t, err)
	assert.Equal(t, Max, high)

	low, err := n.Normalize(ctx, "quality", 0)
	require.NoError(t, err)
	assert.Equal(t, Min, low)
}

func TestNormalize_MetricsAreIndependent(t *testing.T) {
	ctx := context.Background()
	n := newNormalizer(t)

	_, err := n.Normalize(ctx, "quality", 10)
	require.NoError(t, err)
	got, err := n.Normalize(ctx, "risk", 90)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got, "first sample of a metric is raw")

	stat, err := n.Snapshot(ctx, "quality")
	require.NoError(t, err)
	assert.Equal(t, RunningStat{Metric: "quality", Count: 1, Sum: 10, SumOfSquares: 100}, stat)
}

func TestRunningStat_Score(t *testing.T) {
	tests := []struct {
		name string
		stat RunningStat
		raw  float64
		want float64
	}{
		{
			name: "empty stat returns raw",
			stat: RunningStat{},
			raw:  42,
			want: 42,
		},
		{
			// {40, 60}: mean 50, sample stddev ~14.14.
			name: "one stddev above the mean",
			stat: RunningStat{Count: 2, Sum: 100, SumOfSquares: 5200},
			raw:  50 + 14.142135623730951,
			want: 70,
		},
		{
			name: "half a stddev below the mean",
			stat: RunningStat{Count: 2, Sum: 100, SumOfSquares: 5200},
			raw:  50 - 7.0710678118654755,
			want: 40,
		},
		{
			name: "degenerate population does not divide by zero",
			stat: RunningStat{Count: 3, Sum: 150, SumOfSquares: 7500},
			raw:  51,
			want: 100,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.stat.Score(tc.raw))
		})
	}
}

func TestNormalizeAll(t *testing.T) {
	ctx := context.Background()
	n := newNormalizer(t)

	got, err := n.NormalizeAll(ctx, map[string]float64{"quality": 80, "risk": 20})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"quality": 80, "risk": 20}, got)

	require.NoError(t, n.Reset(ctx, "quality"))
	stat, err := n.Snapshot(ctx, "quality")
	require.NoError(t, err)
	assert.Zero(t, stat.Count)
}
