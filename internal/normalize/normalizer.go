// Package normalize maps raw metric scores onto a 0..100 scale relative to
// the running population of every score seen for that metric.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sevigo/code-pulse/internal/coord"
)

const (
	// Center is the normalized value of a score at the running mean.
	Center = 50.0
	// Spread is how many points one standard deviation moves the result.
	Spread = 20.0

	Min = 0.0
	Max = 100.0

	// varianceFloor keeps a zero-variance population from dividing by zero.
	varianceFloor = 1e-6
)

// RunningStat is the state kept per metric.
type RunningStat struct {
	Metric       string  `json:"metric"`
	Count        int64   `json:"count"`
	Sum          float64 `json:"sum"`
	SumOfSquares float64 `json:"sum_of_squares"`
}

// Mean returns the running mean, or 0 for an empty stat.
func (s RunningStat) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// StdDev returns the sample standard deviation, floored so it is never zero.
func (s RunningStat) StdDev() float64 {
	if s.Count < 2 {
		return 0
	}
	n := float64(s.Count)
	variance := (s.SumOfSquares - s.Sum*s.Sum/n) / (n - 1)
	return math.Sqrt(math.Max(variance, varianceFloor))
}

// Score converts raw into a rounded value in [Min, Max] against the stat.
// With fewer than two samples raw is returned unchanged.
func (s RunningStat) Score(raw float64) float64 {
	if s.Count < 2 {
		return raw
	}
	z := (raw - s.Mean()) / s.StdDev()
	normalized := Center + Spread*z
	return math.Round(math.Min(Max, math.Max(Min, normalized)))
}

// Normalizer keeps running statistics in the coordination store.
type Normalizer struct {
	store coord.Store
}

// New creates a normalizer.
func New(store coord.Store) *Normalizer {
	return &Normalizer{store: store}
}

func countKey(metric string) string { return "stat:" + metric + ":count" }
func sumKey(metric string) string   { return "stat:" + metric + ":sum" }
func sumsqKey(metric string) string { return "stat:" + metric + ":sumsq" }

// Normalize folds raw into the metric's running stat and returns its
// normalized value. The three counters are incremented independently, so a
// concurrent caller may read a stat that includes only part of another
// sample. The stat is never rolled back.
func (n *Normalizer) Normalize(ctx context.Context, metric string, raw float64) (float64, error) {
	if _, err := n.store.Incr(ctx, countKey(metric), 1); err != nil {
		return 0, fmt.Errorf("update %s count: %w", metric, err)
	}
	if _, err := n.store.IncrFloat(ctx, sumKey(metric), raw); err != nil {
		return 0, fmt.Errorf("update %s sum: %w", metric, err)
	}
	if _, err := n.store.IncrFloat(ctx, sumsqKey(metric), raw*raw); err != nil {
		return 0, fmt.Errorf("update %s sum of squares: %w", metric, err)
	}

	stat, err := n.Snapshot(ctx, metric)
	if err != nil {
		return 0, err
	}
	return stat.Score(raw), nil
}

// NormalizeAll normalizes every metric of a score result.
func (n *Normalizer) NormalizeAll(ctx context.Context, raw map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for metric, value := range raw {
		normalized, err := n.Normalize(ctx, metric, value)
		if err != nil {
			return nil, err
		}
		out[metric] = normalized
	}
	return out, nil
}

// Snapshot reads the running stat of a metric. An unseen metric has a zero
// stat.
func (n *Normalizer) Snapshot(ctx context.Context, metric string) (RunningStat, error) {
	stat := RunningStat{Metric: metric}

	count, err := n.store.GetInt(ctx, countKey(metric))
	if err != nil && !errors.Is(err, coord.ErrNil) {
		return stat, fmt.Errorf("read %s count: %w", metric, err)
	}
	stat.Count = count

	sum, err := n.store.GetFloat(ctx, sumKey(metric))
	if err != nil && !errors.Is(err, coord.ErrNil) {
		return stat, fmt.Errorf("read %s sum: %w", metric, err)
	}
	stat.Sum = sum

	sumsq, err := n.store.GetFloat(ctx, sumsqKey(metric))
	if err != nil && !errors.Is(err, coord.ErrNil) {
		return stat, fmt.Errorf("read %s sum of squares: %w", metric, err)
	}
	stat.SumOfSquares = sumsq

	return stat, nil
}

// Reset drops the running stat of a metric.
func (n *Normalizer) Reset(ctx context.Context, metric string) error {
	return n.store.Delete(ctx, countKey(metric), sumKey(metric), sumsqKey(metric))
}
