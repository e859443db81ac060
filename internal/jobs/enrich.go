package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/stats"
)

// Normalizer turns raw metric values into population-relative scores.
type Normalizer interface {
	NormalizeAll(ctx context.Context, raw map[string]float64) (map[string]float64, error)
}

// EnrichmentJob scores a fetched commit and marks the aggregates it feeds.
type EnrichmentJob struct {
	store      core.CommitStore
	scorer     core.Scorer
	normalizer Normalizer
	dirty      aggregate.Marker
	teams      *config.TeamDirectory
	now        func() time.Time
	logger     *slog.Logger
}

// NewEnrichmentJob creates the enrichment stage. teams may be nil.
func NewEnrichmentJob(store core.CommitStore, scorer core.Scorer, normalizer Normalizer, dirty aggregate.Marker, teams *config.TeamDirectory, logger *slog.Logger) *EnrichmentJob {
	return &EnrichmentJob{
		store:      store,
		scorer:     scorer,
		normalizer: normalizer,
		dirty:      dirty,
		teams:      teams,
		now:        time.Now,
		logger:     logger,
	}
}

// Handle scores the commit once. Repeated deliveries of a scored commit only
// re-mark its aggregates, so a mark lost to a crash is restored by the retry.
func (j *EnrichmentJob) Handle(ctx context.Context, job *core.Job) (core.Result, error) {
	if _, _, err := validateJob(job, true); err != nil {
		return core.Result{}, fmt.Errorf("input validation failed: %w", err)
	}

	commit, err := j.store.GetCommit(ctx, job.RepoFullName, job.CommitSHA)
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to load commit: %w", err)
	}
	if commit == nil {
		return core.Result{}, fmt.Errorf("commit %s is unknown", job.Key())
	}

	switch commit.Status {
	case core.CommitScored:
		j.logger.Debug("commit already scored, skipping enrichment", "key", job.Key())
		return core.Result{}, j.markDirty(ctx, commit)
	case core.CommitDiscovered:
		return core.Result{}, fmt.Errorf("commit %s has not been fetched", job.Key())
	}

	result, err := j.scorer.Score(ctx, core.ScoreRequest{
		RepoFullName: commit.RepoFullName,
		SHA:          commit.SHA,
		Message:      commit.Message,
		Diff:         commit.Diff,
	})
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to score commit: %w", err)
	}

	normalized, err := j.normalizer.NormalizeAll(ctx, result.Metrics)
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to normalize scores: %w", err)
	}

	score := &core.CommitScore{
		RepoFullName: commit.RepoFullName,
		SHA:          commit.SHA,
		Raw:          result.Metrics,
		Normalized:   normalized,
		Overall:      core.OverallScore(normalized),
		Summary:      result.Summary,
		ScoredAt:     j.now().UTC(),
	}
	if err := j.store.SaveCommitScore(ctx, score); err != nil {
		return core.Result{}, fmt.Errorf("failed to save commit score: %w", err)
	}

	if err := j.markDirty(ctx, commit); err != nil {
		return core.Result{}, err
	}

	j.logger.Info("commit scored", "key", job.Key(), "overall", score.Overall)
	return core.Result{ScoreDelta: score.Overall}, nil
}

func (j *EnrichmentJob) markDirty(ctx context.Context, commit *core.Commit) error {
	for set, ids := range stats.DirtyEntities(j.teams, commit) {
		for _, id := range ids {
			if err := j.dirty.MarkDirty(ctx, set, id); err != nil {
				return err
			}
		}
	}
	return nil
}
