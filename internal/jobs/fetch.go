package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/code-pulse/internal/core"
)

// CommitFetchJob loads the details of one discovered commit and hands it to
// the enrichment stage.
type CommitFetchJob struct {
	source       core.SourceHost
	store        core.CommitStore
	producer     core.Producer
	maxDiffBytes int
	logger       *slog.Logger
}

// NewCommitFetchJob creates the fetch stage.
func NewCommitFetchJob(source core.SourceHost, store core.CommitStore, producer core.Producer, maxDiffBytes int, logger *slog.Logger) *CommitFetchJob {
	return &CommitFetchJob{
		source:       source,
		store:        store,
		producer:     producer,
		maxDiffBytes: maxDiffBytes,
		logger:       logger,
	}
}

// Handle fetches the commit unless an earlier delivery already did. A
// successful run is a hand-off: the enrichment job inherits the batch.
func (j *CommitFetchJob) Handle(ctx context.Context, job *core.Job) (core.Result, error) {
	owner, repo, err := validateJob(job, true)
	if err != nil {
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
		j.logger.Debug("commit already scored, skipping fetch", "key", job.Key())
		return core.Result{}, nil
	case core.CommitFetched:
		// A previous delivery stored the details but may have died before
		// enqueueing the follow-up.
		return j.handOff(ctx, job)
	}

	detail, err := j.source.GetCommit(ctx, owner, repo, job.CommitSHA, job.InstallationID)
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to fetch commit: %w", err)
	}

	diff, truncated := BuildDiff(detail.Files, j.maxDiffBytes)
	if truncated {
		j.logger.Info("commit diff truncated", "key", job.Key(), "files", len(detail.Files))
	}

	commit.Additions = detail.Additions
	commit.Deletions = detail.Deletions
	commit.Diff = diff
	commit.Status = core.CommitFetched
	if commit.AuthorLogin == "" {
		commit.AuthorLogin = detail.AuthorLogin
	}
	if commit.Message == "" {
		commit.Message = detail.Message
	}
	if err := j.store.UpdateCommitDetails(ctx, commit); err != nil {
		return core.Result{}, fmt.Errorf("failed to store commit details: %w", err)
	}

	return j.handOff(ctx, job)
}

func (j *CommitFetchJob) handOff(ctx context.Context, job *core.Job) (core.Result, error) {
	next := &core.Job{
		Kind:           core.KindEnrichment,
		RepoFullName:   job.RepoFullName,
		CommitSHA:      job.CommitSHA,
		InstallationID: job.InstallationID,
		BatchID:        job.BatchID,
	}
	if err := j.producer.Enqueue(ctx, next); err != nil {
		return core.Result{}, fmt.Errorf("failed to enqueue enrichment: %w", err)
	}
	return core.Result{HandedOff: true}, nil
}
