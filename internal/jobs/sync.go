package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/code-pulse/internal/batch"
	"github.com/sevigo/code-pulse/internal/core"
)

// BatchOpener is the producer side of the batch tracker.
type BatchOpener interface {
	Open(ctx context.Context, label string) (string, error)
	AddMember(ctx context.Context, id string, job *core.Job)
	Finalize(ctx context.Context, id string, total int64) (bool, error)
}

// SyncJob discovers the commits pushed to a repository since its last sync
// and spawns one commit-fetch job per commit, grouped in a batch.
type SyncJob struct {
	source   core.SourceHost
	store    core.CommitStore
	batches  BatchOpener
	producer core.Producer
	maxPages int
	now      func() time.Time
	logger   *slog.Logger
}

// NewSyncJob creates the sync stage. maxPages bounds the listing walk.
func NewSyncJob(source core.SourceHost, store core.CommitStore, batches BatchOpener, producer core.Producer, maxPages int, logger *slog.Logger) *SyncJob {
	if maxPages <= 0 {
		maxPages = 10
	}
	return &SyncJob{
		source:   source,
		store:    store,
		batches:  batches,
		producer: producer,
		maxPages: maxPages,
		now:      time.Now,
		logger:   logger,
	}
}

// Handle runs one incremental sync.
func (j *SyncJob) Handle(ctx context.Context, job *core.Job) (core.Result, error) {
	owner, repo, err := validateJob(job, false)
	if err != nil {
		return core.Result{}, fmt.Errorf("input validation failed: %w", err)
	}

	state, err := j.store.GetSyncState(ctx, job.RepoFullName)
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to load sync state: %w", err)
	}
	if state == nil {
		state = &core.SyncState{RepoFullName: job.RepoFullName}
	}

	startedAt := j.now().UTC()
	req := core.ListCommitsRequest{
		Owner:          owner,
		Repo:           repo,
		InstallationID: job.InstallationID,
		Since:          state.LastSyncedAt,
		ETag:           state.ETag,
		Page:           1,
	}

	page, err := j.source.ListCommits(ctx, req)
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to list commits: %w", err)
	}
	if page.NotModified {
		j.logger.Info("repository unchanged since last sync", "repo", job.RepoFullName, "since", state.LastSyncedAt)
		return core.Result{}, nil
	}
	etag := page.ETag

	spawned, truncated, err := j.spawn(ctx, job, req, page)
	if err != nil {
		return core.Result{}, err
	}

	next := &core.SyncState{RepoFullName: job.RepoFullName, ETag: etag, LastSyncedAt: startedAt}
	if truncated {
		// The unseen tail is older than what was listed; keep the old cursor
		// so the next run still covers it.
		next.ETag = ""
		next.LastSyncedAt = state.LastSyncedAt
		j.logger.Warn("commit listing truncated", "repo", job.RepoFullName, "max_pages", j.maxPages)
	}
	if err := j.store.SaveSyncState(ctx, next); err != nil {
		return core.Result{}, fmt.Errorf("failed to save sync state: %w", err)
	}

	j.logger.Info("sync completed", "repo", job.RepoFullName, "spawned", spawned)
	return core.Result{}, nil
}

// spawn walks the listing from the given first page and enqueues a fetch job
// per commit that still awaits fetching. The batch is finalized with the
// number of jobs actually spawned, also when the walk fails halfway, so no
// batch stays open forever.
func (j *SyncJob) spawn(ctx context.Context, job *core.Job, req core.ListCommitsRequest, page *core.CommitPage) (spawned int64, truncated bool, err error) {
	batchID, err := j.batches.Open(ctx, job.RepoFullName)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open batch: %w", err)
	}
	defer func() {
		if _, ferr := j.batches.Finalize(ctx, batchID, spawned); ferr != nil {
			j.logger.Error("failed to finalize batch", "batch_id", batchID, "error", ferr)
			if err == nil {
				err = fmt.Errorf("failed to finalize batch: %w", ferr)
			}
		}
	}()

	for pages := 1; ; pages++ {
		for _, ref := range page.Commits {
			pending, err := j.store.UpsertCommit(ctx, &core.Commit{
				RepoFullName: job.RepoFullName,
				SHA:          ref.SHA,
				AuthorLogin:  ref.AuthorLogin,
				Message:      ref.Message,
				Status:       core.CommitDiscovered,
				CommittedAt:  ref.CommittedAt,
			})
			if err != nil {
				return spawned, false, fmt.Errorf("failed to record commit %s: %w", ref.SHA, err)
			}
			if !pending {
				continue
			}

			fetch := &core.Job{
				Kind:           core.KindCommitFetch,
				RepoFullName:   job.RepoFullName,
				CommitSHA:      ref.SHA,
				InstallationID: job.InstallationID,
			}
			j.batches.AddMember(ctx, batchID, fetch)
			if err := j.producer.Enqueue(ctx, fetch); err != nil {
				return spawned, false, fmt.Errorf("failed to enqueue fetch of %s: %w", ref.SHA, err)
			}
			spawned++
		}

		if page.NextPage == 0 {
			return spawned, false, nil
		}
		if pages >= j.maxPages {
			return spawned, true, nil
		}

		req.Page = page.NextPage
		req.ETag = ""
		page, err = j.source.ListCommits(ctx, req)
		if err != nil {
			return spawned, false, fmt.Errorf("failed to list commits page %d: %w", req.Page, err)
		}
	}
}

// RecordRun persists the summary of a finished sync batch. It is registered
// as a batch completion callback.
func (j *SyncJob) RecordRun(ctx context.Context, st batch.Status) {
	run := &core.SyncRun{
		BatchID:      st.ID,
		RepoFullName: st.Label,
		Total:        st.Total,
		Succeeded:    st.Succeeded,
		CompletedAt:  j.now().UTC(),
	}
	if st.Succeeded > 0 {
		run.AverageScore = st.ScoreSum / float64(st.Succeeded)
	}
	if err := j.store.SaveSyncRun(ctx, run); err != nil {
		j.logger.Error("failed to save sync run", "batch_id", st.ID, "repo", st.Label, "error", err)
	}
}
