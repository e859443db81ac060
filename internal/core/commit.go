package core

import (
	"context"
	"time"
)

// CommitStatus tracks how far a commit has moved through the pipeline.
type CommitStatus string

const (
	CommitDiscovered CommitStatus = "discovered"
	CommitFetched    CommitStatus = "fetched"
	CommitScored     CommitStatus = "scored"
)

// Commit is the persisted view of a commit discovered on the source host.
type Commit struct {
	ID           int64        `db:"id"`
	RepoFullName string       `db:"repo_full_name"`
	SHA          string       `db:"sha"`
	AuthorLogin  string       `db:"author_login"`
	Message      string       `db:"message"`
	Additions    int          `db:"additions"`
	Deletions    int          `db:"deletions"`
	Diff         string       `db:"diff"`
	Status       CommitStatus `db:"status"`
	CommittedAt  time.Time    `db:"committed_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// CommitScore holds the raw and normalized metrics produced for a commit.
type CommitScore struct {
	RepoFullName string             `json:"repo_full_name"`
	SHA          string             `json:"sha"`
	Raw          map[string]float64 `json:"raw"`
	Normalized   map[string]float64 `json:"normalized"`
	Overall      float64            `json:"overall"`
	Summary      string             `json:"summary"`
	ScoredAt     time.Time          `json:"scored_at"`
}

// SyncState is the incremental cursor kept per repository.
type SyncState struct {
	RepoFullName string    `db:"repo_full_name"`
	ETag         string    `db:"etag"`
	LastSyncedAt time.Time `db:"last_synced_at"`
}

// SyncRun summarizes one finished sync batch.
type SyncRun struct {
	BatchID      string    `db:"batch_id"`
	RepoFullName string    `db:"repo_full_name"`
	Total        int64     `db:"total"`
	Succeeded    int64     `db:"succeeded"`
	AverageScore float64   `db:"average_score"`
	CompletedAt  time.Time `db:"completed_at"`
}

// ScoreAggregate is the raw material for statistics recomputation.
type ScoreAggregate struct {
	Count int64   `db:"count"`
	Sum   float64 `db:"sum"`
	Min   float64 `db:"min"`
	Max   float64 `db:"max"`
}

// EntityStats is a recomputed aggregate for a repository, user or team-sprint.
type EntityStats struct {
	Kind         string    `db:"kind"`
	EntityID     string    `db:"entity_id"`
	CommitCount  int64     `db:"commit_count"`
	AverageScore float64   `db:"average_score"`
	MinScore     float64   `db:"min_score"`
	MaxScore     float64   `db:"max_score"`
	ComputedAt   time.Time `db:"computed_at"`
}

// CommitStore is the persistence collaborator used by the job pipeline.
// All calls are synchronous and may fail.
//
//go:generate mockgen -destination=../../mocks/mock_commit_store.go -package=mocks . CommitStore
type CommitStore interface {
	// GetCommit returns nil without error for unknown commits.
	GetCommit(ctx context.Context, repoFullName, sha string) (*Commit, error)
	// UpsertCommit inserts the commit if it is unknown and reports whether it
	// still awaits fetching, which is also true for a known commit that never
	// left the discovered state.
	UpsertCommit(ctx context.Context, commit *Commit) (bool, error)
	UpdateCommitDetails(ctx context.Context, commit *Commit) error
	// SaveCommitScore stores the score and moves the commit to CommitScored.
	SaveCommitScore(ctx context.Context, score *CommitScore) error

	// GetSyncState returns nil without error for repositories never synced.
	GetSyncState(ctx context.Context, repoFullName string) (*SyncState, error)
	SaveSyncState(ctx context.Context, state *SyncState) error
	SaveSyncRun(ctx context.Context, run *SyncRun) error

	AggregateByRepository(ctx context.Context, repoFullName string) (*ScoreAggregate, error)
	AggregateByAuthor(ctx context.Context, login string) (*ScoreAggregate, error)
	AggregateByAuthors(ctx context.Context, logins []string, from, to time.Time) (*ScoreAggregate, error)
	SaveEntityStats(ctx context.Context, stats *EntityStats) error
}
