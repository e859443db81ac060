package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sevigo/code-pulse/internal/core"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store defines the interface for all database operations. It extends the
// pipeline's CommitStore with the read side used by operators.
type Store interface {
	core.CommitStore
	GetEntityStats(ctx context.Context, kind, entityID string) (*core.EntityStats, error)
	ListEntityStats(ctx context.Context, kind string, limit int) ([]core.EntityStats, error)
	ListSyncRuns(ctx context.Context, repoFullName string, limit int) ([]core.SyncRun, error)
}

type postgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db, now: time.Now}
}

const commitColumns = `id, repo_full_name, sha, author_login, message, additions, deletions, diff, status, committed_at, created_at, updated_at`

// GetCommit retrieves a commit by repository and SHA.
func (s *postgresStore) GetCommit(ctx context.Context, repoFullName, sha string) (*core.Commit, error) {
	query := `SELECT ` + commitColumns + ` FROM commits WHERE repo_full_name = $1 AND sha = $2`

	var c core.Commit
	if err := s.db.GetContext(ctx, &c, query, repoFullName, sha); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get commit %s@%s: %w", repoFullName, sha, err)
	}
	return &c, nil
}

// UpsertCommit inserts a discovered commit. On conflict it only touches
// updated_at so RETURNING yields the row's current status.
func (s *postgresStore) UpsertCommit(ctx context.Context, commit *core.Commit) (bool, error) {
	query := `
		INSERT INTO commits (repo_full_name, sha, author_login, message, status, committed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (repo_full_name, sha) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id, status`

	now := s.now()
	var status core.CommitStatus
	err := s.db.QueryRowxContext(ctx, query,
		commit.RepoFullName, commit.SHA, commit.AuthorLogin, commit.Message,
		core.CommitDiscovered, commit.CommittedAt, now,
	).Scan(&commit.ID, &status)
	if err != nil {
		return false, fmt.Errorf("upsert commit %s@%s: %w", commit.RepoFullName, commit.SHA, err)
	}
	commit.Status = status
	return status == core.CommitDiscovered, nil
}

// UpdateCommitDetails stores the fetched diff and stats and marks the commit
// fetched. A commit that was already scored keeps its status.
func (s *postgresStore) UpdateCommitDetails(ctx context.Context, commit *core.Commit) error {
	query := `
		UPDATE commits
		SET author_login = $3, message = $4, additions = $5, deletions = $6, diff = $7,
		    status = CASE WHEN status = 'scored' THEN status ELSE 'fetched' END,
		    updated_at = $8
		WHERE repo_full_name = $1 AND sha = $2`

	res, err := s.db.ExecContext(ctx, query,
		commit.RepoFullName, commit.SHA, commit.AuthorLogin, commit.Message,
		commit.Additions, commit.Deletions, commit.Diff, s.now(),
	)
	if err != nil {
		return fmt.Errorf("update commit %s@%s: %w", commit.RepoFullName, commit.SHA, err)
	}
	return expectRow(res, "commit "+commit.RepoFullName+"@"+commit.SHA)
}

// SaveCommitScore stores the score and moves the commit to scored in one
// transaction.
func (s *postgresStore) SaveCommitScore(ctx context.Context, score *core.CommitScore) error {
	raw, err := json.Marshal(score.Raw)
	if err != nil {
		return fmt.Errorf("encode raw metrics: %w", err)
	}
	normalized, err := json.Marshal(score.Normalized)
	if err != nil {
		return fmt.Errorf("encode normalized metrics: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var commitID int64
	err = tx.QueryRowxContext(ctx,
		`UPDATE commits SET status = 'scored', updated_at = $3 WHERE repo_full_name = $1 AND sha = $2 RETURNING id`,
		score.RepoFullName, score.SHA, s.now(),
	).Scan(&commitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("commit %s@%s: %w", score.RepoFullName, score.SHA, ErrNotFound)
		}
		return fmt.Errorf("mark commit scored: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO commit_scores (commit_id, raw, normalized, overall, summary, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (commit_id) DO UPDATE SET
			raw = EXCLUDED.raw, normalized = EXCLUDED.normalized, overall = EXCLUDED.overall,
			summary = EXCLUDED.summary, scored_at = EXCLUDED.scored_at`,
		commitID, raw, normalized, score.Overall, score.Summary, score.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("save commit score: %w", err)
	}
	return tx.Commit()
}

// GetSyncState returns the incremental cursor of a repository.
func (s *postgresStore) GetSyncState(ctx context.Context, repoFullName string) (*core.SyncState, error) {
	var st core.SyncState
	err := s.db.GetContext(ctx, &st,
		`SELECT repo_full_name, etag, last_synced_at FROM sync_states WHERE repo_full_name = $1`, repoFullName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync state for %s: %w", repoFullName, err)
	}
	return &st, nil
}

func (s *postgresStore) SaveSyncState(ctx context.Context, state *core.SyncState) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sync_states (repo_full_name, etag, last_synced_at)
		VALUES (:repo_full_name, :etag, :last_synced_at)
		ON CONFLICT (repo_full_name) DO UPDATE SET etag = EXCLUDED.etag, last_synced_at = EXCLUDED.last_synced_at`,
		state)
	if err != nil {
		return fmt.Errorf("save sync state for %s: %w", state.RepoFullName, err)
	}
	return nil
}

func (s *postgresStore) SaveSyncRun(ctx context.Context, run *core.SyncRun) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sync_runs (batch_id, repo_full_name, total, succeeded, average_score, completed_at)
		VALUES (:batch_id, :repo_full_name, :total, :succeeded, :average_score, :completed_at)
		ON CONFLICT (batch_id) DO NOTHING`,
		run)
	if err != nil {
		return fmt.Errorf("save sync run %s: %w", run.BatchID, err)
	}
	return nil
}

const aggregateColumns = `COUNT(*) AS count, COALESCE(SUM(s.overall), 0) AS sum,
	COALESCE(MIN(s.overall), 0) AS min, COALESCE(MAX(s.overall), 0) AS max`

func (s *postgresStore) AggregateByRepository(ctx context.Context, repoFullName string) (*core.ScoreAggregate, error) {
	query := `SELECT ` + aggregateColumns + `
		FROM commit_scores s JOIN commits c ON c.id = s.commit_id
		WHERE c.repo_full_name = $1`
	return s.aggregate(ctx, query, repoFullName)
}

func (s *postgresStore) AggregateByAuthor(ctx context.Context, login string) (*core.ScoreAggregate, error) {
	query := `SELECT ` + aggregateColumns + `
		FROM commit_scores s JOIN commits c ON c.id = s.commit_id
		WHERE c.author_login = $1`
	return s.aggregate(ctx, query, login)
}

// AggregateByAuthors covers commits by any of logins committed in [from, to).
func (s *postgresStore) AggregateByAuthors(ctx context.Context, logins []string, from, to time.Time) (*core.ScoreAggregate, error) {
	query := `SELECT ` + aggregateColumns + `
		FROM commit_scores s JOIN commits c ON c.id = s.commit_id
		WHERE c.author_login = ANY($1) AND c.committed_at >= $2 AND c.committed_at < $3`
	return s.aggregate(ctx, query, pq.Array(logins), from, to)
}

func (s *postgresStore) aggregate(ctx context.Context, query string, args ...any) (*core.ScoreAggregate, error) {
	var agg core.ScoreAggregate
	if err := s.db.GetContext(ctx, &agg, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate scores: %w", err)
	}
	return &agg, nil
}

func (s *postgresStore) SaveEntityStats(ctx context.Context, stats *core.EntityStats) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO entity_stats (kind, entity_id, commit_count, average_score, min_score, max_score, computed_at)
		VALUES (:kind, :entity_id, :commit_count, :average_score, :min_score, :max_score, :computed_at)
		ON CONFLICT (kind, entity_id) DO UPDATE SET
			commit_count = EXCLUDED.commit_count, average_score = EXCLUDED.average_score,
			min_score = EXCLUDED.min_score, max_score = EXCLUDED.max_score, computed_at = EXCLUDED.computed_at`,
		stats)
	if err != nil {
		return fmt.Errorf("save %s stats for %s: %w", stats.Kind, stats.EntityID, err)
	}
	return nil
}

func (s *postgresStore) GetEntityStats(ctx context.Context, kind, entityID string) (*core.EntityStats, error) {
	var st core.EntityStats
	err := s.db.GetContext(ctx, &st, `
		SELECT kind, entity_id, commit_count, average_score, min_score, max_score, computed_at
		FROM entity_stats WHERE kind = $1 AND entity_id = $2`, kind, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", kind, entityID, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s stats: %w", kind, err)
	}
	return &st, nil
}

// ListEntityStats returns the best-scoring entities of a kind.
func (s *postgresStore) ListEntityStats(ctx context.Context, kind string, limit int) ([]core.EntityStats, error) {
	var out []core.EntityStats
	err := s.db.SelectContext(ctx, &out, `
		SELECT kind, entity_id, commit_count, average_score, min_score, max_score, computed_at
		FROM entity_stats WHERE kind = $1
		ORDER BY average_score DESC, entity_id
		LIMIT $2`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s stats: %w", kind, err)
	}
	return out, nil
}

// ListSyncRuns returns the most recent sync runs of a repository.
func (s *postgresStore) ListSyncRuns(ctx context.Context, repoFullName string, limit int) ([]core.SyncRun, error) {
	var out []core.SyncRun
	err := s.db.SelectContext(ctx, &out, `
		SELECT batch_id, repo_full_name, total, succeeded, average_score, completed_at
		FROM sync_runs WHERE repo_full_name = $1
		ORDER BY completed_at DESC
		LIMIT $2`, repoFullName, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs for %s: %w", repoFullName, err)
	}
	return out, nil
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
