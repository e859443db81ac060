// Package stats recomputes the per-repository, per-author and per-team-sprint
// score aggregates the sweeper asks for.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/core"
)

// Recomputers builds entity statistics from the persisted commit scores.
type Recomputers struct {
	store  core.CommitStore
	teams  *config.TeamDirectory
	now    func() time.Time
	logger *slog.Logger
}

// New creates the recomputers. teams may be nil when no team directory is
// configured; team-sprint entities are then skipped.
func New(store core.CommitStore, teams *config.TeamDirectory, logger *slog.Logger) *Recomputers {
	return &Recomputers{store: store, teams: teams, now: time.Now, logger: logger}
}

// Register attaches every recomputer to the aggregator.
func (r *Recomputers) Register(a *aggregate.Aggregator) {
	a.Register(aggregate.SetRepository, aggregate.RecomputeFunc(r.Repository))
	a.Register(aggregate.SetUser, aggregate.RecomputeFunc(r.User))
	a.Register(aggregate.SetTeamSprint, aggregate.RecomputeFunc(r.TeamSprint))
}

// Repository recomputes the stats of one repository.
func (r *Recomputers) Repository(ctx context.Context, repoFullName string) error {
	agg, err := r.store.AggregateByRepository(ctx, repoFullName)
	if err != nil {
		return fmt.Errorf("aggregate repository %s: %w", repoFullName, err)
	}
	return r.save(ctx, aggregate.SetRepository, repoFullName, agg)
}

// User recomputes the stats of one commit author.
func (r *Recomputers) User(ctx context.Context, login string) error {
	agg, err := r.store.AggregateByAuthor(ctx, login)
	if err != nil {
		return fmt.Errorf("aggregate author %s: %w", login, err)
	}
	return r.save(ctx, aggregate.SetUser, login, agg)
}

// TeamSprint recomputes the stats of a team inside one sprint. The entity id
// is produced by TeamSprintID.
func (r *Recomputers) TeamSprint(ctx context.Context, entityID string) error {
	if r.teams == nil {
		r.logger.Warn("no team directory configured, dropping team-sprint entity", "entity", entityID)
		return nil
	}

	teamName, start, err := ParseTeamSprintID(entityID)
	if err != nil {
		// A malformed id never becomes valid, so retrying it is pointless.
		r.logger.Error("dropping malformed team-sprint entity", "entity", entityID, "error", err)
		return nil
	}
	team, ok := r.teams.Team(teamName)
	if !ok {
		r.logger.Warn("team no longer exists, dropping team-sprint entity", "entity", entityID)
		return nil
	}

	_, end := r.teams.SprintWindow(start)
	agg, err := r.store.AggregateByAuthors(ctx, team.Members, start, end)
	if err != nil {
		return fmt.Errorf("aggregate team %s sprint %s: %w", teamName, config.FormatSprintStart(start), err)
	}
	return r.save(ctx, aggregate.SetTeamSprint, entityID, agg)
}

func (r *Recomputers) save(ctx context.Context, kind, entityID string, agg *core.ScoreAggregate) error {
	stats := &core.EntityStats{
		Kind:       kind,
		EntityID:   entityID,
		ComputedAt: r.now().UTC(),
	}
	if agg != nil && agg.Count > 0 {
		stats.CommitCount = agg.Count
		stats.AverageScore = agg.Sum / float64(agg.Count)
		stats.MinScore = agg.Min
		stats.MaxScore = agg.Max
	}

	if err := r.store.SaveEntityStats(ctx, stats); err != nil {
		return fmt.Errorf("save %s stats for %s: %w", kind, entityID, err)
	}
	r.logger.Debug("entity stats recomputed", "kind", kind, "entity", entityID, "commits", stats.CommitCount)
	return nil
}

// TeamSprintID identifies a team inside the sprint that starts at start.
func TeamSprintID(team string, start time.Time) string {
	return team + "@" + config.FormatSprintStart(start)
}

// ParseTeamSprintID splits an id produced by TeamSprintID.
func ParseTeamSprintID(id string) (string, time.Time, error) {
	i := strings.LastIndex(id, "@")
	if i <= 0 || i == len(id)-1 {
		return "", time.Time{}, fmt.Errorf("invalid team-sprint id %q", id)
	}
	start, err := config.ParseSprintStart(id[i+1:])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid team-sprint id %q: %w", id, err)
	}
	return id[:i], start, nil
}

// DirtyEntities lists every aggregate a scored commit contributes to.
func DirtyEntities(teams *config.TeamDirectory, commit *core.Commit) map[string][]string {
	out := map[string][]string{
		aggregate.SetRepository: {commit.RepoFullName},
	}
	if commit.AuthorLogin == "" {
		return out
	}
	out[aggregate.SetUser] = []string{commit.AuthorLogin}

	if teams == nil {
		return out
	}
	start, _ := teams.SprintWindow(commit.CommittedAt)
	for _, team := range teams.TeamsOf(commit.AuthorLogin) {
		out[aggregate.SetTeamSprint] = append(out[aggregate.SetTeamSprint], TeamSprintID(team, start))
	}
	return out
}
