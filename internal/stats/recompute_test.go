package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/logger"
	"github.com/sevigo/code-pulse/mocks"
)

var fixedNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func testTeams(t *testing.T) *config.TeamDirectory {
	t.Helper()
	teams, err := config.ParseTeamDirectory([]byte(`
sprint:
  start: "2026-01-05"
  length_days: 14
teams:
  - name: platform
    members: [alice, bob]
  - name: data
    members: [bob]
`))
	require.NoError(t, err)
	return teams
}

func newRecomputers(t *testing.T, store core.CommitStore) *Recomputers {
	r := New(store, testTeams(t), logger.Discard())
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCommitStore(ctrl)

	store.EXPECT().AggregateByRepository(gomock.Any(), "acme/api").
		Return(&core.ScoreAggregate{Count: 4, Sum: 240, Min: 30, Max: 90}, nil)
	store.EXPECT().SaveEntityStats(gomock.Any(), &core.EntityStats{
		Kind:         aggregate.SetRepository,
		EntityID:     "acme/api",
		CommitCount:  4,
		AverageScore: 60,
		MinScore:     30,
		MaxScore:     90,
		ComputedAt:   fixedNow,
	}).Return(nil)

	require.NoError(t, newRecomputers(t, store).Repository(context.Background(), "acme/api"))
}

func TestUser_NoScoredCommits(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCommitStore(ctrl)

	store.EXPECT().AggregateByAuthor(gomock.Any(), "alice").Return(&core.ScoreAggregate{}, nil)
	store.EXPECT().SaveEntityStats(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s *core.EntityStats) error {
			assert.Equal(t, int64(0), s.CommitCount)
			assert.Zero(t, s.AverageScore)
			return nil
		})

	require.NoError(t, newRecomputers(t, store).User(context.Background(), "alice"))
}

func TestUser_SourceFailureIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCommitStore(ctrl)

	store.EXPECT().AggregateByAuthor(gomock.Any(), "alice").Return(nil, errors.New("connection reset"))

	err := newRecomputers(t, store).User(context.Background(), "alice")
	assert.ErrorContains(t, err, "connection reset")
}

func TestTeamSprint(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCommitStore(ctrl)

	start := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	store.EXPECT().AggregateByAuthors(gomock.Any(), []string{"alice", "bob"}, start, start.AddDate(0, 0, 14)).
		Return(&core.ScoreAggregate{Count: 2, Sum: 150, Min: 70, Max: 80}, nil)
	store.EXPECT().SaveEntityStats(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s *core.EntityStats) error {
			assert.Equal(t, aggregate.SetTeamSprint, s.Kind)
			assert.Equal(t, "platform@2026-01-19", s.EntityID)
			assert.Equal(t, 75.0, s.AverageScore)
			return nil
		})

	require.NoError(t, newRecomputers(t, store).TeamSprint(context.Background(), "platform@2026-01-19"))
}

func TestTeamSprint_UnrecoverableIDsAreDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCommitStore(ctrl)
	r := newRecomputers(t, store)

	for _, id := range []string{"platform", "platform@someday", "ghosts@2026-01-19", "@2026-01-19"} {
		assert.NoError(t, r.TeamSprint(context.Background(), id), id)
	}
}

func TestTeamSprintID(t *testing.T) {
	start := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	id := TeamSprintID("team@home", start)
	assert.Equal(t, "team@home@2026-01-19", id)

	team, parsed, err := ParseTeamSprintID(id)
	require.NoError(t, err)
	assert.Equal(t, "team@home", team)
	assert.True(t, start.Equal(parsed))
}

func TestDirtyEntities(t *testing.T) {
	teams := testTeams(t)
	commit := &core.Commit{
		RepoFullName: "acme/api",
		AuthorLogin:  "bob",
		CommittedAt:  time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
	}

	got := DirtyEntities(teams, commit)
	assert.Equal(t, map[string][]string{
		aggregate.SetRepository: {"acme/api"},
		aggregate.SetUser:       {"bob"},
		aggregate.SetTeamSprint: {"platform@2026-01-19", "data@2026-01-19"},
	}, got)

	commit.AuthorLogin = ""
	assert.Equal(t, map[string][]string{aggregate.SetRepository: {"acme/api"}}, DirtyEntities(teams, commit))
}

func TestRegister(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := aggregate.New(nil, time.Minute, logger.Discard())
	newRecomputers(t, mocks.NewMockCommitStore(ctrl)).Register(a)

	assert.Equal(t, []string{aggregate.SetRepository, aggregate.SetUser, aggregate.SetTeamSprint}, a.Sets())
}
