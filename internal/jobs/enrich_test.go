package jobs

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/coord/coordtest"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/logger"
	"github.com/sevigo/code-pulse/internal/normalize"
	"github.com/sevigo/code-pulse/mocks"
)

type enrichFixture struct {
	job    *EnrichmentJob
	store  *mocks.MockCommitStore
	scorer *mocks.MockScorer
	agg    *aggregate.Aggregator
	coord  coord.Store
}

func newEnrichFixture(t *testing.T) *enrichFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	rs, _ := coordtest.NewStore(t)

	f := &enrichFixture{
		store:  mocks.NewMockCommitStore(ctrl),
		scorer: mocks.NewMockScorer(ctrl),
		agg:    aggregate.New(rs, time.Minute, logger.Discard()),
		coord:  rs,
	}
	f.job = NewEnrichmentJob(f.store, f.scorer, normalize.New(rs), f.agg, nil, logger.Discard())
	return f
}

func (f *enrichFixture) dirty(t *testing.T, set string) []string {
	t.Helper()
	members, err := f.coord.SetMembers(context.Background(), aggregate.DirtyKey(set))
	require.NoError(t, err)
	sort.Strings(members)
	return members
}

func TestEnrichmentJob_ScoresAndMarksDirty(t *testing.T) {
	f := newEnrichFixture(t)
	commit := &core.Commit{
		RepoFullName: "acme/api",
		SHA:          "a1",
		AuthorLogin:  "alice",
		Message:      "refactor",
		Diff:         "+x",
		Status:       core.CommitFetched,
	}

	f.store.EXPECT().GetCommit(gomock.Any(), "acme/api", "a1").Return(commit, nil)
	f.scorer.EXPECT().Score(gomock.Any(), core.ScoreRequest{RepoFullName: "acme/api", SHA: "a1", Message: "refactor", Diff: "+x"}).
		Return(&core.ScoreResult{
			Metrics: map[string]float64{core.MetricQuality: 80, core.MetricMaintainability: 70, core.MetricRisk: 30},
			Summary: "clean",
		}, nil)
	f.store.EXPECT().SaveCommitScore(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s *core.CommitScore) error {
			// First samples of each metric are not normalized.
			assert.Equal(t, s.Raw, s.Normalized)
			assert.InDelta(t, 73.33, s.Overall, 0.01)
			assert.Equal(t, "clean", s.Summary)
			return nil
		})

	res, err := f.job.Handle(context.Background(), &core.Job{RepoFullName: "acme/api", CommitSHA: "a1"})
	require.NoError(t, err)
	assert.InDelta(t, 73.33, res.ScoreDelta, 0.01)

	assert.Equal(t, []string{"acme/api"}, f.dirty(t, aggregate.SetRepository))
	assert.Equal(t, []string{"alice"}, f.dirty(t, aggregate.SetUser))
}

func TestEnrichmentJob_AlreadyScoredOnlyMarks(t *testing.T) {
	f := newEnrichFixture(t)

	f.store.EXPECT().GetCommit(gomock.Any(), "acme/api", "a1").
		Return(&core.Commit{RepoFullName: "acme/api", SHA: "a1", Status: core.CommitScored}, nil)

	res, err := f.job.Handle(context.Background(), &core.Job{RepoFullName: "acme/api", CommitSHA: "a1"})
	require.NoError(t, err)
	assert.Zero(t, res.ScoreDelta)
	assert.Equal(t, []string{"acme/api"}, f.dirty(t, aggregate.SetRepository))
}

func TestEnrichmentJob_Failures(t *testing.T) {
	t.Run("scorer failure", func(t *testing.T) {
		f := newEnrichFixture(t)
		f.store.EXPECT().GetCommit(gomock.Any(), "acme/api", "a1").
			Return(&core.Commit{RepoFullName: "acme/api", SHA: "a1", Status: core.CommitFetched}, nil)
		f.scorer.EXPECT().Score(gomock.Any(), gomock.Any()).Return(nil, errors.New("model overloaded"))

		_, err := f.job.Handle(context.Background(), &core.Job{RepoFullName: "acme/api", CommitSHA: "a1"})
		assert.ErrorContains(t, err, "model overloaded")
		assert.Empty(t, f.dirty(t, aggregate.SetRepository))
	})

	t.Run("not fetched yet", func(t *testing.T) {
		f := newEnrichFixture(t)
		f.store.EXPECT().GetCommit(gomock.Any(), "acme/api", "a1").
			Return(&core.Commit{Status: core.CommitDiscovered}, nil)

		_, err := f.job.Handle(context.Background(), &core.Job{RepoFullName: "acme/api", CommitSHA: "a1"})
		assert.ErrorContains(t, err, "has not been fetched")
	})
}
