package core

import (
	"context"
	"time"
)

// CommitRef is a commit listed by the source host, before details are fetched.
type CommitRef struct {
	SHA         string
	AuthorLogin string
	Message     string
	CommittedAt time.Time
}

// CommitPage is one page of an incremental commit listing.
type CommitPage struct {
	Commits     []CommitRef
	NextPage    int
	ETag        string
	NotModified bool
}

// CommitDetail is the full commit as returned by the source host.
type CommitDetail struct {
	CommitRef
	Additions int
	Deletions int
	Files     []ChangedFile
}

// ChangedFile holds the filename and patch data for a single file in a commit.
type ChangedFile struct {
	Filename string
	Patch    string
}

// ListCommitsRequest describes an incremental fetch.
type ListCommitsRequest struct {
	Owner          string
	Repo           string
	InstallationID int64
	Since          time.Time
	ETag           string
	Page           int
}

// SourceHost is the external source-hosting collaborator.
//
//go:generate mockgen -destination=../../mocks/mock_source_host.go -package=mocks . SourceHost
type SourceHost interface {
	ListCommits(ctx context.Context, req ListCommitsRequest) (*CommitPage, error)
	GetCommit(ctx context.Context, owner, repo, sha string, installationID int64) (*CommitDetail, error)
}

// ScoreRequest is the context the scoring service evaluates.
type ScoreRequest struct {
	RepoFullName string
	SHA          string
	Message      string
	Diff         string
}

// Metrics reported by the scoring service.
const (
	MetricQuality         = "quality"
	MetricMaintainability = "maintainability"
	MetricRisk            = "risk"
)

// ScoreMetrics lists the metrics every score result must carry.
var ScoreMetrics = []string{MetricQuality, MetricMaintainability, MetricRisk}

// OverallScore folds normalized metrics into one value. Risk counts
// inverted, since a risky change lowers the overall score.
func OverallScore(normalized map[string]float64) float64 {
	if len(normalized) == 0 {
		return 0
	}
	var sum float64
	for metric, v := range normalized {
		if metric == MetricRisk {
			v = 100 - v
		}
		sum += v
	}
	return sum / float64(len(normalized))
}

// ScoreResult is the structured multi-field answer of the scoring service.
// Metrics are raw values in the range 0..100.
type ScoreResult struct {
	Metrics map[string]float64
	Summary string
}

// Scorer is the external code-review scoring collaborator.
//
//go:generate mockgen -destination=../../mocks/mock_scorer.go -package=mocks . Scorer
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error)
}
