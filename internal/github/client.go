package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-github/v73/github"
	"golang.org/x/time/rate"

	"github.com/sevigo/code-pulse/internal/core"
)

const (
	commitsPerPage = 100
	// maxFilePages bounds the file listing of a single commit; the API
	// stops returning files after 3000 anyway.
	maxFilePages = 30
)

// Source implements core.SourceHost on the GitHub REST API. Every request
// waits for the shared rate limiter first.
type Source struct {
	clients ClientProvider
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ core.SourceHost = (*Source)(nil)

// NewSource creates a GitHub source allowing requestsPerSec requests with
// the given burst.
func NewSource(clients ClientProvider, requestsPerSec float64, burst int, logger *slog.Logger) *Source {
	if burst <= 0 {
		burst = 1
	}
	return &Source{
		clients: clients,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), burst),
		logger:  logger,
	}
}

// ListCommits lists one page of commits on the default branch committed
// after req.Since. A matching req.ETag yields a NotModified page, which does
// not count against the API quota.
func (s *Source) ListCommits(ctx context.Context, req core.ListCommitsRequest) (*core.CommitPage, error) {
	client, err := s.clients.ForInstallation(ctx, req.InstallationID)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(commitsPerPage))
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if !req.Since.IsZero() {
		q.Set("since", req.Since.UTC().Format(time.RFC3339))
	}
	u := fmt.Sprintf("repos/%s/%s/commits?%s", url.PathEscape(req.Owner), url.PathEscape(req.Repo), q.Encode())

	httpReq, err := client.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build commit listing request: %w", err)
	}
	if req.ETag != "" {
		httpReq.Header.Set("If-None-Match", req.ETag)
	}

	var commits []*github.RepositoryCommit
	resp, err := client.Do(ctx, httpReq, &commits)
	if resp != nil && resp.StatusCode == http.StatusNotModified {
		return &core.CommitPage{NotModified: true, ETag: req.ETag}, nil
	}
	if err != nil {
		s.logger.Error("failed to list commits", "owner", req.Owner, "repo", req.Repo, "page", req.Page, "error", err)
		return nil, err
	}

	page := &core.CommitPage{
		Commits:  make([]core.CommitRef, 0, len(commits)),
		NextPage: resp.NextPage,
		ETag:     resp.Header.Get("ETag"),
	}
	for _, c := range commits {
		page.Commits = append(page.Commits, commitRef(c))
	}
	return page, nil
}

// GetCommit retrieves a commit with its stats and every changed file. It
// handles pagination of the file list, which GitHub caps at 300 per page.
func (s *Source) GetCommit(ctx context.Context, owner, repo, sha string, installationID int64) (*core.CommitDetail, error) {
	client, err := s.clients.ForInstallation(ctx, installationID)
	if err != nil {
		return nil, err
	}

	var detail *core.CommitDetail
	opts := &github.ListOptions{PerPage: 300}

	for range maxFilePages {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		rc, resp, err := client.Repositories.GetCommit(ctx, owner, repo, sha, opts)
		if err != nil {
			s.logger.Error("failed to get commit", "owner", owner, "repo", repo, "sha", sha, "error", err)
			return nil, err
		}

		if detail == nil {
			detail = &core.CommitDetail{
				CommitRef: commitRef(rc),
				Additions: rc.GetStats().GetAdditions(),
				Deletions: rc.GetStats().GetDeletions(),
			}
		}
		for _, f := range rc.Files {
			detail.Files = append(detail.Files, core.ChangedFile{
				Filename: f.GetFilename(),
				Patch:    f.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return detail, nil
}

func commitRef(c *github.RepositoryCommit) core.CommitRef {
	ref := core.CommitRef{
		SHA:         c.GetSHA(),
		AuthorLogin: c.GetAuthor().GetLogin(),
		Message:     c.GetCommit().GetMessage(),
	}
	if committer := c.GetCommit().GetCommitter(); committer != nil {
		ref.CommittedAt = committer.GetDate().Time
	}
	return ref
}
