package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/logger"
)

func newTestSource(t *testing.T, mux *http.ServeMux) *Source {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	return NewSource(NewStaticClientProvider(client), 1000, 10, logger.Discard())
}

func TestSource_ListCommits(t *testing.T) {
	since := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-04-01T00:00:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", `"v2"`)
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/acme/api/commits?page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `[{"sha":"a1","author":{"login":"alice"},"commit":{"message":"fix","committer":{"date":"2026-04-02T10:00:00Z"}}}]`)
	})
	source := newTestSource(t, mux)

	page, err := source.ListCommits(context.Background(), core.ListCommitsRequest{Owner: "acme", Repo: "api", Since: since, Page: 1})
	require.NoError(t, err)
	assert.False(t, page.NotModified)
	assert.Equal(t, `"v2"`, page.ETag)
	assert.Equal(t, 2, page.NextPage)
	require.Len(t, page.Commits, 1)
	assert.Equal(t, core.CommitRef{
		SHA:         "a1",
		AuthorLogin: "alice",
		Message:     "fix",
		CommittedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}, page.Commits[0])

	page, err = source.ListCommits(context.Background(), core.ListCommitsRequest{Owner: "acme", Repo: "api", Since: since, ETag: `"v1"`})
	require.NoError(t, err)
	assert.True(t, page.NotModified)
	assert.Empty(t, page.Commits)
}

func TestSource_ListCommitsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/commits", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	source := newTestSource(t, mux)

	_, err := source.ListCommits(context.Background(), core.ListCommitsRequest{Owner: "acme", Repo: "api"})
	require.Error(t, err)
}

func TestSource_GetCommitPaginatesFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/commits/a1", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"sha":"a1","stats":{"additions":5,"deletions":2},"files":[{"filename":"b.go","patch":"+b"}]}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/acme/api/commits/a1?page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `{"sha":"a1","author":{"login":"alice"},"commit":{"message":"feat"},"stats":{"additions":5,"deletions":2},"files":[{"filename":"a.go","patch":"+a"},{"filename":"img.png"}]}`)
	})
	source := newTestSource(t, mux)

	detail, err := source.GetCommit(context.Background(), "acme", "api", "a1", 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.AuthorLogin)
	assert.Equal(t, 5, detail.Additions)
	assert.Equal(t, 2, detail.Deletions)
	assert.Equal(t, []core.ChangedFile{
		{Filename: "a.go", Patch: "+a"},
		{Filename: "img.png"},
		{Filename: "b.go", Patch: "+b"},
	}, detail.Files)
}

func TestAppClientProvider_RequiresInstallation(t *testing.T) {
	p := &AppClientProvider{clients: map[int64]*github.Client{}, logger: logger.Discard()}
	_, err := p.ForInstallation(context.Background(), 0)
	assert.Error(t, err)
}
