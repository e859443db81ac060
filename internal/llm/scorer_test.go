package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/core"
)

type fakeCompleter struct {
	mu      sync.Mutex
	answer  string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

func newTestScorer(t *testing.T, c Completer, cfg ScorerConfig) *Scorer {
	t.Helper()
	pm, err := NewPromptManager()
	require.NoError(t, err)
	return NewScorer(c, pm, nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScorer_Score(t *testing.T) {
	c := &fakeCompleter{answer: `{"quality": 75, "maintainability": 65, "risk": 30, "summary": "Reasonable."}`}
	s := newTestScorer(t, c, ScorerConfig{})

	res, err := s.Score(context.Background(), core.ScoreRequest{
		RepoFullName: "acme/api",
		SHA:          "abc123",
		Message:      "fix: handle nil config",
		Diff:         "--- a/main.go\n+++ b/main.go\n+if cfg == nil { return }",
	})
	require.NoError(t, err)
	assert.Equal(t, 75.0, res.Metrics[core.MetricQuality])
	assert.Equal(t, "Reasonable.", res.Summary)

	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "acme/api")
	assert.Contains(t, c.prompts[0], "abc123")
	assert.Contains(t, c.prompts[0], "fix: handle nil config")
	assert.Contains(t, c.prompts[0], "if cfg == nil")
}

func TestScorer_ProviderVariant(t *testing.T) {
	c := &fakeCompleter{answer: `{"quality": 1, "maintainability": 2, "risk": 3}`}
	s := newTestScorer(t, c, ScorerConfig{Provider: "gemini"})

	_, err := s.Score(context.Background(), core.ScoreRequest{SHA: "abc"})
	require.NoError(t, err)
	assert.Contains(t, c.prompts[0], `<commit sha="abc">`)

	c = &fakeCompleter{answer: `{"quality": 1, "maintainability": 2, "risk": 3}`}
	s = newTestScorer(t, c, ScorerConfig{Provider: "ollama"})
	_, err = s.Score(context.Background(), core.ScoreRequest{SHA: "abc"})
	require.NoError(t, err)
	assert.Contains(t, c.prompts[0], "Commit abc", "providers without a variant use the default prompt")
}

func TestScorer_Errors(t *testing.T) {
	t.Run("model failure", func(t *testing.T) {
		s := newTestScorer(t, &fakeCompleter{err: errors.New("connection refused")}, ScorerConfig{})
		_, err := s.Score(context.Background(), core.ScoreRequest{})
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("unusable answer", func(t *testing.T) {
		s := newTestScorer(t, &fakeCompleter{answer: "I cannot score this."}, ScorerConfig{})
		_, err := s.Score(context.Background(), core.ScoreRequest{})
		assert.True(t, errors.Is(err, ErrMalformedScore))
	})

	t.Run("timeout", func(t *testing.T) {
		s := newTestScorer(t, &fakeCompleter{delay: time.Second}, ScorerConfig{Timeout: 20 * time.Millisecond})
		_, err := s.Score(context.Background(), core.ScoreRequest{})
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("cancelled while throttled", func(t *testing.T) {
		c := &fakeCompleter{answer: `{"quality": 1, "maintainability": 2, "risk": 3}`}
		s := newTestScorer(t, c, ScorerConfig{RequestsPerSec: 0.01})
		_, err := s.Score(context.Background(), core.ScoreRequest{})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = s.Score(ctx, core.ScoreRequest{})
		assert.Error(t, err)
		assert.Len(t, c.prompts, 1)
	})
}

func TestScorer_TrimsLongDiff(t *testing.T) {
	c := &fakeCompleter{answer: `{"quality": 1, "maintainability": 2, "risk": 3}`}
	s := newTestScorer(t, c, ScorerConfig{MaxDiffTokens: 100})

	_, err := s.Score(context.Background(), core.ScoreRequest{Diff: strings.Repeat("x", 10000)})
	require.NoError(t, err)
	assert.Contains(t, c.prompts[0], "[diff truncated]")
	assert.Less(t, len(c.prompts[0]), 2000)
}

func TestTokenCounter_FitDiff(t *testing.T) {
	tc := NewTokenCounter(nil)

	diff, cut := tc.FitDiff(context.Background(), "short", 100)
	assert.False(t, cut)
	assert.Equal(t, "short", diff)

	diff, cut = tc.FitDiff(context.Background(), strings.Repeat("y", 900), 100)
	assert.True(t, cut)
	assert.LessOrEqual(t, EstimateTokens(strings.TrimSuffix(diff, "\n[diff truncated]\n")), 100)

	diff, cut = tc.FitDiff(context.Background(), strings.Repeat("y", 900), 0)
	assert.False(t, cut)
	assert.Len(t, diff, 900)
}

func TestNewPromptManager(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	_, err = pm.Get("unknown", DefaultProvider)
	assert.Error(t, err)

	_, err = pm.Render(CommitScorePrompt, DefaultProvider, struct{}{})
	assert.Error(t, err, "missing fields must not render silently")

	_, _, err = splitPromptName("noprovider.prompt")
	assert.Error(t, err)
}
