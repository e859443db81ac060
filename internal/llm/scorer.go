// Package llm turns a commit into quality, maintainability and risk scores
// by prompting a generative model and parsing its JSON answer.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/goframe/llms"
	"golang.org/x/time/rate"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/metrics"
)

// Completer sends a prompt to a model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type modelCompleter struct {
	model llms.Model
}

// NewModelCompleter adapts a goframe model to Completer.
func NewModelCompleter(model llms.Model) Completer {
	return &modelCompleter{model: model}
}

func (m *modelCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return m.model.Call(ctx, prompt)
}

// ScorerConfig tunes a Scorer.
type ScorerConfig struct {
	Provider       ModelProvider
	RequestsPerSec float64
	Timeout        time.Duration
	// MaxDiffTokens bounds the diff part of the prompt. Zero disables trimming.
	MaxDiffTokens int
}

// Scorer implements core.Scorer on top of a generative model. Calls are
// throttled so a burst of enrichment jobs cannot flood the model.
type Scorer struct {
	completer Completer
	prompts   *PromptManager
	tokens    *TokenCounter
	limiter   *rate.Limiter
	cfg       ScorerConfig
	logger    *slog.Logger
}

var _ core.Scorer = (*Scorer)(nil)

func NewScorer(completer Completer, prompts *PromptManager, tokens *TokenCounter, cfg ScorerConfig, logger *slog.Logger) *Scorer {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if tokens == nil {
		tokens = NewTokenCounter(nil)
	}
	return &Scorer{
		completer: completer,
		prompts:   prompts,
		tokens:    tokens,
		limiter:   rate.NewLimiter(limit, 1),
		cfg:       cfg,
		logger:    logger,
	}
}

// Score asks the model to rate one commit.
func (s *Scorer) Score(ctx context.Context, req core.ScoreRequest) (*core.ScoreResult, error) {
	diff, truncated := s.tokens.FitDiff(ctx, req.Diff, s.cfg.MaxDiffTokens)
	if truncated {
		s.logger.Debug("diff trimmed to fit the prompt", "repo", req.RepoFullName, "sha", req.SHA)
	}
	req.Diff = diff

	prompt, err := s.prompts.Render(CommitScorePrompt, s.cfg.Provider, req)
	if err != nil {
		return nil, fmt.Errorf("could not render score prompt: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := s.completer.Complete(ctx, prompt)
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("scoring call failed: %w", err)
	}

	result, err := parseScoreResponse(answer)
	if err != nil {
		s.logger.Warn("model returned an unusable score", "repo", req.RepoFullName, "sha", req.SHA, "error", err)
		return nil, err
	}
	return result, nil
}
