package llm

import (
	"context"

	"github.com/sevigo/goframe/llms"
)

// TokenCounter counts prompt tokens with the model's own tokenizer when it
// has one, and falls back to a character-based estimate otherwise.
type TokenCounter struct {
	model llms.Model
}

func NewTokenCounter(model llms.Model) *TokenCounter {
	return &TokenCounter{model: model}
}

// CountTokens returns the number of tokens in text.
func (c *TokenCounter) CountTokens(ctx context.Context, text string) int {
	if c.model != nil {
		if t, ok := c.model.(llms.Tokenizer); ok {
			n, err := t.CountTokens(ctx, text)
			if err == nil {
				return n
			}
		}
	}
	return EstimateTokens(text)
}

// EstimateTokens provides a fast, character-based estimation of token count.
func EstimateTokens(text string) int {
	return len(text) / 3
}

// FitDiff shortens diff until it fits into maxTokens. It reports whether
// anything was cut.
func (c *TokenCounter) FitDiff(ctx context.Context, diff string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || c.CountTokens(ctx, diff) <= maxTokens {
		return diff, false
	}
	// The estimate is close enough to size the cut; the loop corrects it.
	limit := maxTokens * 3
	for limit > 0 {
		if limit < len(diff) {
			diff = diff[:limit]
		}
		if c.CountTokens(ctx, diff) <= maxTokens {
			break
		}
		limit = limit * 9 / 10
	}
	return diff + "\n[diff truncated]\n", true
}
