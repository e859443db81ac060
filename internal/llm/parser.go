package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sevigo/code-pulse/internal/core"
)

// ErrMalformedScore is returned when the model's answer cannot be turned
// into a complete score.
var ErrMalformedScore = errors.New("malformed score response")

type scoreResponse struct {
	Quality         *float64 `json:"quality"`
	Maintainability *float64 `json:"maintainability"`
	Risk            *float64 `json:"risk"`
	Summary         string   `json:"summary"`
}

// parseScoreResponse extracts the JSON score object from the model output.
// It tolerates the usual quirks: a ```json fence around the object and
// prose before or after it.
func parseScoreResponse(raw string) (*core.ScoreResult, error) {
	body := extractJSONObject(stripMarkdownFence(raw))
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedScore)
	}

	var resp scoreResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedScore, err)
	}

	fields := map[string]*float64{
		core.MetricQuality:         resp.Quality,
		core.MetricMaintainability: resp.Maintainability,
		core.MetricRisk:            resp.Risk,
	}
	result := &core.ScoreResult{
		Metrics: make(map[string]float64, len(fields)),
		Summary: strings.TrimSpace(resp.Summary),
	}
	for _, metric := range core.ScoreMetrics {
		v := fields[metric]
		if v == nil {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedScore, metric)
		}
		if math.IsNaN(*v) || *v < 0 || *v > 100 {
			return nil, fmt.Errorf("%w: %s=%v is outside 0..100", ErrMalformedScore, metric, *v)
		}
		result.Metrics[metric] = *v
	}
	return result, nil
}

// extractJSONObject returns the first balanced {...} in s, skipping braces
// inside string literals.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// stripMarkdownFence removes the ``` wrapping some models add around their output.
func stripMarkdownFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	// Find the end of the opening fence line
	idx := strings.Index(trimmed, "\n")
	if idx < 0 {
		return s
	}
	inner := trimmed[idx+1:]
	if lastFence := strings.LastIndex(inner, "```"); lastFence >= 0 {
		inner = inner[:lastFence]
	}
	return strings.TrimSpace(inner)
}
