package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/core"
)

func TestAIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  AIConfig
		wantErr bool
	}{
		{
			name: "Valid ollama config",
			config: AIConfig{
				LLMProvider:    "ollama",
				OllamaHost:     "http://localhost:11434",
				GeneratorModel: "gemma3:latest",
				RequestsPerSec: 1,
			},
			wantErr: false,
		},
		{
			name: "Gemini without API key",
			config: AIConfig{
				LLMProvider:    "gemini",
				GeneratorModel: "gemini-2.5-flash",
				RequestsPerSec: 1,
			},
			wantErr: true,
		},
		{
			name: "Unknown provider",
			config: AIConfig{
				LLMProvider:    "openai",
				GeneratorModel: "gpt",
				RequestsPerSec: 1,
			},
			wantErr: true,
		},
		{
			name: "Zero rate",
			config: AIConfig{
				LLMProvider:    "ollama",
				OllamaHost:     "http://localhost:11434",
				GeneratorModel: "gemma3:latest",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("AIConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGitHubConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  GitHubConfig
		wantErr bool
	}{
		{
			name:    "App credentials",
			config:  GitHubConfig{AppID: 42, PrivateKeyPath: "key.pem", WebhookSecret: "s", RequestsPerSec: 1},
			wantErr: false,
		},
		{
			name:    "Personal token",
			config:  GitHubConfig{Token: "ghp_x", WebhookSecret: "s", RequestsPerSec: 1},
			wantErr: false,
		},
		{
			name:    "No credentials",
			config:  GitHubConfig{WebhookSecret: "s", RequestsPerSec: 1},
			wantErr: true,
		},
		{
			name:    "No webhook secret",
			config:  GitHubConfig{Token: "ghp_x", RequestsPerSec: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("GitHubConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_DefaultsAndEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QUEUES_SYNC_BUDGET", "7")
	t.Setenv("QUEUES_COMMIT_FETCH_INTERVAL", "20ms")
	t.Setenv("REDIS_PREFIX", "test:")
	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("GITHUB_WEBHOOK_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Queues.Sync.Budget)
	assert.Equal(t, 20*time.Millisecond, cfg.Queues.CommitFetch.Interval)
	assert.Equal(t, 900*time.Millisecond, cfg.Queues.Enrichment.Interval)
	assert.Equal(t, 3, cfg.Queues.MaxRetries)
	assert.Equal(t, "test:", cfg.Redis.Prefix)
	assert.Equal(t, "gemma3:latest", cfg.AI.GeneratorModel)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, cfg.Queues.CommitFetch, cfg.Queues.For(core.KindCommitFetch))
}

func TestLoad_GeminiDefaultModel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AI_LLM_PROVIDER", "gemini")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.GeneratorModel)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yml := "sweep:\n  interval: 10s\n  lease_ttl: 1m\nqueues:\n  max_retries: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Sweep.Interval)
	assert.Equal(t, time.Minute, cfg.Sweep.LeaseTTL)
	assert.Equal(t, 5, cfg.Queues.MaxRetries)
}

func TestQueuesConfig_Validate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Queues.Validate())

	broken := cfg.Queues
	broken.Enrichment.MaxWorkers = 1
	broken.Enrichment.CoreWorkers = 2
	assert.Error(t, broken.Validate())

	broken = cfg.Queues
	broken.Sync.Budget = 0
	assert.Error(t, broken.Validate())
}

func TestConfig_ValidateLease(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("GITHUB_WEBHOOK_SECRET", "secret")
	t.Setenv("SWEEP_INTERVAL", "10m")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "SWEEP_LEASE_TTL")
}

func TestLoadTeamDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teams.yml")
	yml := `
sprint:
  start: "2026-01-05"
  length_days: 14
teams:
  - name: platform
    members: [alice, bob]
  - name: data
    members: [bob, carol]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	teams, err := LoadTeamDirectory(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"platform", "data"}, teams.TeamsOf("bob"))
	assert.Equal(t, []string{"platform"}, teams.TeamsOf("alice"))
	assert.Empty(t, teams.TeamsOf("mallory"))

	team, ok := teams.Team("data")
	require.True(t, ok)
	assert.Equal(t, []string{"bob", "carol"}, team.Members)

	start, end := teams.SprintWindow(time.Date(2026, 1, 20, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-01-19", FormatSprintStart(start))
	assert.Equal(t, "2026-02-02", FormatSprintStart(end))

	start, _ = teams.SprintWindow(time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-12-22", FormatSprintStart(start), "dates before the anchor fall into earlier sprints")

	start, _ = teams.SprintWindow(time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-01-19", FormatSprintStart(start), "the first instant belongs to the new sprint")
}

func TestLoadTeamDirectory_Errors(t *testing.T) {
	dir := t.TempDir()

	teams, err := LoadTeamDirectory(filepath.Join(dir, "missing.yml"))
	assert.True(t, errors.Is(err, ErrConfigNotFound))
	require.NotNil(t, teams)
	assert.Empty(t, teams.Teams)

	_, err = ParseTeamDirectory([]byte("teams:\n  - name: a\n  - name: a\n"))
	assert.True(t, errors.Is(err, ErrConfigParsing))

	_, err = ParseTeamDirectory([]byte("sprint:\n  start: soon\n"))
	assert.True(t, errors.Is(err, ErrConfigParsing))

	_, err = ParseTeamDirectory([]byte("teams: [\n"))
	assert.True(t, errors.Is(err, ErrConfigParsing))
}
