package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	Redis    RedisConfig   `mapstructure:"redis"`
	Database DBConfig      `mapstructure:"database"`
	GitHub   GitHubConfig  `mapstructure:"github"`
	AI       AIConfig      `mapstructure:"ai"`
	Logging  logger.Config `mapstructure:"logging"`
	Queues   QueuesConfig  `mapstructure:"queues"`
	Sweep    SweepConfig   `mapstructure:"sweep"`
	AMQP     AMQPConfig    `mapstructure:"amqp"`
	Teams    TeamsConfig   `mapstructure:"teams"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix namespaces every key, so several deployments can share a server.
	Prefix string `mapstructure:"prefix"`
}

type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// MigrateOnStart applies pending migrations when the pool is opened.
	MigrateOnStart bool `mapstructure:"migrate_on_start"`
}

// GitHubConfig configures access to the GitHub API. Either the App
// credentials or a personal access token must be set.
type GitHubConfig struct {
	AppID          int64   `mapstructure:"app_id"`
	PrivateKeyPath string  `mapstructure:"private_key_path"`
	WebhookSecret  string  `mapstructure:"webhook_secret"`
	Token          string  `mapstructure:"token"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
	Burst          int     `mapstructure:"burst"`
	// MaxPages bounds how many commit pages a single sync walks.
	MaxPages int `mapstructure:"max_pages"`
}

type AIConfig struct {
	LLMProvider    string        `mapstructure:"llm_provider"`
	OllamaHost     string        `mapstructure:"ollama_host"`
	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	GeneratorModel string        `mapstructure:"generator_model"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	Timeout        time.Duration `mapstructure:"timeout"`
	// MaxDiffBytes truncates the diff handed to the model.
	MaxDiffBytes int `mapstructure:"max_diff_bytes"`
}

// QueueConfig controls how one queue is drained and how wide its pool is.
type QueueConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Budget      int           `mapstructure:"budget"`
	CoreWorkers int           `mapstructure:"core_workers"`
	MaxWorkers  int           `mapstructure:"max_workers"`
	Capacity    int           `mapstructure:"capacity"`
	KeepAlive   time.Duration `mapstructure:"keep_alive"`
}

type QueuesConfig struct {
	Sync        QueueConfig `mapstructure:"sync"`
	CommitFetch QueueConfig `mapstructure:"commit_fetch"`
	Enrichment  QueueConfig `mapstructure:"enrichment"`
	MaxRetries  int         `mapstructure:"max_retries"`
}

type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	LeaseTTL time.Duration `mapstructure:"lease_ttl"`
}

// AMQPConfig enables publishing batch completions. An empty URL disables it.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type TeamsConfig struct {
	File string `mapstructure:"file"`
}

var defaults = map[string]any{
	"server.port":             "8080",
	"server.shutdown_timeout": 30 * time.Second,

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,
	"redis.prefix":   "pulse:",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.username":           "pulse",
	"database.password":           "",
	"database.database":           "code_pulse",
	"database.ssl_mode":           "disable",
	"database.connect_timeout":    5 * time.Second,
	"database.max_open_conns":     20,
	"database.max_idle_conns":     5,
	"database.migrate_on_start":   true,
	"database.conn_max_lifetime":  30 * time.Minute,
	"database.conn_max_idle_time": 5 * time.Minute,

	"github.app_id":           0,
	"github.private_key_path": "keys/code-pulse-app.private-key.pem",
	"github.webhook_secret":   "",
	"github.token":            "",
	"github.requests_per_sec": 1.0,
	"github.burst":            10,
	"github.max_pages":        10,

	"ai.llm_provider":     "ollama",
	"ai.ollama_host":      "http://localhost:11434",
	"ai.gemini_api_key":   "",
	"ai.generator_model":  "",
	"ai.requests_per_sec": 2.0,
	"ai.timeout":          2 * time.Minute,
	"ai.max_diff_bytes":   60000,

	"logging.level":  "info",
	"logging.format": "text",
	"logging.output": "stdout",

	"queues.max_retries": 3,

	"queues.sync.interval":     time.Second,
	"queues.sync.budget":       5,
	"queues.sync.core_workers": 2,
	"queues.sync.max_workers":  4,
	"queues.sync.capacity":     10,
	"queues.sync.keep_alive":   time.Minute,

	"queues.commit_fetch.interval":     50 * time.Millisecond,
	"queues.commit_fetch.budget":       50,
	"queues.commit_fetch.core_workers": 4,
	"queues.commit_fetch.max_workers":  16,
	"queues.commit_fetch.capacity":     100,
	"queues.commit_fetch.keep_alive":   time.Minute,

	"queues.enrichment.interval":     900 * time.Millisecond,
	"queues.enrichment.budget":       10,
	"queues.enrichment.core_workers": 2,
	"queues.enrichment.max_workers":  8,
	"queues.enrichment.capacity":     20,
	"queues.enrichment.keep_alive":   time.Minute,

	"sweep.interval":  30 * time.Second,
	"sweep.lease_ttl": 5 * time.Minute,

	"amqp.url":      "",
	"amqp.exchange": "code-pulse.events",

	"teams.file": "teams.yml",
}

// Load reads configuration from an optional config.yaml and the environment,
// with environment variables taking precedence. Nested keys map to upper-case
// variables joined by underscores, e.g. QUEUES_SYNC_BUDGET.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// The default generator model depends on the provider.
	if cfg.AI.GeneratorModel == "" {
		if cfg.AI.LLMProvider == "gemini" {
			cfg.AI.GeneratorModel = "gemini-2.5-flash"
		} else {
			cfg.AI.GeneratorModel = "gemma3:latest"
		}
	}

	return &cfg, nil
}

// LoadConfig loads the configuration and validates everything the service
// needs to run.
func LoadConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings required by the service.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR must be set")
	}
	if err := c.GitHub.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if err := c.Queues.Validate(); err != nil {
		return err
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.Sweep.LeaseTTL < c.Sweep.Interval {
		return fmt.Errorf("SWEEP_LEASE_TTL (%s) must not be shorter than SWEEP_INTERVAL (%s)", c.Sweep.LeaseTTL, c.Sweep.Interval)
	}
	return nil
}

func (c GitHubConfig) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	if c.Token == "" && (c.AppID == 0 || c.PrivateKeyPath == "") {
		return fmt.Errorf("either GITHUB_TOKEN or GITHUB_APP_ID with GITHUB_PRIVATE_KEY_PATH must be set")
	}
	if c.RequestsPerSec <= 0 {
		return fmt.Errorf("GITHUB_REQUESTS_PER_SEC must be positive")
	}
	return nil
}

func (c AIConfig) Validate() error {
	switch c.LLMProvider {
	case "ollama":
		if c.OllamaHost == "" {
			return fmt.Errorf("AI_OLLAMA_HOST must be set for the ollama provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("AI_GEMINI_API_KEY must be set for the gemini provider")
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLMProvider)
	}
	if c.GeneratorModel == "" {
		return fmt.Errorf("AI_GENERATOR_MODEL must be set")
	}
	if c.RequestsPerSec <= 0 {
		return fmt.Errorf("AI_REQUESTS_PER_SEC must be positive")
	}
	return nil
}

func (c QueuesConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("QUEUES_MAX_RETRIES must not be negative")
	}
	for _, kind := range core.Kinds {
		q := c.For(kind)
		switch {
		case q.Interval <= 0:
			return fmt.Errorf("queue %s: interval must be positive", kind)
		case q.Budget <= 0:
			return fmt.Errorf("queue %s: budget must be positive", kind)
		case q.CoreWorkers <= 0:
			return fmt.Errorf("queue %s: core_workers must be positive", kind)
		case q.MaxWorkers < q.CoreWorkers:
			return fmt.Errorf("queue %s: max_workers (%d) is below core_workers (%d)", kind, q.MaxWorkers, q.CoreWorkers)
		case q.Capacity < 0:
			return fmt.Errorf("queue %s: capacity must not be negative", kind)
		}
	}
	return nil
}

// For returns the settings of the queue that carries kind.
func (c QueuesConfig) For(kind core.JobKind) QueueConfig {
	switch kind {
	case core.KindSync:
		return c.Sync
	case core.KindCommitFetch:
		return c.CommitFetch
	default:
		return c.Enrichment
	}
}
