package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/app"
	"github.com/sevigo/code-pulse/internal/batch"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/db"
	"github.com/sevigo/code-pulse/internal/github"
	"github.com/sevigo/code-pulse/internal/jobs"
	"github.com/sevigo/code-pulse/internal/llm"
	"github.com/sevigo/code-pulse/internal/logger"
	"github.com/sevigo/code-pulse/internal/normalize"
	"github.com/sevigo/code-pulse/internal/notify"
	"github.com/sevigo/code-pulse/internal/queue"
	"github.com/sevigo/code-pulse/internal/retry"
	"github.com/sevigo/code-pulse/internal/server"
	"github.com/sevigo/code-pulse/internal/stats"
	"github.com/sevigo/code-pulse/internal/storage"
)

// CoordSet provides the Redis-backed coordination primitives shared by the
// service and the operator tools.
var CoordSet = wire.NewSet(
	provideLogWriter,
	provideSlogLogger,
	provideRedisClient,
	provideCoordStore,
	queue.NewSet,
	retry.NewSink,
	batch.NewTracker,
	normalize.New,
	wire.Bind(new(core.Producer), new(*queue.Set)),
)

// AppSet provides the full service.
var AppSet = wire.NewSet(
	CoordSet,
	config.LoadConfig,
	provideDBConfig,
	db.NewDatabase,
	provideSQLX,
	storage.NewStore,
	wire.Bind(new(core.CommitStore), new(storage.Store)),
	provideTeamDirectory,
	github.NewClientProvider,
	provideSource,
	wire.Bind(new(core.SourceHost), new(*github.Source)),
	provideGeneratorLLM,
	llm.NewPromptManager,
	llm.NewTokenCounter,
	llm.NewModelCompleter,
	provideScorer,
	wire.Bind(new(core.Scorer), new(*llm.Scorer)),
	provideAggregator,
	provideSyncJob,
	provideCommitFetchJob,
	provideEnrichmentJob,
	jobs.NewRegistry,
	wire.Bind(new(core.Handler), new(*jobs.Registry)),
	provideBatchCallbacks,
	providePipelines,
	server.NewServer,
	wire.Bind(new(app.HTTPServer), new(*server.Server)),
	app.NewApp,
)

func provideLogWriter(cfg *config.Config) io.Writer {
	return logger.ResolveOutput(cfg.Logging)
}

func provideSlogLogger(cfg *config.Config, writer io.Writer) *slog.Logger {
	l := logger.NewLogger(cfg.Logging, writer)
	slog.SetDefault(l)
	return l
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func provideSQLX(conn *db.DB) *sqlx.DB {
	return conn.DB
}

func provideRedisClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("connected to redis", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)

	return client, func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}, nil
}

func provideCoordStore(client *redis.Client, cfg *config.Config) coord.Store {
	return coord.NewRedisStore(client, coord.WithPrefix(cfg.Redis.Prefix))
}

func provideTeamDirectory(cfg *config.Config, logger *slog.Logger) (*config.TeamDirectory, error) {
	teams, err := config.LoadTeamDirectory(cfg.Teams.File)
	if errors.Is(err, config.ErrConfigNotFound) {
		logger.Warn("team directory not found, team-sprint stats are disabled", "file", cfg.Teams.File)
		return teams, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("team directory loaded", "file", cfg.Teams.File, "teams", len(teams.Teams))
	return teams, nil
}

func provideSource(clients github.ClientProvider, cfg *config.Config, logger *slog.Logger) *github.Source {
	return github.NewSource(clients, cfg.GitHub.RequestsPerSec, cfg.GitHub.Burst, logger)
}

func provideGeneratorLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	switch cfg.AI.LLMProvider {
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return nil, fmt.Errorf("AI_GEMINI_API_KEY is not set")
		}
		return gemini.New(ctx, gemini.WithModel(cfg.AI.GeneratorModel), gemini.WithAPIKey(cfg.AI.GeminiAPIKey))
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.AI.OllamaHost),
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithModel(cfg.AI.GeneratorModel),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.AI.LLMProvider)
	}
}

func newOllamaHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   5 * time.Minute,
	}
}

func provideScorer(completer llm.Completer, prompts *llm.PromptManager, tokens *llm.TokenCounter, cfg *config.Config, logger *slog.Logger) *llm.Scorer {
	return llm.NewScorer(completer, prompts, tokens, llm.ScorerConfig{
		Provider:       llm.ModelProvider(cfg.AI.LLMProvider),
		RequestsPerSec: cfg.AI.RequestsPerSec,
		Timeout:        cfg.AI.Timeout,
		MaxDiffTokens:  cfg.AI.MaxDiffBytes / 3,
	}, logger)
}

func provideAggregator(store coord.Store, commits core.CommitStore, teams *config.TeamDirectory, cfg *config.Config, logger *slog.Logger) *aggregate.Aggregator {
	agg := aggregate.New(store, cfg.Sweep.LeaseTTL, logger)
	stats.New(commits, teams, logger).Register(agg)
	return agg
}

func provideSyncJob(source core.SourceHost, commits core.CommitStore, tracker *batch.Tracker, producer core.Producer, cfg *config.Config, logger *slog.Logger) *jobs.SyncJob {
	return jobs.NewSyncJob(source, commits, tracker, producer, cfg.GitHub.MaxPages, logger)
}

func provideCommitFetchJob(source core.SourceHost, commits core.CommitStore, producer core.Producer, cfg *config.Config, logger *slog.Logger) *jobs.CommitFetchJob {
	return jobs.NewCommitFetchJob(source, commits, producer, cfg.AI.MaxDiffBytes, logger)
}

func provideEnrichmentJob(commits core.CommitStore, scorer core.Scorer, normalizer *normalize.Normalizer, agg *aggregate.Aggregator, teams *config.TeamDirectory, logger *slog.Logger) *jobs.EnrichmentJob {
	return jobs.NewEnrichmentJob(commits, scorer, normalizer, agg, teams, logger)
}

// BatchReporter is the tracker after every completion callback is attached.
type BatchReporter retry.BatchReporter

// provideBatchCallbacks records finished syncs and, when AMQP is configured,
// announces them.
func provideBatchCallbacks(tracker *batch.Tracker, syncJob *jobs.SyncJob, cfg *config.Config, logger *slog.Logger) (BatchReporter, func(), error) {
	tracker.OnComplete(syncJob.RecordRun)

	if cfg.AMQP.URL == "" {
		return tracker, func() {}, nil
	}
	publisher, err := notify.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	if err != nil {
		return nil, nil, err
	}
	tracker.OnComplete(publisher.BatchCompleted)
	logger.Info("publishing batch completions", "exchange", cfg.AMQP.Exchange)
	return tracker, publisher.Close, nil
}

func providePipelines(cfg *config.Config, queues *queue.Set, handler core.Handler, sink *retry.Sink, batches BatchReporter, logger *slog.Logger) app.Pipelines {
	return app.NewPipelines(cfg, queues, handler, sink, batches, logger)
}
