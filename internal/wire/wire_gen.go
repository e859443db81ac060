// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/app"
	"github.com/sevigo/code-pulse/internal/batch"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/db"
	"github.com/sevigo/code-pulse/internal/github"
	"github.com/sevigo/code-pulse/internal/jobs"
	"github.com/sevigo/code-pulse/internal/llm"
	"github.com/sevigo/code-pulse/internal/normalize"
	"github.com/sevigo/code-pulse/internal/queue"
	"github.com/sevigo/code-pulse/internal/retry"
	"github.com/sevigo/code-pulse/internal/server"
	"github.com/sevigo/code-pulse/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	writer := provideLogWriter(cfg)
	logger := provideSlogLogger(cfg, writer)

	redisClient, redisCleanup, err := provideRedisClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := provideCoordStore(redisClient, cfg)
	queues := queue.NewSet(store)
	sink := retry.NewSink(store)
	tracker := batch.NewTracker(store, logger)
	normalizer := normalize.New(store)

	dbConn, dbCleanup, err := db.NewDatabase(provideDBConfig(cfg))
	if err != nil {
		redisCleanup()
		return nil, nil, err
	}
	commits := storage.NewStore(provideSQLX(dbConn))

	cleanup := func() {
		dbCleanup()
		redisCleanup()
	}

	teams, err := provideTeamDirectory(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	clients, err := github.NewClientProvider(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	source := provideSource(clients, cfg, logger)

	model, err := provideGeneratorLLM(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create generator LLM: %w", err)
	}
	prompts, err := llm.NewPromptManager()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create prompt manager: %w", err)
	}
	scorer := provideScorer(llm.NewModelCompleter(model), prompts, llm.NewTokenCounter(model), cfg, logger)

	aggregator := provideAggregator(store, commits, teams, cfg, logger)

	syncJob := provideSyncJob(source, commits, tracker, queues, cfg, logger)
	fetchJob := provideCommitFetchJob(source, commits, queues, cfg, logger)
	enrichJob := provideEnrichmentJob(commits, scorer, normalizer, aggregator, teams, logger)
	registry := jobs.NewRegistry(syncJob, fetchJob, enrichJob)

	batches, notifyCleanup, err := provideBatchCallbacks(tracker, syncJob, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	pipelines := providePipelines(cfg, queues, registry, sink, batches, logger)
	srv := server.NewServer(cfg, queues, logger)
	application := app.NewApp(cfg, srv, pipelines, aggregator, logger)

	return application, func() {
		notifyCleanup()
		cleanup()
	}, nil
}

// InitializeOps wires the coordination components for the operator tools.
func InitializeOps(ctx context.Context, cfg *config.Config) (*Ops, func(), error) {
	writer := provideLogWriter(cfg)
	logger := provideSlogLogger(cfg, writer)

	redisClient, cleanup, err := provideRedisClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := provideCoordStore(redisClient, cfg)

	ops := &Ops{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Queues:      queue.NewSet(store),
		DeadLetters: retry.NewSink(store),
		Batches:     batch.NewTracker(store, logger),
		Normalizer:  normalize.New(store),
	}
	return ops, cleanup, nil
}

// InitializeSweeper wires an aggregator that can recompute statistics.
func InitializeSweeper(ctx context.Context, cfg *config.Config) (*aggregate.Aggregator, func(), error) {
	writer := provideLogWriter(cfg)
	logger := provideSlogLogger(cfg, writer)

	redisClient, redisCleanup, err := provideRedisClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := provideCoordStore(redisClient, cfg)

	dbConn, dbCleanup, err := db.NewDatabase(provideDBConfig(cfg))
	if err != nil {
		redisCleanup()
		return nil, nil, err
	}
	commits := storage.NewStore(provideSQLX(dbConn))
	cleanup := func() {
		dbCleanup()
		redisCleanup()
	}

	teams, err := provideTeamDirectory(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return provideAggregator(store, commits, teams, cfg, logger), cleanup, nil
}
