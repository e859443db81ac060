//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/code-pulse/internal/aggregate"
	"github.com/sevigo/code-pulse/internal/app"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/db"
	"github.com/sevigo/code-pulse/internal/storage"
)

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(AppSet)
	return &app.App{}, nil, nil
}

func InitializeOps(ctx context.Context, cfg *config.Config) (*Ops, func(), error) {
	wire.Build(CoordSet, wire.Struct(new(Ops), "*"))
	return &Ops{}, nil, nil
}

func InitializeSweeper(ctx context.Context, cfg *config.Config) (*aggregate.Aggregator, func(), error) {
	wire.Build(
		provideLogWriter,
		provideSlogLogger,
		provideRedisClient,
		provideCoordStore,
		provideDBConfig,
		db.NewDatabase,
		provideSQLX,
		storage.NewStore,
		wire.Bind(new(core.CommitStore), new(storage.Store)),
		provideTeamDirectory,
		provideAggregator,
	)
	return nil, nil, nil
}
