package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/wire"
)

var (
	redisAddr  string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "pulse-cli",
	Short: "pulse-cli is the command-line interface for code-pulse.",
	Long: `A CLI for operating the code-pulse pipeline: enqueueing syncs, inspecting
and replaying dead letters, following batches and recomputing statistics.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address (overrides REDIS_ADDR)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	if err := viper.BindPFlag("redis.addr", rootCmd.PersistentFlags().Lookup("redis-addr")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the service configuration. The CLI only talks to the
// stores, so the GitHub and model settings are not validated.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if addr := viper.GetString("redis.addr"); addr != "" {
		cfg.Redis.Addr = addr
	}
	// Keep log lines off the command output.
	cfg.Logging.Output = "stderr"
	if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	return cfg, nil
}

// withOps runs fn with the coordination components.
func withOps(fn func(ctx context.Context, ops *wire.Ops) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	ops, cleanup, err := wire.InitializeOps(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	return fn(ctx, ops)
}
