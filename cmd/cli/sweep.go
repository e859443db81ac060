package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-pulse/internal/wire"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one pass of the dirty-set sweep now",
	Long: `Run one pass of the dirty-set sweep now. Every entity marked dirty is
recomputed from the database; sets claimed by a running service are skipped.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		aggregator, cleanup, err := wire.InitializeSweeper(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer cleanup()

		results, sweepErr := aggregator.Sweep(ctx)
		if outputJSON {
			if err := printJSON(results); err != nil {
				return err
			}
			return sweepErr
		}

		for _, r := range results {
			switch {
			case !r.Claimed:
				dimColor.Printf("  %-12s nothing to do or swept elsewhere\n", r.Set)
			case r.Failed > 0:
				warnColor.Printf("  %-12s %d recomputed, %d failed and stay dirty\n", r.Set, r.Recomputed, r.Failed)
			default:
				successColor.Printf("  %-12s %d recomputed\n", r.Set, r.Recomputed)
			}
		}
		return sweepErr
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(sweepCmd)
}
