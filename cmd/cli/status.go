package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-pulse/internal/status"
	"github.com/sevigo/code-pulse/internal/wire"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows queue depths, dead letters and pending recomputations",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withOps(func(ctx context.Context, ops *wire.Ops) error {
			snap, err := status.NewCollector(ops.Store).Collect(ctx)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(snap)
			}

			titleColor.Println("Queues")
			for _, q := range snap.Queues {
				fmt.Printf("  %-14s depth ", q.Name)
				boldColor.Printf("%-6d", q.Depth)
				fmt.Print(" dead ")
				countColor(q.DeadLetters, errorColor).Println(q.DeadLetters)
			}

			titleColor.Println("Dirty sets")
			for _, d := range snap.DirtySets {
				fmt.Printf("  %-14s pending ", d.Name)
				countColor(d.Pending, warnColor).Printf("%-6d", d.Pending)
				fmt.Print(" in sweep ")
				countColor(d.Processing, warnColor).Println(d.Processing)
			}
			return nil
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(statusCmd)
}
