package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-pulse/internal/batch"
	"github.com/sevigo/code-pulse/internal/wire"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Follow sync batches",
}

var batchStatusCmd = &cobra.Command{
	Use:   "status [batch-id]",
	Short: "Show the counters of an open batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withOps(func(ctx context.Context, ops *wire.Ops) error {
			st, err := ops.Batches.Status(ctx, args[0])
			if errors.Is(err, batch.ErrNotFound) {
				return fmt.Errorf("batch %s is unknown or already completed", args[0])
			}
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(st)
			}

			titleColor.Printf("Batch %s\n", st.ID)
			fmt.Printf("  %-11s %s\n", "Repository", st.Label)
			if st.Total == batch.Unfinalized {
				fmt.Printf("  %-11s ", "Total")
				warnColor.Println("still spawning")
			} else {
				fmt.Printf("  %-11s %d\n", "Total", st.Total)
			}
			fmt.Printf("  %-11s %d\n", "Processed", st.Processed)
			fmt.Printf("  %-11s ", "Succeeded")
			successColor.Println(st.Succeeded)
			fmt.Printf("  %-11s ", "Failed")
			countColor(st.Processed-st.Succeeded, errorColor).Println(st.Processed - st.Succeeded)
			if st.Succeeded > 0 {
				fmt.Printf("  %-11s %.1f\n", "Avg score", st.ScoreSum/float64(st.Succeeded))
			}
			return nil
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	batchCmd.AddCommand(batchStatusCmd)
	rootCmd.AddCommand(batchCmd)
}
