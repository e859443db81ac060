package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/normalize"
	"github.com/sevigo/code-pulse/internal/wire"
)

var resetMetric string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the running statistics used to normalize scores",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withOps(func(ctx context.Context, ops *wire.Ops) error {
			if resetMetric != "" {
				if err := ops.Normalizer.Reset(ctx, resetMetric); err != nil {
					return err
				}
				warnColor.Printf("running stat of %s reset\n", resetMetric)
			}

			stats := make([]normalize.RunningStat, 0, len(core.ScoreMetrics))
			for _, metric := range core.ScoreMetrics {
				st, err := ops.Normalizer.Snapshot(ctx, metric)
				if err != nil {
					return err
				}
				stats = append(stats, st)
			}
			if outputJSON {
				return printJSON(stats)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "METRIC\tSAMPLES\tMEAN\tSTDDEV")
			for _, st := range stats {
				if st.Count < 2 {
					fmt.Fprintf(w, "%s\t%d\t-\t-\n", st.Metric, st.Count)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\n", st.Metric, st.Count, st.Mean(), st.StdDev())
			}
			return w.Flush()
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	statsCmd.Flags().StringVar(&resetMetric, "reset", "", "Drop the running stat of a metric before printing")
	rootCmd.AddCommand(statsCmd)
}
