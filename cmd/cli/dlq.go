package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/retry"
	"github.com/sevigo/code-pulse/internal/wire"
)

var (
	dlqLimit int64
	dlqCount int
	dlqForce bool
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and recover dead-lettered jobs",
}

var dlqListCmd = &cobra.Command{
	Use:   "list [queue]",
	Short: "List dead letters of one queue, or counts for all queues",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withOps(func(ctx context.Context, ops *wire.Ops) error {
			if len(args) == 0 {
				return listDeadLetterCounts(ctx, ops)
			}
			name, err := queueName(args[0])
			if err != nil {
				return err
			}

			entries, err := ops.DeadLetters.List(ctx, name, 0, dlqLimit)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(entries)
			}
			if len(entries) == 0 {
				successColor.Printf("No dead letters in %s.\n", name)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "#\tKEY\tATTEMPT\tFAILED AT\tREASON")
			for i, e := range entries {
				key, attempt := "(undecodable)", "-"
				if e.Job != nil {
					key, attempt = e.Job.Key(), strconv.Itoa(e.Job.Attempt)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, key, attempt, e.FailedAt.Format(time.RFC822), truncate(e.Reason, 60))
			}
			return w.Flush()
		})
	},
}

func listDeadLetterCounts(ctx context.Context, ops *wire.Ops) error {
	counts := make(map[string]int64, len(core.Kinds))
	for _, kind := range core.Kinds {
		n, err := ops.DeadLetters.Len(ctx, string(kind))
		if err != nil {
			return err
		}
		counts[string(kind)] = n
	}
	if outputJSON {
		return printJSON(counts)
	}
	titleColor.Println("Dead letters")
	for _, kind := range core.Kinds {
		n := counts[string(kind)]
		fmt.Printf("  %-14s ", kind)
		countColor(n, errorColor).Println(n)
	}
	return nil
}

var dlqShowCmd = &cobra.Command{
	Use:   "show [queue] [index]",
	Short: "Show one dead letter in detail",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		name, err := queueName(args[0])
		if err != nil {
			return err
		}
		index, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || index < 0 {
			return fmt.Errorf("invalid index %q", args[1])
		}

		return withOps(func(ctx context.Context, ops *wire.Ops) error {
			entries, err := ops.DeadLetters.List(ctx, name, index, 1)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no dead letter at index %d of %s", index, name)
			}
			if outputJSON {
				return printJSON(entries[0])
			}

			out, err := glamour.Render(deadLetterMarkdown(entries[0]), "dark")
			if err != nil {
				return fmt.Errorf("failed to render dead letter: %w", err)
			}
			fmt.Print(out)
			return nil
		})
	},
}

func deadLetterMarkdown(e *retry.DeadLetter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Dead letter in `%s`\n\n", e.Queue)
	fmt.Fprintf(&b, "**Failed at:** %s\n\n", e.FailedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "## Reason\n\n```\n%s\n```\n\n", e.Reason)
	if e.Job == nil {
		fmt.Fprintf(&b, "## Raw payload\n\n```\n%s\n```\n", e.Raw)
		return b.String()
	}

	j := e.Job
	b.WriteString("## Job\n\n| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| ID | `%s` |\n", j.ID)
	fmt.Fprintf(&b, "| Kind | %s |\n", j.Kind)
	fmt.Fprintf(&b, "| Repository | %s |\n", j.RepoFullName)
	if j.CommitSHA != "" {
		fmt.Fprintf(&b, "| Commit | `%s` |\n", j.CommitSHA)
	}
	fmt.Fprintf(&b, "| Attempt | %d |\n", j.Attempt)
	if j.BatchID != "" {
		fmt.Fprintf(&b, "| Batch | `%s` |\n", j.BatchID)
	}
	fmt.Fprintf(&b, "| Enqueued | %s |\n", j.EnqueuedAt.Format(time.RFC1123))
	return b.String()
}

var dlqReplayCmd = &cobra.Command{
	Use:   "replay [queue]",
	Short: "Move the oldest dead letters back to their queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		name, err := queueName(args[0])
		if err != nil {
			return err
		}
		return withOps(func(ctx context.Context, ops *wire.Ops) error {
			n, err := ops.DeadLetters.Replay(ctx, ops.Queues.Get(core.JobKind(name)), dlqCount)
			if err != nil {
				return fmt.Errorf("replay stopped after %d jobs: %w", n, err)
			}
			if n == 0 {
				warnColor.Println("Nothing replayed.")
				return nil
			}
			successColor.Printf("✓ %d job(s) moved back to %s\n", n, name)
			return nil
		})
	},
}

var dlqPurgeCmd = &cobra.Command{
	Use:   "purge [queue]",
	Short: "Delete every dead letter of a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		name, err := queueName(args[0])
		if err != nil {
			return err
		}
		if !dlqForce {
			return fmt.Errorf("purging %s discards its dead letters for good; rerun with --force", name)
		}
		return withOps(func(ctx context.Context, ops *wire.Ops) error {
			if err := ops.DeadLetters.Purge(ctx, name); err != nil {
				return err
			}
			successColor.Printf("✓ dead letters of %s purged\n", name)
			return nil
		})
	},
}

// queueName accepts a job kind and returns its queue name.
func queueName(arg string) (string, error) {
	for _, kind := range core.Kinds {
		if string(kind) == arg {
			return arg, nil
		}
	}
	return "", fmt.Errorf("unknown queue %q (expected one of %v)", arg, core.Kinds)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func init() { //nolint:gochecknoinits // Cobra command registration
	dlqListCmd.Flags().Int64Var(&dlqLimit, "limit", 20, "Maximum number of entries to list")
	dlqReplayCmd.Flags().IntVarP(&dlqCount, "count", "n", 1, "Number of dead letters to replay")
	dlqPurgeCmd.Flags().BoolVar(&dlqForce, "force", false, "Confirm the purge")
	dlqCmd.AddCommand(dlqListCmd, dlqShowCmd, dlqReplayCmd, dlqPurgeCmd)
	rootCmd.AddCommand(dlqCmd)
}
