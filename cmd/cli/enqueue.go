package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/gitutil"
	"github.com/sevigo/code-pulse/internal/wire"
)

var installationID int64

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue jobs by hand",
}

var enqueueSyncCmd = &cobra.Command{
	Use:   "sync [repository]...",
	Short: "Enqueue a sync job for each repository",
	Long: `Enqueue a sync job for each repository, exactly as a push webhook would.
A repository is given as owner/repo or as its GitHub URL.

Examples:
  pulse-cli enqueue sync acme/api
  pulse-cli enqueue sync --installation 1234 acme/api https://github.com/acme/web`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		jobs := make([]*core.Job, 0, len(args))
		for _, ref := range args {
			repo, err := gitutil.ParseRepoRef(ref)
			if err != nil {
				return err
			}
			jobs = append(jobs, &core.Job{Kind: core.KindSync, RepoFullName: repo, InstallationID: installationID})
		}
		return enqueueAll(jobs)
	},
}

var enqueueCommitCmd = &cobra.Command{
	Use:   "commit [commit]...",
	Short: "Send known commits through fetch and enrichment again",
	Long: `Enqueue a commit-fetch job for each commit. The commit must already have
been discovered by a sync; commits that are already scored are skipped by the
worker. A commit is given as owner/repo@sha or as its GitHub URL.

Examples:
  pulse-cli enqueue commit acme/api@3f2c1e9
  pulse-cli enqueue commit https://github.com/acme/api/commit/3f2c1e9`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		jobs := make([]*core.Job, 0, len(args))
		for _, ref := range args {
			repo, sha, err := gitutil.ParseCommitRef(ref)
			if err != nil {
				return err
			}
			jobs = append(jobs, &core.Job{Kind: core.KindCommitFetch, RepoFullName: repo, CommitSHA: sha, InstallationID: installationID})
		}
		return enqueueAll(jobs)
	},
}

func enqueueAll(jobs []*core.Job) error {
	return withOps(func(ctx context.Context, ops *wire.Ops) error {
		for _, job := range jobs {
			if err := ops.Queues.Enqueue(ctx, job); err != nil {
				return fmt.Errorf("failed to enqueue %s of %s: %w", job.Kind, job.Key(), err)
			}
			successColor.Printf("✓ %s of %s enqueued ", job.Kind, job.Key())
			dimColor.Printf("(job %s)\n", job.ID)
		}
		return nil
	})
}

func init() { //nolint:gochecknoinits // Cobra command registration
	enqueueCmd.PersistentFlags().Int64Var(&installationID, "installation", 0, "GitHub App installation ID (0 when using a personal token)")
	enqueueCmd.AddCommand(enqueueSyncCmd, enqueueCommitCmd)
	rootCmd.AddCommand(enqueueCmd)
}
