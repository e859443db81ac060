// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
	"fmt"
	"time"
)

// JobKind discriminates the job families. Each kind has its own queue.
type JobKind string

const (
	// KindSync discovers new commits for a repository.
	KindSync JobKind = "sync"
	// KindCommitFetch loads the full details of a single commit.
	KindCommitFetch JobKind = "commit-fetch"
	// KindEnrichment scores a fetched commit with the external scoring service.
	KindEnrichment JobKind = "enrichment"
)

// Kinds lists every job family in the order the pipeline runs them.
var Kinds = []JobKind{KindSync, KindCommitFetch, KindEnrichment}

// Job is a unit of deferred work. Ownership moves to whoever dequeued it.
// Attempt only ever increases.
type Job struct {
	ID             string    `json:"id"`
	Kind           JobKind   `json:"kind"`
	RepoFullName   string    `json:"repo_full_name"`
	CommitSHA      string    `json:"commit_sha,omitempty"`
	InstallationID int64     `json:"installation_id,omitempty"`
	Attempt        int       `json:"attempt"`
	BatchID        string    `json:"batch_id,omitempty"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// Key returns the business key of the job. Duplicate keys may coexist in a
// queue, so handlers must be idempotent.
func (j *Job) Key() string {
	if j.CommitSHA == "" {
		return j.RepoFullName
	}
	return fmt.Sprintf("%s@%s", j.RepoFullName, j.CommitSHA)
}

// Result is what a handler reports back after a successful run.
type Result struct {
	// ScoreDelta is added to the batch score sum when the job is terminal.
	ScoreDelta float64
	// HandedOff means the job spawned a follow-up that carries its batch
	// membership, so this run does not count as a batch completion.
	HandedOff bool
}

// Handler executes one kind of job. Implementations must tolerate being run
// more than once for the same business key.
type Handler interface {
	Handle(ctx context.Context, job *Job) (Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) (Result, error)

// Handle calls f(ctx, job).
func (f HandlerFunc) Handle(ctx context.Context, job *Job) (Result, error) {
	return f(ctx, job)
}

// Producer accepts new jobs for asynchronous processing. It decouples event
// sources (webhooks, the CLI, other jobs) from the queue transport.
type Producer interface {
	Enqueue(ctx context.Context, job *Job) error
}
