// Package jobs defines the background tasks of the commit pipeline: sync,
// commit fetch and enrichment.
package jobs

import (
	"context"
	"fmt"

	"github.com/sevigo/code-pulse/internal/core"
)

// Registry routes a job to the handler of its kind.
type Registry struct {
	handlers map[core.JobKind]core.Handler
}

var _ core.Handler = (*Registry)(nil)

// NewRegistry registers the three pipeline stages.
func NewRegistry(sync *SyncJob, fetch *CommitFetchJob, enrich *EnrichmentJob) *Registry {
	r := &Registry{handlers: make(map[core.JobKind]core.Handler)}
	r.Register(core.KindSync, sync)
	r.Register(core.KindCommitFetch, fetch)
	r.Register(core.KindEnrichment, enrich)
	return r
}

// Register sets the handler of a kind, replacing any previous one.
func (r *Registry) Register(kind core.JobKind, h core.Handler) {
	r.handlers[kind] = h
}

// For returns the handler of a kind.
func (r *Registry) For(kind core.JobKind) (core.Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Handle runs job with the handler of its kind. A job of an unknown kind
// fails every attempt and ends up dead-lettered.
func (r *Registry) Handle(ctx context.Context, job *core.Job) (core.Result, error) {
	h, ok := r.handlers[job.Kind]
	if !ok {
		return core.Result{}, fmt.Errorf("no handler for job kind %q", job.Kind)
	}
	return h.Handle(ctx, job)
}
