package retry

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/metrics"
)

// DefaultMaxRetries is the number of re-enqueues before a job is dead-lettered.
const DefaultMaxRetries = 3

// Outcome is the state a job reached after one execution.
type Outcome string

const (
	Succeeded    Outcome = "succeeded"
	Retried      Outcome = "retried"
	DeadLettered Outcome = "dead_lettered"
)

// Requeuer is the live queue a failed job goes back to.
type Requeuer interface {
	Name() string
	Enqueue(ctx context.Context, job *core.Job) error
}

// BatchReporter receives terminal outcomes of batch members.
type BatchReporter interface {
	RecordCompletion(ctx context.Context, batchID, memberKey string, success bool, scoreDelta float64) (bool, error)
}

// Handler runs a job and applies the retry policy: failures are re-enqueued
// at the tail of the same queue until the attempt counter reaches maxRetries,
// then the job is dead-lettered. No failure class is treated differently.
type Handler struct {
	queue      Requeuer
	handler    core.Handler
	sink       *Sink
	batches    BatchReporter
	maxRetries int
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewHandler wraps handler for the jobs of queue q. batches may be nil.
func NewHandler(q Requeuer, handler core.Handler, sink *Sink, batches BatchReporter, maxRetries int, logger *slog.Logger) *Handler {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Handler{
		queue:      q,
		handler:    handler,
		sink:       sink,
		batches:    batches,
		maxRetries: maxRetries,
		tracer:     otel.Tracer("github.com/sevigo/code-pulse/internal/retry"),
		logger:     logger.With("queue", q.Name()),
	}
}

// Execute implements worker.Executor. Errors are logged by Run.
func (h *Handler) Execute(ctx context.Context, job *core.Job) {
	_, _ = h.Run(ctx, job)
}

// Run executes job once and returns where it ended up. The returned error is
// non-nil only when the job could not be moved to its next state, which
// means it is lost from the live path.
func (h *Handler) Run(ctx context.Context, job *core.Job) (Outcome, error) {
	ctx, span := h.tracer.Start(ctx, "job "+string(job.Kind), trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.key", job.Key()),
		attribute.Int("job.attempt", job.Attempt),
	))
	defer span.End()

	start := time.Now()
	result, err := h.handle(ctx, job)
	metrics.JobDuration.WithLabelValues(h.queue.Name()).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.JobsProcessed.WithLabelValues(h.queue.Name(), string(Succeeded)).Inc()
		h.logger.Debug("job succeeded", "job_id", job.ID, "key", job.Key())
		if !result.HandedOff {
			h.reportCompletion(ctx, job, true, result.ScoreDelta)
		}
		return Succeeded, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if job.Attempt < h.maxRetries {
		return h.requeue(ctx, job, err)
	}
	return h.deadLetter(ctx, job, err)
}

// handle runs the job handler and turns a panic into an ordinary failure, so
// the job still goes through the retry policy.
func (h *Handler) handle(ctx context.Context, job *core.Job) (result core.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("job handler panicked", "job_id", job.ID, "key", job.Key(), "panic", r, "stack", string(debug.Stack()))
			result, err = core.Result{}, fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.handler.Handle(ctx, job)
}

func (h *Handler) requeue(ctx context.Context, job *core.Job, cause error) (Outcome, error) {
	job.Attempt++
	h.logger.Warn("job failed, re-enqueueing",
		"job_id", job.ID,
		"key", job.Key(),
		"attempt", job.Attempt,
		"max_retries", h.maxRetries,
		"error", cause,
	)

	if err := h.queue.Enqueue(ctx, job); err != nil {
		h.logger.Error("failed to re-enqueue job, job is lost", "job_id", job.ID, "key", job.Key(), "error", err)
		return Retried, fmt.Errorf("re-enqueue job %s: %w", job.ID, err)
	}
	metrics.JobsProcessed.WithLabelValues(h.queue.Name(), string(Retried)).Inc()
	return Retried, nil
}

func (h *Handler) deadLetter(ctx context.Context, job *core.Job, cause error) (Outcome, error) {
	h.logger.Error("job exhausted retries, moving to dead-letter sink",
		"job_id", job.ID,
		"key", job.Key(),
		"attempt", job.Attempt,
		"error", cause,
	)

	entry := &DeadLetter{Queue: h.queue.Name(), Job: job, Reason: cause.Error()}
	if err := h.sink.Push(ctx, entry); err != nil {
		h.logger.Error("failed to dead-letter job, job is lost", "job_id", job.ID, "key", job.Key(), "error", err)
		return DeadLettered, fmt.Errorf("dead-letter job %s: %w", job.ID, err)
	}
	metrics.JobsProcessed.WithLabelValues(h.queue.Name(), string(DeadLettered)).Inc()

	h.reportCompletion(ctx, job, false, 0)
	return DeadLettered, nil
}

func (h *Handler) reportCompletion(ctx context.Context, job *core.Job, success bool, scoreDelta float64) {
	if job.BatchID == "" || h.batches == nil {
		return
	}
	if _, err := h.batches.RecordCompletion(ctx, job.BatchID, job.Key(), success, scoreDelta); err != nil {
		h.logger.Error("failed to record batch completion",
			"job_id", job.ID,
			"batch_id", job.BatchID,
			"error", err,
		)
	}
}
