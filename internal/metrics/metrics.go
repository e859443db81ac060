// Package metrics exposes the Prometheus instruments of the job pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_jobs_processed_total",
		Help: "The total number of job executions.",
	}, []string{"queue", "outcome"}) // outcome: succeeded, retried, dead_lettered

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulse_job_duration_seconds",
		Help:    "Duration of job execution.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"queue"})

	CallerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_pool_caller_runs_total",
		Help: "Jobs executed on the polling goroutine because the pool was saturated.",
	}, []string{"pool"})

	SweptEntities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_sweep_entities_total",
		Help: "Aggregate recomputations performed by the dirty-set sweep.",
	}, []string{"set", "outcome"}) // outcome: recomputed, failed

	BatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_batches_completed_total",
		Help: "Batches whose members all reached a terminal state.",
	})

	ScoringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_scoring_duration_seconds",
		Help:    "Latency of model scoring calls.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_webhook_events_total",
		Help: "GitHub webhook deliveries by event type and outcome.",
	}, []string{"event", "outcome"}) // outcome: accepted, ignored, rejected
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
