// Package handler provides HTTP handlers for the code-pulse service.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/code-pulse/internal/core"
	"github.com/sevigo/code-pulse/internal/metrics"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	secret   []byte
	producer core.Producer
	logger   *slog.Logger
}

// NewWebhookHandler creates a webhook handler that verifies deliveries with
// secret and enqueues the resulting jobs on producer.
func NewWebhookHandler(secret string, producer core.Producer, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:   []byte(secret),
		producer: producer,
		logger:   logger,
	}
}

// Handle processes GitHub webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	eventType := github.WebHookType(r)

	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		metrics.WebhookEvents.WithLabelValues(eventType, "rejected").Inc()
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		metrics.WebhookEvents.WithLabelValues(eventType, "rejected").Inc()
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PushEvent:
		h.handlePush(r.Context(), w, e)
	case *github.PingEvent:
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		_, _ = fmt.Fprint(w, "pong")
	default:
		// installation_repositories and friends carry nothing to score.
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

// handlePush enqueues a sync of the pushed repository.
func (h *WebhookHandler) handlePush(ctx context.Context, w http.ResponseWriter, event *github.PushEvent) {
	push, err := core.EventFromPush(event)
	if err != nil {
		h.logger.Debug("ignoring push", "reason", err.Error(), "repo", event.GetRepo().GetFullName())
		metrics.WebhookEvents.WithLabelValues("push", "ignored").Inc()
		_, _ = fmt.Fprint(w, "Push ignored")
		return
	}

	job := push.SyncJob()
	if err := h.producer.Enqueue(ctx, job); err != nil {
		h.logger.Error("failed to enqueue sync job", "error", err, "repo", push.RepoFullName)
		metrics.WebhookEvents.WithLabelValues("push", "rejected").Inc()
		http.Error(w, "Failed to start sync job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("sync job enqueued", "repo", push.RepoFullName, "ref", push.Ref, "commits", push.CommitCount, "job_id", job.ID)
	metrics.WebhookEvents.WithLabelValues("push", "accepted").Inc()
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Sync job accepted")
}
