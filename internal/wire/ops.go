package wire

import (
	"log/slog"

	"github.com/sevigo/code-pulse/internal/batch"
	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/coord"
	"github.com/sevigo/code-pulse/internal/normalize"
	"github.com/sevigo/code-pulse/internal/queue"
	"github.com/sevigo/code-pulse/internal/retry"
)

// Ops bundles the coordination components the operator tools work with.
// None of them needs the database or the external services.
type Ops struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       coord.Store
	Queues      *queue.Set
	DeadLetters *retry.Sink
	Batches     *batch.Tracker
	Normalizer  *normalize.Normalizer
}
