package main

import (
	"time"

	"github.com/sevigo/code-pulse/internal/status"
)

// snapshotMsg carries the result of one collection. chain identifies the
// refresh loop that asked for it; only the current loop schedules a follow-up.
type snapshotMsg struct {
	snap  *status.Snapshot
	err   error
	chain int
}

// tickMsg triggers the next collection of a refresh loop.
type tickMsg struct {
	at    time.Time
	chain int
}
