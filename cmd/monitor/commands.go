package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/code-pulse/internal/status"
)

// Snapshotter reads the pipeline state.
type Snapshotter interface {
	Collect(ctx context.Context) (*status.Snapshot, error)
}

func collectCmd(s Snapshotter, timeout time.Duration, chain int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := s.Collect(ctx)
		return snapshotMsg{snap: snap, err: err, chain: chain}
	}
}

func tickCmd(every time.Duration, chain int) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg{at: t, chain: chain} })
}
