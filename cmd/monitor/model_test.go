package main

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/normalize"
	"github.com/sevigo/code-pulse/internal/status"
)

type fakeSnapshotter struct {
	snap *status.Snapshot
	err  error
}

func (f *fakeSnapshotter) Collect(context.Context) (*status.Snapshot, error) {
	return f.snap, f.err
}

func testSnapshot() *status.Snapshot {
	return &status.Snapshot{
		Queues: []status.QueueStatus{
			{Name: "sync", Depth: 1},
			{Name: "enrichment", Depth: 12, DeadLetters: 2},
		},
		DirtySets: []status.DirtySetStatus{{Name: "user", Pending: 4}},
		Stats: []normalize.RunningStat{
			{Metric: "quality", Count: 4, Sum: 240, SumOfSquares: 14600},
			{Metric: "risk", Count: 1, Sum: 10, SumOfSquares: 100},
		},
		TakenAt: time.Now(),
	}
}

func TestModel_AppliesSnapshot(t *testing.T) {
	m := initialModel(ThemeCyan, &fakeSnapshotter{}, time.Second)

	_, cmd := m.Update(snapshotMsg{snap: testSnapshot()})
	require.NotNil(t, cmd, "the current loop schedules the next tick")

	rows := m.queues.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "enrichment", rows[1][0])
	assert.Equal(t, "12", rows[1][1])
	assert.Equal(t, "2", rows[1][2])
	assert.Equal(t, "4", m.dirtySets.Rows()[0][1])

	view := m.View()
	assert.Contains(t, view, "2 job(s) dead-lettered")
	assert.Contains(t, view, "not enough to normalize")
}

func TestModel_ErrorKeepsLastSnapshot(t *testing.T) {
	m := initialModel(ThemeCyan, &fakeSnapshotter{}, time.Second)
	m.Update(snapshotMsg{snap: testSnapshot()})

	m.Update(snapshotMsg{err: errors.New("connection refused")})
	assert.Len(t, m.queues.Rows(), 2)
	assert.Contains(t, m.View(), "connection refused")
}

func TestModel_StaleLoopStops(t *testing.T) {
	m := initialModel(ThemeCyan, &fakeSnapshotter{snap: testSnapshot()}, time.Second)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.chain)

	_, cmd = m.Update(snapshotMsg{snap: testSnapshot(), chain: 0})
	assert.Nil(t, cmd, "a superseded loop does not reschedule")
	_, cmd = m.Update(tickMsg{chain: 0})
	assert.Nil(t, cmd)

	msg := m.restart()()
	_, cmd = m.Update(msg)
	assert.NotNil(t, cmd)
}

func TestModel_Pause(t *testing.T) {
	m := initialModel(ThemeCyan, &fakeSnapshotter{snap: testSnapshot()}, time.Second)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	require.True(t, m.paused)
	_, cmd := m.Update(tickMsg{chain: m.chain})
	assert.Nil(t, cmd)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.False(t, m.paused)
	assert.NotNil(t, cmd)
}

func TestGetTheme_FallsBackToCyan(t *testing.T) {
	assert.Equal(t, palettes[ThemeCyan], GetTheme("unknown").palette)
	assert.Equal(t, palettes[ThemeFire], GetTheme(ThemeFire).palette)
}
