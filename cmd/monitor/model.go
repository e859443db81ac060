package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/code-pulse/internal/status"
)

const collectTimeout = 5 * time.Second

type model struct {
	styles    styles
	collector Snapshotter
	refresh   time.Duration

	spinner   spinner.Model
	queues    table.Model
	dirtySets table.Model

	snap    *status.Snapshot
	lastErr error
	paused  bool
	chain   int
}

func initialModel(theme ThemeName, collector Snapshotter, refresh time.Duration) *model {
	st := GetTheme(theme)

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(st.palette.Primary)

	queues := table.New(
		table.WithColumns([]table.Column{
			{Title: "Queue", Width: 14},
			{Title: "Depth", Width: 8},
			{Title: "Dead", Width: 8},
		}),
		table.WithHeight(4),
	)
	dirty := table.New(
		table.WithColumns([]table.Column{
			{Title: "Dirty set", Width: 14},
			{Title: "Pending", Width: 9},
			{Title: "In sweep", Width: 9},
		}),
		table.WithHeight(4),
	)
	tableStyles := table.DefaultStyles()
	tableStyles.Header = st.tableHeader
	tableStyles.Cell = st.tableCell
	tableStyles.Selected = st.tableCell
	queues.SetStyles(tableStyles)
	dirty.SetStyles(tableStyles)

	return &model{
		styles:    st,
		collector: collector,
		refresh:   refresh,
		spinner:   sp,
		queues:    queues,
		dirtySets: dirty,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(collectCmd(m.collector, collectTimeout, m.chain), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
			if !m.paused {
				return m, m.restart()
			}
		case "r":
			return m, m.restart()
		}

	case snapshotMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.lastErr = nil
			m.apply(msg.snap)
		}
		if m.paused || msg.chain != m.chain {
			return m, nil
		}
		return m, tickCmd(m.refresh, m.chain)

	case tickMsg:
		if m.paused || msg.chain != m.chain {
			return m, nil
		}
		return m, collectCmd(m.collector, collectTimeout, m.chain)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.styles.header = m.styles.header.Width(msg.Width - 4)
	}
	return m, nil
}

// restart abandons the running refresh loop and starts a new one with an
// immediate collection.
func (m *model) restart() tea.Cmd {
	m.chain++
	return collectCmd(m.collector, collectTimeout, m.chain)
}

func (m *model) apply(snap *status.Snapshot) {
	m.snap = snap

	rows := make([]table.Row, 0, len(snap.Queues))
	for _, q := range snap.Queues {
		rows = append(rows, table.Row{q.Name, strconv.FormatInt(q.Depth, 10), strconv.FormatInt(q.DeadLetters, 10)})
	}
	m.queues.SetRows(rows)

	rows = make([]table.Row, 0, len(snap.DirtySets))
	for _, d := range snap.DirtySets {
		rows = append(rows, table.Row{d.Name, strconv.FormatInt(d.Pending, 10), strconv.FormatInt(d.Processing, 10)})
	}
	m.dirtySets.SetRows(rows)
}

func (m *model) View() string {
	header := m.styles.header.Render("CODE-PULSE MONITOR")

	if m.snap == nil {
		body := fmt.Sprintf("  %s CONNECTING...", m.spinner.View())
		if m.lastErr != nil {
			body = m.styles.error.Render("⚠ " + m.lastErr.Error())
		}
		return m.styles.app.Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.panel.Render(lipgloss.JoinVertical(lipgloss.Left, m.styles.section.Render("QUEUES"), m.queues.View())),
		m.styles.panel.Render(lipgloss.JoinVertical(lipgloss.Left, m.styles.section.Render("RECOMPUTATION"), m.dirtySets.View())),
	)

	return m.styles.app.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.healthLine(),
		"",
		panels,
		"",
		m.styles.section.Render("SCORE POPULATION"),
		m.statsView(),
		m.styles.footer.Render(m.statusLine()),
	))
}

func (m *model) healthLine() string {
	if dead := m.snap.TotalDeadLetters(); dead > 0 {
		return m.styles.warning.Render(fmt.Sprintf("● %d job(s) dead-lettered, inspect with pulse-cli dlq list", dead))
	}
	return m.styles.success.Render("● NO DEAD LETTERS")
}

func (m *model) statsView() string {
	var b strings.Builder
	for _, st := range m.snap.Stats {
		if st.Count < 2 {
			fmt.Fprintf(&b, "  %-16s %s\n", st.Metric, m.styles.inactive.Render(fmt.Sprintf("%d sample(s), not enough to normalize", st.Count)))
			continue
		}
		fmt.Fprintf(&b, "  %-16s n=%-8d mean=%6.2f  stddev=%6.2f\n", st.Metric, st.Count, st.Mean(), st.StdDev())
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *model) statusLine() string {
	parts := []string{fmt.Sprintf("UPDATED %s", m.snap.TakenAt.Local().Format(time.TimeOnly))}
	if m.paused {
		parts = append(parts, m.styles.warning.Render("PAUSED"))
	} else {
		parts = append(parts, fmt.Sprintf("EVERY %s", m.refresh))
	}
	if m.lastErr != nil {
		parts = append(parts, m.styles.error.Render("⚠ "+m.lastErr.Error()))
	}
	parts = append(parts, "q quit │ p pause │ r refresh")
	return m.styles.inactive.Render(strings.Join(parts, " │ "))
}
