// Package tui renders a live dashboard over a running pool: lifecycle
// state, queue depth, task counters, scaling activity, and a per-unit
// table, refreshed on a fixed interval from metrics snapshots.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AndreaCadonna/flexpool/internal/metrics"
	"github.com/AndreaCadonna/flexpool/internal/pool"
)

// refreshInterval is how often the dashboard re-snapshots the pool.
const refreshInterval = 250 * time.Millisecond

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// poolDoneMsg is sent when the pool finishes terminating.
type poolDoneMsg struct{}

// Model is the Bubbletea model for the dashboard.
type Model struct {
	pool     *pool.Pool
	snapshot metrics.Snapshot
	state    pool.State
	depth    int
	width    int
	height   int
	started  time.Time
	done     bool
}

// NewModel creates the dashboard model for the given pool.
func NewModel(p *pool.Pool) Model {
	return Model{
		pool:     p,
		snapshot: p.GetMetrics(),
		state:    p.State(),
		started:  time.Now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForPoolDone delivers poolDoneMsg once the pool has terminated.
func waitForPoolDone(p *pool.Pool) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return poolDoneMsg{}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForPoolDone(m.pool))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.snapshot = m.pool.GetMetrics()
		m.state = m.pool.State()
		m.depth = m.pool.QueueDepth()
		return m, tick()

	case poolDoneMsg:
		m.snapshot = m.pool.GetMetrics()
		m.state = m.pool.State()
		m.depth = 0
		m.done = true
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(Title.Render("flexpool"))
	b.WriteString("\n")

	state := stateStyle(m.state.String()).Render(strings.ToUpper(m.state.String()))
	b.WriteString(fmt.Sprintf("%s %s   %s %s\n\n",
		Label.Render("state:"), state,
		Label.Render("uptime:"), Value.Render(time.Since(m.started).Truncate(time.Second).String()),
	))

	b.WriteString(m.renderCounters())
	b.WriteString("\n")
	b.WriteString(m.renderUnits())

	if m.done {
		b.WriteString("\n" + Subtitle.Render("pool terminated"))
	}
	b.WriteString(Help.Render("q: quit"))
	return b.String()
}

func (m Model) renderCounters() string {
	s := m.snapshot

	tasks := fmt.Sprintf(
		"%s %s  %s %s  %s %s  %s %s  %s %s",
		Label.Render("queued:"), Value.Render(fmt.Sprint(m.depth)),
		Label.Render("done:"), Good.Render(fmt.Sprint(s.TasksProcessed)),
		Label.Render("failed:"), Bad.Render(fmt.Sprint(s.TasksFailed)),
		Label.Render("retried:"), Warn.Render(fmt.Sprint(s.TasksRetried)),
		Label.Render("cancelled:"), Value.Render(fmt.Sprint(s.TasksCancelled)),
	)

	scaling := fmt.Sprintf(
		"%s %s  %s %s  %s %s  %s %s",
		Label.Render("scale ups:"), Value.Render(fmt.Sprint(s.ScaleUpEvents)),
		Label.Render("scale downs:"), Value.Render(fmt.Sprint(s.ScaleDownEvents)),
		Label.Render("crashes:"), Bad.Render(fmt.Sprint(s.UnitCrashes)),
		Label.Render("peak depth:"), Value.Render(fmt.Sprint(s.PeakQueueDepth)),
	)

	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, tasks, scaling)) + "\n"
}

func (m Model) renderUnits() string {
	s := m.snapshot

	var rows []string
	rows = append(rows, Label.Render(fmt.Sprintf("%-5s %-14s %-10s %10s %9s", "SLOT", "UNIT", "STATUS", "COMPLETED", "RESTARTS")))
	for _, u := range s.Units {
		status := Good.Render("active")
		if !u.Active {
			if u.Restarts > 0 {
				status = Bad.Render("crashed")
			} else {
				status = Label.Render("gone")
			}
		}
		rows = append(rows, fmt.Sprintf("%-5d %-14s %-10s %10d %9d",
			u.Slot, u.ID, status, u.TasksCompleted, u.Restarts))
	}
	if len(s.Units) == 0 {
		rows = append(rows, Subtitle.Render("no units yet"))
	}

	header := fmt.Sprintf("%s %s / peak %s",
		Label.Render("units:"),
		Value.Render(fmt.Sprint(countActive(s))),
		Value.Render(fmt.Sprint(s.PeakUnits)),
	)
	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{header, ""}, rows...)...)) + "\n"
}

func countActive(s metrics.Snapshot) int {
	n := 0
	for _, u := range s.Units {
		if u.Active {
			n++
		}
	}
	return n
}
