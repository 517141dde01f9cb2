// Package tui renders the live fleet table. Results stream in from the
// scheduler one host at a time, so the table updates as probes complete
// rather than once per round.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkoppen/gpuwatch/internal/fleet"
)

// updateMsg carries one completed probe result.
type updateMsg fleet.ProbeResult

// updatesClosedMsg signals the scheduler has shut down.
type updatesClosedMsg struct{}

// Model is the Bubble Tea model for the fleet table.
type Model struct {
	snapshot *fleet.Snapshot
	updates  <-chan fleet.ProbeResult

	spinner    spinner.Model
	width      int
	height     int
	lastUpdate time.Time
	quitting   bool
}

// NewModel builds the table model over the scheduler's snapshot and update
// stream.
func NewModel(snapshot *fleet.Snapshot, updates <-chan fleet.ProbeResult) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	return Model{
		snapshot: snapshot,
		updates:  updates,
		spinner:  sp,
	}
}

// Init starts the spinner and the first blocking read on the update stream.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case updateMsg:
		// The snapshot already holds the result; the message is just the
		// redraw trigger.
		m.lastUpdate = time.Now()
		return m, m.waitForUpdate()

	case updatesClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the fleet table.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderTable()
}

// waitForUpdate blocks on the update stream. One message per completed
// probe; a closed channel means the scheduler is gone.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		r, ok := <-m.updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(r)
	}
}
