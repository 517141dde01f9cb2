package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mkoppen/gpuwatch/internal/fleet"
)

// Fleet table color palette
const (
	ColorHealthy  = lipgloss.Color("#39FF14") // free GPUs
	ColorWarning  = lipgloss.Color("#FFAA00") // busy but reachable
	ColorCritical = lipgloss.Color("#FF0055") // unreachable / failed

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")
)

// Utilization severity thresholds (percent).
const (
	WarningThreshold  = 70
	CriticalThreshold = 90
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StatsStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorTextSecondary).
				Bold(true)

	HostStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	CellStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	statusPendingStyle = lipgloss.NewStyle().Foreground(ColorTextSecondary)
	statusOKStyle      = lipgloss.NewStyle().Foreground(ColorHealthy)
	statusBusyStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	statusFailStyle    = lipgloss.NewStyle().Foreground(ColorCritical)
)

// statusStyle picks the color for a host's status cell.
func statusStyle(s fleet.Status) lipgloss.Style {
	switch s {
	case fleet.StatusPending:
		return statusPendingStyle
	case fleet.StatusSuccess:
		return statusOKStyle
	case fleet.StatusTimeout, fleet.StatusParseFailure:
		return statusBusyStyle
	default:
		return statusFailStyle
	}
}

// utilStyle colors a utilization cell by severity.
func utilStyle(percent int) lipgloss.Style {
	switch {
	case percent >= CriticalThreshold:
		return statusFailStyle
	case percent >= WarningThreshold:
		return statusBusyStyle
	default:
		return statusOKStyle
	}
}
