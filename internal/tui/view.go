package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkoppen/gpuwatch/internal/fleet"
)

// Column widths for the fleet table. Host and detail columns flex; the rest
// are fixed so numbers line up.
const (
	colStatusWidth = 12
	colGPUWidth    = 20
	colUtilWidth   = 6
	colMemWidth    = 18
	colProcsWidth  = 6
)

// renderTable renders the header, fleet table, and key hints.
func (m Model) renderTable() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderRows())
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("q quit"))

	return b.String()
}

func (m Model) renderHeader() string {
	results := m.snapshot.Results()

	var ok, pending int
	for _, r := range results {
		switch r.Status {
		case fleet.StatusSuccess:
			ok++
		case fleet.StatusPending:
			pending++
		}
	}

	title := TitleStyle.Render("gpuwatch")

	var update string
	switch {
	case m.lastUpdate.IsZero():
		update = "waiting for first probe"
	default:
		update = fmt.Sprintf("updated %s", m.lastUpdate.Format("15:04:05"))
	}

	stats := StatsStyle.Render(fmt.Sprintf(" | %d hosts | %d ok | %d pending | %s",
		len(results), ok, pending, update))

	return HeaderStyle.Render(title + stats)
}

func (m Model) renderRows() string {
	results := m.snapshot.Results()
	hostWidth := hostColumnWidth(m.snapshot)

	var rows []string
	rows = append(rows, renderHeaderRow(hostWidth))

	for _, r := range results {
		rows = append(rows, m.renderHostRows(r, hostWidth)...)
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderHostRows renders one host: a row per GPU on success, a single status
// row otherwise.
func (m Model) renderHostRows(r fleet.ProbeResult, hostWidth int) []string {
	host := HostStyle.Render(pad(r.Host, hostWidth))

	if r.Status != fleet.StatusSuccess {
		status := m.renderStatusCell(r)
		detail := MutedStyle.Render(r.Detail)
		return []string{host + status + detail}
	}

	status := statusStyle(r.Status).Render(pad(r.Status.String(), colStatusWidth))

	if len(r.Devices) == 0 {
		return []string{host + status + MutedStyle.Render("no GPUs reported")}
	}

	rows := make([]string, 0, len(r.Devices))
	for i, d := range r.Devices {
		left := host + status
		if i > 0 {
			// GPU rows after the first repeat neither host nor status.
			left = pad("", hostWidth) + pad("", colStatusWidth)
		}

		gpuName := CellStyle.Render(pad(truncateName(d.Name, colGPUWidth-2), colGPUWidth))
		util := utilStyle(d.UtilizationPercent).Render(pad(fmt.Sprintf("%d%%", d.UtilizationPercent), colUtilWidth))
		mem := CellStyle.Render(pad(fmt.Sprintf("%d/%d MiB", d.MemoryUsedMiB, d.MemoryTotalMiB), colMemWidth))

		procs := pad(fmt.Sprintf("%d", d.ProcessCount), colProcsWidth)
		if d.Free() {
			procs = statusOKStyle.Render(pad("free", colProcsWidth))
		} else {
			procs = statusBusyStyle.Render(procs)
		}

		rows = append(rows, left+gpuName+util+mem+procs)
	}
	return rows
}

// renderStatusCell renders the status column, animating pending hosts.
func (m Model) renderStatusCell(r fleet.ProbeResult) string {
	if r.Status == fleet.StatusPending {
		label := m.spinner.View() + " " + statusPendingStyle.Render(r.Status.String())
		if gap := colStatusWidth - lipgloss.Width(label); gap > 0 {
			label += strings.Repeat(" ", gap)
		}
		return label
	}
	label := r.Status.String()
	if r.Status == fleet.StatusTimeout && r.Phase != "" {
		label = fmt.Sprintf("%s (%s)", label, r.Phase)
	}
	return statusStyle(r.Status).Render(pad(label, colStatusWidth))
}

func renderHeaderRow(hostWidth int) string {
	return TableHeaderStyle.Render(
		pad("HOST", hostWidth) +
			pad("STATUS", colStatusWidth) +
			pad("GPU", colGPUWidth) +
			pad("UTIL", colUtilWidth) +
			pad("MEMORY", colMemWidth) +
			pad("PROCS", colProcsWidth))
}

// RenderSnapshot renders the fleet table without animation, for the one-shot
// plain mode on non-TTY stdout.
func RenderSnapshot(snapshot *fleet.Snapshot) string {
	m := Model{snapshot: snapshot, spinner: spinner.New()}
	var b strings.Builder
	b.WriteString(m.renderRows())
	b.WriteString("\n")
	return b.String()
}

// hostColumnWidth sizes the host column to the longest name plus breathing
// room.
func hostColumnWidth(s *fleet.Snapshot) int {
	w := len("HOST")
	for _, t := range s.Targets() {
		if len(t.Host) > w {
			w = len(t.Host)
		}
	}
	return w + 2
}

func pad(s string, width int) string {
	if lipgloss.Width(s) >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s))
}

func truncateName(name string, limit int) string {
	// nvidia-smi names carry a redundant vendor prefix.
	name = strings.TrimPrefix(name, "NVIDIA ")
	if len(name) > limit {
		return name[:limit-1] + "…"
	}
	return name
}
