package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoppen/gpuwatch/internal/config"
	"github.com/mkoppen/gpuwatch/internal/fleet"
	"github.com/mkoppen/gpuwatch/internal/gpu"
)

func testSnapshot() *fleet.Snapshot {
	snap := fleet.NewSnapshot([]config.Target{
		{Host: "gpu01.example.com", User: "ml"},
		{Host: "gpu02.example.com", User: "ml"},
		{Host: "gpu03.example.com", User: "ml"},
	})
	snap.Set(fleet.ProbeResult{
		Host:   "gpu01.example.com",
		Status: fleet.StatusSuccess,
		Devices: []gpu.Device{
			{Index: 0, Name: "NVIDIA A100-SXM4-40GB", UtilizationPercent: 97, MemoryUsedMiB: 39000, MemoryTotalMiB: 40960, ProcessCount: 3},
			{Index: 1, Name: "NVIDIA A100-SXM4-40GB", UtilizationPercent: 0, MemoryUsedMiB: 4, MemoryTotalMiB: 40960},
		},
	})
	snap.Set(fleet.ProbeResult{
		Host:   "gpu02.example.com",
		Status: fleet.StatusTimeout,
		Phase:  fleet.PhaseConnect,
		Detail: "Connection to gpu02.example.com timed out",
	})
	return snap
}

func TestRenderSnapshot(t *testing.T) {
	out := RenderSnapshot(testSnapshot())

	assert.Contains(t, out, "HOST")
	assert.Contains(t, out, "gpu01.example.com")
	assert.Contains(t, out, "A100-SXM4-40GB")
	assert.Contains(t, out, "97%")
	assert.Contains(t, out, "39000/40960 MiB")
	assert.Contains(t, out, "free")

	assert.Contains(t, out, "Timeout (connect)")
	assert.Contains(t, out, "timed out")

	// Third host never probed.
	assert.Contains(t, out, "Connecting")
}

func TestRenderSnapshotSuccessWithNoGPUs(t *testing.T) {
	snap := fleet.NewSnapshot([]config.Target{{Host: "cpuonly", User: "ml"}})
	snap.Set(fleet.ProbeResult{Host: "cpuonly", Status: fleet.StatusSuccess})

	out := RenderSnapshot(snap)
	assert.Contains(t, out, "no GPUs reported")
}

func TestModelQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		m := NewModel(testSnapshot(), make(chan fleet.ProbeResult))
		updated, cmd := m.Update(keyMsg(key))
		require.NotNil(t, cmd, "expected quit command for %q", key)
		assert.Empty(t, updated.(Model).View())
	}
}

func TestModelStopsWhenUpdatesClose(t *testing.T) {
	updates := make(chan fleet.ProbeResult)
	close(updates)

	m := NewModel(testSnapshot(), updates)
	msg := m.waitForUpdate()()
	assert.IsType(t, updatesClosedMsg{}, msg)

	updated, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Empty(t, updated.(Model).View())
}

func TestModelRedrawsOnUpdate(t *testing.T) {
	updates := make(chan fleet.ProbeResult, 1)
	m := NewModel(testSnapshot(), updates)

	result := fleet.ProbeResult{Host: "gpu03.example.com", Status: fleet.StatusAuthFailure}
	updates <- result

	msg := m.waitForUpdate()()
	require.IsType(t, updateMsg{}, msg)

	updated, cmd := m.Update(msg)
	assert.NotNil(t, cmd, "must re-arm the update wait")
	assert.False(t, updated.(Model).lastUpdate.IsZero())
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}
