package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/mkoppen/gpuwatch/internal/fleet"
)

func init() {
	// Force TrueColor output in tests so we can verify ANSI color codes
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestStatusStyleBySeverity(t *testing.T) {
	assert.Equal(t, statusOKStyle, statusStyle(fleet.StatusSuccess))
	assert.Equal(t, statusPendingStyle, statusStyle(fleet.StatusPending))
	assert.Equal(t, statusBusyStyle, statusStyle(fleet.StatusTimeout))
	assert.Equal(t, statusBusyStyle, statusStyle(fleet.StatusParseFailure))
	assert.Equal(t, statusFailStyle, statusStyle(fleet.StatusConnectFailure))
	assert.Equal(t, statusFailStyle, statusStyle(fleet.StatusAuthFailure))
}

func TestUtilStyleThresholds(t *testing.T) {
	assert.Equal(t, statusOKStyle, utilStyle(0))
	assert.Equal(t, statusOKStyle, utilStyle(WarningThreshold-1))
	assert.Equal(t, statusBusyStyle, utilStyle(WarningThreshold))
	assert.Equal(t, statusBusyStyle, utilStyle(CriticalThreshold-1))
	assert.Equal(t, statusFailStyle, utilStyle(CriticalThreshold))
	assert.Equal(t, statusFailStyle, utilStyle(100))
}

func TestStatusColorsAreDistinct(t *testing.T) {
	ok := statusStyle(fleet.StatusSuccess).Render("x")
	fail := statusStyle(fleet.StatusAuthFailure).Render("x")
	assert.NotEqual(t, ok, fail, "healthy and failed hosts must render differently")
	assert.Contains(t, ok, "\x1b[", "expected ANSI codes under the forced color profile")
}
