package cli

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOverridesOnlyChangedFlags(t *testing.T) {
	require.NoError(t, rootCmd.Flags().Set("ssh.username", "ml"))
	require.NoError(t, rootCmd.Flags().Set("display.refresh-rate", "30s"))
	defer resetFlags(t)

	overrides := buildOverrides(rootCmd)

	assert.Equal(t, "ml", overrides["ssh.username"])
	assert.Equal(t, "30s", overrides["display.refresh_rate"])
	assert.NotContains(t, overrides, "ssh.key_path")
	assert.NotContains(t, overrides, "scheduler.max_in_flight")
}

func TestBuildOverridesTargetsReplaceFleet(t *testing.T) {
	require.NoError(t, rootCmd.Flags().Set("targets", "gpu01,gpu02"))
	defer resetFlags(t)

	overrides := buildOverrides(rootCmd)

	assert.Equal(t, []string{"gpu01", "gpu02"}, overrides["targets.individual"])
	// Patterns from the config file must not survive an ad-hoc fleet.
	assert.Equal(t, []any{}, overrides["targets.patterns"])
}

func TestBuildOverridesDebugFlag(t *testing.T) {
	require.NoError(t, rootCmd.Flags().Set("debug.enabled", "true"))
	defer resetFlags(t)

	overrides := buildOverrides(rootCmd)
	assert.Equal(t, true, overrides["debug.enabled"])
}

func TestBuildOverridesEmptyWhenNothingSet(t *testing.T) {
	assert.Empty(t, buildOverrides(rootCmd))
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", formatVersion("v1.2.3"))
}

func TestSplitTargets(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTargets("a b,c"))
	assert.Equal(t, []string{"gpu01"}, splitTargets("  gpu01  "))
	assert.Empty(t, splitTargets(" , "))
}

// resetFlags clears flag Changed state between tests; cobra keeps it on the
// package-level command. buildOverrides only consults Changed, so resetting
// the values themselves is not required.
func resetFlags(t *testing.T) {
	t.Helper()
	rootCmd.Flags().Visit(func(f *pflag.Flag) {
		f.Changed = false
	})
	targetsFlag = nil
}
