package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTargetsIndividual(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SSH.Username = "ml"
	cfg.Targets.Individual = []TargetEntry{
		{Host: "gpu-a.example.com"},
		{Host: "gpu-b.example.com", Username: "admin", Label: "trainer"},
	}

	targets, err := ResolveTargets(cfg)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, "gpu-a.example.com", targets[0].Host)
	assert.Equal(t, "ml", targets[0].User)
	assert.Equal(t, "gpu-a.example.com", targets[0].DisplayName())

	assert.Equal(t, "admin", targets[1].User)
	assert.Equal(t, "trainer", targets[1].DisplayName())
}

func TestResolveTargetsPatternExpansion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SSH.Username = "ml"
	cfg.Targets.Patterns = []Pattern{
		{Prefix: "node", Start: 1, End: 3, Digits: 2},
	}

	targets, err := ResolveTargets(cfg)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "node01", targets[0].Host)
	assert.Equal(t, "node02", targets[1].Host)
	assert.Equal(t, "node03", targets[2].Host)
}

func TestResolveTargetsPatternNoPadding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SSH.Username = "ml"
	cfg.Targets.Patterns = []Pattern{
		{Prefix: "gpu", Start: 9, End: 11, Username: "patternuser"},
	}

	targets, err := ResolveTargets(cfg)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "gpu9", targets[0].Host)
	assert.Equal(t, "gpu10", targets[1].Host)
	assert.Equal(t, "gpu11", targets[2].Host)
	assert.Equal(t, "patternuser", targets[0].User)
}

func TestResolveTargetsDedupesByHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SSH.Username = "ml"
	cfg.Targets.Individual = []TargetEntry{
		{Host: "node01", Username: "first"},
		{Host: "node01", Username: "second"},
	}
	cfg.Targets.Patterns = []Pattern{
		{Prefix: "node", Start: 1, End: 2, Digits: 2},
	}

	targets, err := ResolveTargets(cfg)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	// First occurrence wins.
	assert.Equal(t, "node01", targets[0].Host)
	assert.Equal(t, "first", targets[0].User)
	assert.Equal(t, "node02", targets[1].Host)
}

func TestResolveTargetsOrderIsIndividualThenPatterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SSH.Username = "ml"
	cfg.Targets.Individual = []TargetEntry{{Host: "standalone"}}
	cfg.Targets.Patterns = []Pattern{
		{Prefix: "rack", Start: 1, End: 2},
	}

	targets, err := ResolveTargets(cfg)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "standalone", targets[0].Host)
	assert.Equal(t, "rack1", targets[1].Host)
	assert.Equal(t, "rack2", targets[2].Host)
}

func TestResolveTargetsEmptyFleet(t *testing.T) {
	cfg := DefaultConfig()

	_, err := ResolveTargets(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No targets configured")
}

func TestResolveTargetsMissingHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Targets.Individual = []TargetEntry{{Username: "nobody"}}

	_, err := ResolveTargets(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a host")
}

func TestResolveTargetsJumpHostInheritance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SSH.Username = "ml"
	cfg.SSH.JumpHost = "bastion.example.com"
	cfg.Targets.Individual = []TargetEntry{
		{Host: "inner01"},
		{Host: "inner02", JumpHost: "other-bastion"},
	}

	targets, err := ResolveTargets(cfg)
	require.NoError(t, err)
	assert.Equal(t, "bastion.example.com", targets[0].JumpHost)
	assert.Equal(t, "other-bastion", targets[1].JumpHost)
}

func TestTargetID(t *testing.T) {
	target := Target{Host: "gpu01", Label: "primary"}
	assert.Equal(t, "gpu01", target.ID())
	assert.Equal(t, "primary", target.DisplayName())
}
