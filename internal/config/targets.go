package config

import (
	"fmt"
	"os"

	"github.com/kevinburke/ssh_config"
	"github.com/mkoppen/gpuwatch/internal/errors"
)

// Target identifies one remote machine with resolved connection settings.
// Immutable once resolved; the scheduler reads it, never writes it.
type Target struct {
	Host     string
	User     string
	KeyPath  string
	JumpHost string
	Label    string
}

// ID returns the snapshot key for this target. Hosts are deduplicated at
// resolve time, so the host is a unique identity.
func (t Target) ID() string {
	return t.Host
}

// DisplayName returns the label if set, otherwise the host.
func (t Target) DisplayName() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Host
}

// ResolveTargets flattens the configured fleet into an ordered list of
// targets: individual entries first, then expanded patterns, deduplicated by
// host with first occurrence winning. Username and key fall back to the
// ssh.* defaults, then to ~/.ssh/config, then to $USER.
func ResolveTargets(cfg *Config) ([]Target, error) {
	var targets []Target

	for _, entry := range cfg.Targets.Individual {
		if entry.Host == "" {
			return nil, errors.New(errors.ErrConfig,
				"Individual target is missing a host",
				"Each targets.individual entry needs at least a host")
		}
		targets = append(targets, resolveOne(cfg, entry))
	}

	for _, p := range cfg.Targets.Patterns {
		for n := p.Start; n <= p.End; n++ {
			host := p.Prefix + formatNumber(n, p.Digits)
			targets = append(targets, resolveOne(cfg, TargetEntry{
				Host:     host,
				Username: p.Username,
				KeyPath:  p.KeyPath,
			}))
		}
	}

	targets = dedupe(targets)
	if len(targets) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No targets configured",
			"Add targets to the config file or pass --targets host1 host2 ...")
	}

	return targets, nil
}

func resolveOne(cfg *Config, entry TargetEntry) Target {
	t := Target{
		Host:     entry.Host,
		User:     entry.Username,
		KeyPath:  ExpandPath(entry.KeyPath),
		JumpHost: entry.JumpHost,
		Label:    entry.Label,
	}

	if t.User == "" {
		t.User = cfg.SSH.Username
	}
	if t.KeyPath == "" {
		t.KeyPath = cfg.SSH.KeyPath
	}
	if t.JumpHost == "" {
		t.JumpHost = cfg.SSH.JumpHost
	}

	// ~/.ssh/config fills remaining gaps, same as plain ssh would.
	if t.User == "" {
		if user := ssh_config.Get(entry.Host, "User"); user != "" {
			t.User = user
		}
	}
	if t.KeyPath == "" || t.KeyPath == ExpandPath(DefaultConfig().SSH.KeyPath) {
		if identity := ssh_config.Get(entry.Host, "IdentityFile"); identity != "" && identity != ssh_config.Default("IdentityFile") {
			t.KeyPath = ExpandPath(identity)
		}
	}

	if t.User == "" {
		t.User = currentUser()
	}

	return t
}

// dedupe removes duplicate hosts, preserving first-occurrence order.
func dedupe(targets []Target) []Target {
	seen := make(map[string]bool, len(targets))
	unique := targets[:0]
	for _, t := range targets {
		if seen[t.Host] {
			continue
		}
		seen[t.Host] = true
		unique = append(unique, t)
	}
	return unique
}

func formatNumber(n, digits int) string {
	if digits > 0 {
		return fmt.Sprintf("%0*d", digits, n)
	}
	return fmt.Sprintf("%d", n)
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}
