package cli

import (
	"github.com/spf13/cobra"
)

// buildOverrides converts flags the user actually set into config overrides
// keyed like the YAML layout. Unset flags never shadow file values.
func buildOverrides(cmd *cobra.Command) map[string]any {
	overrides := make(map[string]any)

	set := func(flag, key string, val any) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = val
		}
	}

	set("ssh.username", "ssh.username", sshUsernameFlag)
	set("ssh.key-path", "ssh.key_path", sshKeyPathFlag)
	set("ssh.jump-host", "ssh.jump_host", sshJumpHostFlag)
	set("ssh.connect-timeout", "ssh.connect_timeout", sshConnectTimeoutFlag)
	set("ssh.command-timeout", "ssh.command_timeout", sshCommandTimeoutFlag)
	set("display.refresh-rate", "display.refresh_rate", refreshRateFlag)
	set("scheduler.max-in-flight", "scheduler.max_in_flight", maxInFlightFlag)
	set("debug.enabled", "debug.enabled", debugFlag)
	set("debug.log-dir", "debug.log_dir", debugLogDirFlag)
	set("http.listen", "http.listen", httpListenFlag)

	// --targets replaces the configured fleet entirely, patterns included.
	if cmd.Flags().Changed("targets") {
		overrides["targets.individual"] = targetsFlag
		overrides["targets.patterns"] = []any{}
	}

	return overrides
}
