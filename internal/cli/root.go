// Package cli wires the gpuwatch commands: the default watch loop, init, and
// version.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Root-level flags. All ssh.*, display.*, scheduler.*, debug.*, and http.*
// flags mirror config keys and are merged as overrides when set.
var (
	configFlag        string
	getConfigPathFlag bool
	targetsFlag       []string
	plainFlag         bool

	sshUsernameFlag       string
	sshKeyPathFlag        string
	sshJumpHostFlag       string
	sshConnectTimeoutFlag string
	sshCommandTimeoutFlag string
	refreshRateFlag       string
	maxInFlightFlag       int
	debugFlag             bool
	debugLogDirFlag       string
	httpListenFlag        string
)

// rootCmd runs the watch loop when invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "gpuwatch",
	Short: "Watch GPU usage across an SSH fleet",
	Long: `gpuwatch polls a fleet of machines over SSH for GPU utilization, memory,
and running compute processes, and renders a live-updating table.

Targets come from a config file (gpuwatch.yaml) or the --targets flag.

Examples:
  gpuwatch
  gpuwatch --targets gpu01 gpu02 gpu03 --ssh.username ml
  gpuwatch --config ./cluster.yaml --ssh.jump-host bastion
  gpuwatch --http.listen 127.0.0.1:9111`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if getConfigPathFlag {
			return printConfigPath()
		}
		return watchCommand(cmd)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configFlag, "config", "", "Path to config file")
	f.BoolVar(&getConfigPathFlag, "get-config-path", false, "Print the global config path and exit")
	f.StringSliceVar(&targetsFlag, "targets", nil, "Ad-hoc target hosts (replaces configured targets)")
	f.BoolVar(&plainFlag, "plain", false, "One-shot plain output instead of the live table")

	f.StringVar(&sshUsernameFlag, "ssh.username", "", "SSH username for all targets")
	f.StringVar(&sshKeyPathFlag, "ssh.key-path", "", "SSH private key path")
	f.StringVar(&sshJumpHostFlag, "ssh.jump-host", "", "Jump host to tunnel through (user@host)")
	f.StringVar(&sshConnectTimeoutFlag, "ssh.connect-timeout", "", "Connection timeout per hop (e.g. 10s)")
	f.StringVar(&sshCommandTimeoutFlag, "ssh.command-timeout", "", "Remote command timeout (e.g. 15s)")
	f.StringVar(&refreshRateFlag, "display.refresh-rate", "", "Interval between probe rounds (e.g. 10s)")
	f.IntVar(&maxInFlightFlag, "scheduler.max-in-flight", 0, "Max concurrent probes (0 = one per target)")
	f.BoolVar(&debugFlag, "debug.enabled", false, "Write diagnostics to the debug log file")
	f.StringVar(&debugLogDirFlag, "debug.log-dir", "", "Directory for the debug log file")
	f.StringVar(&httpListenFlag, "http.listen", "", "Serve fleet status as JSON on this address")
}

// Execute runs the root command. Errors are already formatted by the
// structured error type, so they print as-is.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersionInfo sets the version information (called from main).
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
