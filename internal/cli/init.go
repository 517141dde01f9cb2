package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mkoppen/gpuwatch/internal/config"
	"github.com/mkoppen/gpuwatch/internal/errors"
)

var (
	initForce  bool
	initGlobal bool
)

// initCmd creates a gpuwatch.yaml configuration interactively.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a gpuwatch configuration file",
	Long: `Initialize a gpuwatch configuration file with interactive prompts.

Writes gpuwatch.yaml in the current directory, or the global config with
--global.

Examples:
  gpuwatch init
  gpuwatch init --global
  gpuwatch init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce, initGlobal)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "Write to the global config path")
}

func initCommand(force, global bool) error {
	path := filepath.Join(".", config.ConfigFileName)
	if global {
		path = config.DefaultConfigPath()
		if path == "" {
			return errors.New(errors.ErrConfig,
				"Cannot determine the global config path",
				"Set $HOME and try again")
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	var (
		username    string
		keyPath     = "~/.ssh/id_ed25519"
		targetsRaw  string
		jumpHost    string
		refreshRaw  = "10s"
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("SSH username").
				Description("Used for all targets unless a target overrides it").
				Placeholder(os.Getenv("USER")).
				Value(&username),
			huh.NewInput().
				Title("SSH private key").
				Value(&keyPath),
			huh.NewInput().
				Title("Targets").
				Description("Space or comma separated hostnames").
				Placeholder("gpu01 gpu02 gpu03").
				Value(&targetsRaw).
				Validate(func(s string) error {
					if len(splitTargets(s)) == 0 {
						return fmt.Errorf("at least one target is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Jump host (optional)").
				Description("Tunnel all connections through this host").
				Placeholder("user@bastion").
				Value(&jumpHost),
			huh.NewInput().
				Title("Refresh interval").
				Value(&refreshRaw),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Re-run 'gpuwatch init' to try again")
	}

	refresh, err := time.ParseDuration(refreshRaw)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid refresh interval: "+refreshRaw,
			"Use a duration like 10s or 1m")
	}

	cfg := config.DefaultConfig()
	cfg.SSH.Username = strings.TrimSpace(username)
	cfg.SSH.KeyPath = strings.TrimSpace(keyPath)
	cfg.SSH.JumpHost = strings.TrimSpace(jumpHost)
	cfg.Display.RefreshRate = refresh
	for _, host := range splitTargets(targetsRaw) {
		cfg.Targets.Individual = append(cfg.Targets.Individual, config.TargetEntry{Host: host})
	}

	if err := writeConfigFile(path, cfg); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Run 'gpuwatch' to start watching.")
	return nil
}

func writeConfigFile(path string, cfg *config.Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot create config directory: "+dir,
				"Check directory permissions")
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode config",
			"This is a bug; please report it")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write config file: "+path,
			"Check directory permissions")
	}
	return nil
}

// splitTargets parses a space or comma separated host list.
func splitTargets(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
