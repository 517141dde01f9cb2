package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mkoppen/gpuwatch/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the per-directory config file name.
	ConfigFileName = "gpuwatch.yaml"
	// GlobalConfigDir is the directory for the global config, under $HOME.
	GlobalConfigDir = ".config/gpuwatch"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Load reads config from path and merges CLI overrides on top. Overrides use
// dotted keys matching the YAML layout ("ssh.username", "display.refresh_rate").
// An empty path loads defaults plus overrides only.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found: "+path,
					"Run 'gpuwatch init' to create one, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML: "+path)
		}
	}

	// Overrides win over file values; this is the single merge point, after
	// which the config is immutable.
	for key, val := range overrides {
		v.Set(key, val)
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
//  1. Explicit path (from --config flag)
//  2. gpuwatch.yaml in the current directory
//  3. ~/.config/gpuwatch/config.yaml
//
// Returns an empty string when no config exists, which is not an error:
// --targets can supply the fleet ad hoc.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, ConfigFileName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	global := DefaultConfigPath()
	if global != "" {
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// DefaultConfigPath returns the global config path (for --get-config-path).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// parseConfig converts viper state into our Config with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToTargetEntryHook(),
	))

	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	cfg.SSH.KeyPath = ExpandPath(cfg.SSH.KeyPath)
	for i, entry := range cfg.Targets.Individual {
		cfg.Targets.Individual[i].KeyPath = ExpandPath(entry.KeyPath)
	}
	for i, p := range cfg.Targets.Patterns {
		cfg.Targets.Patterns[i].KeyPath = ExpandPath(p.KeyPath)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// stringToTargetEntryHook lets YAML list plain hostnames where a full target
// mapping is expected:
//
//	targets:
//	  individual:
//	    - gpu01
//	    - host: gpu02
//	      username: alice
func stringToTargetEntryHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(TargetEntry{}) {
			return data, nil
		}
		return TargetEntry{Host: data.(string)}, nil
	}
}

func validate(cfg *Config) error {
	if cfg.SSH.ConnectTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"ssh.connect_timeout must be positive",
			"Use a duration like 10s")
	}
	if cfg.SSH.CommandTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"ssh.command_timeout must be positive",
			"Use a duration like 15s")
	}
	if cfg.Display.RefreshRate <= 0 {
		return errors.New(errors.ErrConfig,
			"display.refresh_rate must be positive",
			"Use a duration like 10s")
	}
	if cfg.Scheduler.MaxInFlight < 0 {
		return errors.New(errors.ErrConfig,
			"scheduler.max_in_flight cannot be negative",
			"Use 0 for one slot per target")
	}
	for _, p := range cfg.Targets.Patterns {
		if p.Prefix == "" {
			return errors.New(errors.ErrConfig,
				"target pattern is missing a prefix",
				"Each pattern needs prefix, start, and end")
		}
		if p.End < p.Start {
			return errors.New(errors.ErrConfig,
				"target pattern end is before start: "+p.Prefix,
				"Ensure start <= end")
		}
	}
	return nil
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
