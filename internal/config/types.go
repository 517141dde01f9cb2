package config

import "time"

// Config is the complete gpuwatch configuration. CLI overrides are merged in
// by the loader; once the scheduler starts the value is never mutated.
type Config struct {
	SSH       SSHConfig       `yaml:"ssh" mapstructure:"ssh"`
	Targets   TargetsConfig   `yaml:"targets" mapstructure:"targets"`
	Display   DisplayConfig   `yaml:"display" mapstructure:"display"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Debug     DebugConfig     `yaml:"debug" mapstructure:"debug"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
}

// SSHConfig holds fleet-wide connection defaults. Individual targets may
// override username and key path.
type SSHConfig struct {
	// Username is the default SSH username for all targets.
	Username string `yaml:"username" mapstructure:"username"`

	// KeyPath is the default private key, ~ expanded at load time.
	KeyPath string `yaml:"key_path" mapstructure:"key_path"`

	// JumpHost tunnels all target connections when set (user@host or host).
	JumpHost string `yaml:"jump_host" mapstructure:"jump_host"`

	// ConnectTimeout bounds connection establishment per hop.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// CommandTimeout bounds remote command execution, independently of
	// ConnectTimeout.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`

	// StrictHostKey verifies host keys against ~/.ssh/known_hosts.
	StrictHostKey bool `yaml:"strict_host_key" mapstructure:"strict_host_key"`
}

// TargetsConfig declares the fleet: explicit entries plus numbered patterns.
type TargetsConfig struct {
	Individual []TargetEntry `yaml:"individual" mapstructure:"individual"`
	Patterns   []Pattern     `yaml:"patterns" mapstructure:"patterns"`
}

// TargetEntry is one explicitly listed machine. In YAML it may be written as
// a plain string (just the host) or as a mapping with overrides.
type TargetEntry struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	JumpHost string `yaml:"jump_host" mapstructure:"jump_host"`
	Label    string `yaml:"label" mapstructure:"label"`
}

// Pattern expands into targets prefix<start>..prefix<end>, zero-padded to
// Digits when set (gpu01, gpu02, ...).
type Pattern struct {
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	Start    int    `yaml:"start" mapstructure:"start"`
	End      int    `yaml:"end" mapstructure:"end"`
	Digits   int    `yaml:"digits" mapstructure:"digits"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
}

// DisplayConfig controls the live table.
type DisplayConfig struct {
	// RefreshRate is how often a new probe round is launched.
	RefreshRate time.Duration `yaml:"refresh_rate" mapstructure:"refresh_rate"`
}

// SchedulerConfig bounds the polling engine.
type SchedulerConfig struct {
	// MaxInFlight caps concurrently running probes. 0 means one slot per
	// target (effectively unbounded).
	MaxInFlight int `yaml:"max_in_flight" mapstructure:"max_in_flight"`
}

// DebugConfig controls the debug log file. The live table owns the terminal,
// so diagnostics never go to stdout.
type DebugConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	LogDir     string `yaml:"log_dir" mapstructure:"log_dir"`
	LogFile    string `yaml:"log_file" mapstructure:"log_file"`
	LogMaxSize int64  `yaml:"log_max_size" mapstructure:"log_max_size"`
}

// HTTPConfig exposes the current snapshot as JSON for scripting when Listen
// is set (e.g. "127.0.0.1:9111").
type HTTPConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SSH: SSHConfig{
			KeyPath:        "~/.ssh/id_ed25519",
			ConnectTimeout: 10 * time.Second,
			CommandTimeout: 15 * time.Second,
			StrictHostKey:  false,
		},
		Display: DisplayConfig{
			RefreshRate: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			MaxInFlight: 16,
		},
		Debug: DebugConfig{
			Enabled: false,
			LogDir:  "logs",
			LogFile: "gpuwatch.log",
		},
	}
}
