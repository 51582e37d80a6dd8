package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-project directory holding configuration, logs and history.
const DirName = ".qtbuild"

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	// Enabled records every run and its steps
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database, relative to the project directory
	DBPath string `yaml:"db_path"`

	// KeepRuns is the number of most recent runs kept after each run (0 = keep all)
	KeepRuns int `yaml:"keep_runs"`
}

// Config represents qtbuild configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// Timeout bounds a whole run (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`

	// LockBuilds serialises runs sharing a build directory
	LockBuilds bool `yaml:"lock_builds"`

	// Platform overrides the host OS name used to pick shell and toolchain conventions
	Platform string `yaml:"platform"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		LogDir:     filepath.Join(DirName, "logs"),
		Timeout:    0,
		LockBuilds: true,
		History: HistoryConfig{
			Enabled:  true,
			DBPath:   filepath.Join(DirName, "history.db"),
			KeepRuns: 200,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decode into a node first so explicitly set false/zero values still
	// override the defaults.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(root.Content) == 0 {
		return cfg, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse config file: expected a mapping at top level")
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i].Value, doc.Content[i+1]
		var err error
		switch key {
		case "log_level":
			err = value.Decode(&cfg.LogLevel)
		case "log_dir":
			err = value.Decode(&cfg.LogDir)
		case "timeout":
			cfg.Timeout, err = decodeDuration(value)
		case "lock_builds":
			err = value.Decode(&cfg.LockBuilds)
		case "platform":
			err = value.Decode(&cfg.Platform)
		case "history":
			err = value.Decode(&cfg.History)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return cfg, nil
}

func decodeDuration(node *yaml.Node) (time.Duration, error) {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout format %q: %w", raw, err)
	}
	return d, nil
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(logLevel *string, logDir *string, timeout *time.Duration, platform *string, noLock *bool, noHistory *bool) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if platform != nil {
		c.Platform = *platform
	}
	if noLock != nil && *noLock {
		c.LockBuilds = false
	}
	if noHistory != nil && *noHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("history.db_path cannot be empty when history is enabled")
		}
		if c.History.KeepRuns < 0 {
			return fmt.Errorf("history.keep_runs must be >= 0, got %d", c.History.KeepRuns)
		}
	}

	return nil
}

// ResolvePath returns p unchanged when absolute, else joined onto base.
func ResolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
