package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/qtbuild/internal/config"
	"github.com/harrison/qtbuild/internal/qt"
)

// settings is the merged configuration of one command invocation.
type settings struct {
	*config.Config
	home string // qtbuild state directory
	root string // base for relative log_dir and db_path
}

// addConfigFlags registers the flags shared by commands that read config.yaml.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .qtbuild/config.yaml)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Directory for run logs")
	cmd.Flags().String("platform", "", "Platform override (e.g. linux, windows)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.Flags().Bool("no-color", false, "Disable colored console output")
}

// loadSettings loads config.yaml for projectDir and applies the flags the
// command defines. Missing flags are ignored.
func loadSettings(cmd *cobra.Command, projectDir string) (*settings, error) {
	home, err := config.GetHome(projectDir)
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(home, "config.yaml")
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		raw, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", raw, err)
		}
		timeoutPtr = &timeout
	}

	cfg.MergeWithFlags(
		changedString(cmd, "log-level"),
		changedString(cmd, "log-dir"),
		timeoutPtr,
		changedString(cmd, "platform"),
		changedBool(cmd, "no-lock"),
		changedBool(cmd, "no-history"),
	)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &settings{Config: cfg, home: home, root: filepath.Dir(home)}
	if os.Getenv(config.HomeEnv) != "" {
		s.root = home
	}
	return s, nil
}

// logDir returns the absolute run log directory.
func (s *settings) logDir() string {
	return config.ResolvePath(s.root, s.trimDirName(s.LogDir))
}

// dbPath returns the absolute history database path.
func (s *settings) dbPath() string {
	return config.ResolvePath(s.root, s.trimDirName(s.History.DBPath))
}

// trimDirName drops a leading ".qtbuild/" when the state directory was set
// through QTBUILD_HOME, so defaults land directly inside it.
func (s *settings) trimDirName(p string) string {
	if s.root != s.home || filepath.IsAbs(p) {
		return p
	}
	prefix := config.DirName + string(filepath.Separator)
	return strings.TrimPrefix(filepath.Clean(p), prefix)
}

// platform returns the configured platform, or the host's when unset.
func (s *settings) platform() qt.Platform {
	return platformFor(s.Platform)
}

func platformFor(name string) qt.Platform {
	if name == "" {
		return qt.HostPlatform()
	}
	return qt.ResolvePlatform(name)
}

func changedString(cmd *cobra.Command, name string) *string {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}
