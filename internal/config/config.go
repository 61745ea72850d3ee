package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ning0612/Mirrorsync/internal/domain"
	"github.com/Ning0612/Mirrorsync/internal/logger"
)

// Config represents the complete configuration for mirrorsync
type Config struct {
	// Source is the directory tree being mirrored
	Source string `mapstructure:"source"`

	// Destination is kept identical to Source
	Destination string `mapstructure:"destination"`

	// Interval between two passes when running as a daemon
	Interval time.Duration `mapstructure:"interval"`

	// RunOnStart runs a pass immediately instead of waiting one interval
	RunOnStart bool `mapstructure:"run_on_start"`

	// Exclude holds gitignore-style patterns matched relative to the roots
	Exclude []string `mapstructure:"exclude"`

	Log      LogConfig `mapstructure:"log"`
	Settings Settings  `mapstructure:"settings"`
}

// LogConfig configures the sync log
type LogConfig struct {
	// Path of the append-only log file; empty disables file logging
	Path       string `mapstructure:"path"`
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Console    bool   `mapstructure:"console"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Settings holds runtime file locations
type Settings struct {
	StateDir string `mapstructure:"state_dir"`
	PIDFile  string `mapstructure:"pid_file"`
}

// ValidateTrees checks the settings needed for a single pass
func (c *Config) ValidateTrees() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source directory is required", domain.ErrConfigInvalid)
	}
	if c.Destination == "" {
		return fmt.Errorf("%w: destination directory is required", domain.ErrConfigInvalid)
	}
	src, dst := absPath(c.Source), absPath(c.Destination)
	if src == dst {
		return fmt.Errorf("%w: source and destination are the same directory: %s",
			domain.ErrConfigInvalid, c.Source)
	}
	if nested(src, dst) || nested(dst, src) {
		return fmt.Errorf("%w: source %s and destination %s must not contain each other",
			domain.ErrConfigInvalid, c.Source, c.Destination)
	}
	return c.validateLog()
}

// absPath resolves p against the working directory
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func nested(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Validate checks the settings needed to run as a daemon
func (c *Config) Validate() error {
	if err := c.ValidateTrees(); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", domain.ErrConfigInvalid, c.Interval)
	}
	return nil
}

func (c *Config) validateLog() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level: %s", domain.ErrConfigInvalid, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format: %s", domain.ErrConfigInvalid, c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxAgeDays < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("%w: log rotation limits cannot be negative", domain.ErrConfigInvalid)
	}
	return nil
}

// ExpandPaths expands ~ and environment variables in every configured path
func (c *Config) ExpandPaths() {
	for _, p := range []*string{&c.Source, &c.Destination, &c.Log.Path, &c.Settings.StateDir, &c.Settings.PIDFile} {
		if *p != "" {
			*p = ExpandPath(*p)
		}
	}
}

// GetStateDir returns the directory holding history, locks and the PID file
func (c *Config) GetStateDir() string {
	if c.Settings.StateDir != "" {
		return c.Settings.StateDir
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "mirrorsync")
	}
	return filepath.Join(os.TempDir(), "mirrorsync")
}

// GetDatabasePath returns the path of the pass history database
func (c *Config) GetDatabasePath() string {
	return filepath.Join(c.GetStateDir(), "history.db")
}

// GetLockDir returns the directory holding per-destination pass locks
func (c *Config) GetLockDir() string {
	return filepath.Join(c.GetStateDir(), "locks")
}

// GetPIDPath returns the daemon PID file path
func (c *Config) GetPIDPath() string {
	if c.Settings.PIDFile != "" {
		return c.Settings.PIDFile
	}
	return filepath.Join(c.GetStateDir(), "mirrorsync.pid")
}

// LoggerConfig converts the log settings into a logger configuration
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:  logger.ParseLevel(c.Log.Level),
		Format: logger.ParseFormat(c.Log.Format),
	}

	if c.Log.Console {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputStdout})
	}
	if c.Log.Path != "" {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       c.Log.Path,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxAgeDays: c.Log.MaxAgeDays,
			MaxBackups: c.Log.MaxBackups,
			Compress:   c.Log.Compress,
		}
	}
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputStderr})
	}

	return cfg
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	// Expand ~ to home directory
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
