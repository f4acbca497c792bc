package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
)

const (
	fileMode = 0o600
	dirMode  = 0o750
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("no todu data directory found (run 'todu init' to create one)")
	ErrExists   = errors.New("todu data directory already initialized")
	ErrInvalid  = errors.New("invalid config")
)

// Config is the application config stored as config.yml in the data
// directory.
type Config struct {
	Version     int    `yaml:"version"`
	Backend     string `yaml:"backend"`
	QuotaBytes  int64  `yaml:"quota_bytes"`
	Locale      string `yaml:"locale"`
	LogLevel    string `yaml:"log_level,omitempty"`
	ActivityLog *bool  `yaml:"activity_log,omitempty"`

	// dir is the absolute path to the data directory (not serialized).
	dir string `yaml:"-"`
}

// NewDefault creates a Config with default values.
func NewDefault() *Config {
	return &Config{
		Version:     CurrentVersion,
		Backend:     DefaultBackend,
		QuotaBytes:  DefaultQuotaBytes,
		Locale:      DefaultLocale,
		LogLevel:    DefaultLogLevel,
		ActivityLog: boolPtr(true),
	}
}

// Dir returns the absolute path to the data directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the data directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// ActivityPath returns the path of the activity log in the data directory.
func (c *Config) ActivityPath() string {
	return filepath.Join(c.dir, "activity.jsonl")
}

// ActivityEnabled reports whether mutations are appended to the activity log.
// Unset means enabled.
func (c *Config) ActivityEnabled() bool {
	return c.ActivityLog == nil || *c.ActivityLog
}

// Tag returns the configured locale as a language tag, falling back to the
// root locale when unset or unparseable.
func (c *Config) Tag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// SlogLevel maps log_level to a slog level. Unknown values map to warn.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to a slog level. Unknown values map to warn.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("%w: backend %q (valid: %v)", ErrInvalid, c.Backend, Backends)
	}
	if c.QuotaBytes < 0 {
		return fmt.Errorf("%w: quota_bytes must be >= 0", ErrInvalid)
	}
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return fmt.Errorf("%w: locale %q: %w", ErrInvalid, c.Locale, err)
		}
	}
	if c.LogLevel != "" && !slices.Contains(LogLevels, c.LogLevel) {
		return fmt.Errorf("%w: log_level %q (valid: %v)", ErrInvalid, c.LogLevel, LogLevels)
	}
	return nil
}

// Init creates the data directory and writes a default config file. It
// returns ErrExists if a config file is already present.
func Init(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault()
	cfg.SetDir(absDir)

	if _, err := os.Stat(cfg.ConfigPath()); err == nil {
		return nil, ErrExists
	}
	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads, migrates and validates the config in the given data directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	migrated, err := migrate(&cfg)
	if err != nil {
		return nil, err
	}
	if migrated {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultDir returns ~/.config/todu.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", DefaultDirName), nil
}
