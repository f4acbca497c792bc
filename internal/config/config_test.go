package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInitAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "todu")

	cfg, err := Init(dir)
	require.NoError(t, err)
	assert.FileExists(t, cfg.ConfigPath())

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, loaded.Version)
	assert.Equal(t, DefaultBackend, loaded.Backend)
	assert.Equal(t, DefaultQuotaBytes, loaded.QuotaBytes)
	assert.True(t, loaded.ActivityEnabled())
	assert.Equal(t, dir, loaded.Dir())

	_, err = Init(dir)
	assert.ErrorIs(t, err, ErrExists)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMigrateReportsChange(t *testing.T) {
	cfg := NewDefault()
	changed, err := migrate(cfg)
	require.NoError(t, err)
	assert.False(t, changed)

	old := &Config{Version: 2, Backend: "file", QuotaBytes: 1024}
	changed, err = migrate(old)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, CurrentVersion, old.Version)
	assert.Equal(t, int64(1024), old.QuotaBytes)
	assert.Equal(t, DefaultLocale, old.Locale)

	_, err = migrate(&Config{Version: 0})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadMigratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nbackend: sqlite\n"), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, DefaultQuotaBytes, cfg.QuotaBytes)
	assert.Equal(t, DefaultLocale, cfg.Locale)
	require.NotNil(t, cfg.ActivityLog)
	assert.True(t, *cfg.ActivityLog)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 3")
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("version: 99\n"), 0o600))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "redis" }},
		{"negative quota", func(c *Config) { c.QuotaBytes = -1 }},
		{"bad locale", func(c *Config) { c.Locale = "not a tag!" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
	assert.NoError(t, NewDefault().Validate())
}

func TestTagAndLevel(t *testing.T) {
	cfg := NewDefault()
	cfg.Locale = "de-DE"
	assert.Equal(t, language.MustParse("de-DE"), cfg.Tag())

	cfg.Locale = "???"
	assert.Equal(t, language.Und, cfg.Tag())

	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(""))
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}
