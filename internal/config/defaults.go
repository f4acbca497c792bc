// Package config handles the todu application config file and the persisted
// user settings.
package config

const (
	// DefaultDirName is the data directory name under ~/.config.
	DefaultDirName = "todu"

	// ConfigFileName is the name of the config file within the data directory.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 3

	// DefaultBackend stores each key as a file in the data directory.
	DefaultBackend = "file"

	// DefaultQuotaBytes mirrors the common 5 MiB browser storage allowance.
	DefaultQuotaBytes int64 = 5 * 1024 * 1024

	// DefaultLocale is the root locale (CLDR default collation).
	DefaultLocale = "und"

	// DefaultLogLevel is used when neither the flag nor the config sets one.
	DefaultLogLevel = "warn"
)

// Backends lists the accepted values for the backend field.
var Backends = []string{"file", "sqlite"}

// LogLevels lists the accepted values for the log_level field.
var LogLevels = []string{"debug", "info", "warn", "error"}

// boolPtr returns a pointer to the given bool value.
func boolPtr(v bool) *bool { return &v }
