package config

import "fmt"

// migration upgrades a config from version to version+1. The runner bumps
// Version; a step only fills in what the new version added.
type migration struct {
	version int
	apply   func(*Config)
}

// migrations are ordered by version and must have no gaps.
var migrations = []migration{
	// v2 introduced quota_bytes. Version 1 had no quota, so an unset value
	// takes the default rather than meaning unlimited.
	{version: 1, apply: func(cfg *Config) {
		if cfg.QuotaBytes == 0 {
			cfg.QuotaBytes = DefaultQuotaBytes
		}
		if cfg.Backend == "" {
			cfg.Backend = DefaultBackend
		}
	}},
	// v3 introduced locale and activity_log.
	{version: 2, apply: func(cfg *Config) {
		if cfg.Locale == "" {
			cfg.Locale = DefaultLocale
		}
		if cfg.ActivityLog == nil {
			cfg.ActivityLog = boolPtr(true)
		}
	}},
}

// migrate brings cfg up to CurrentVersion and reports whether anything
// changed. Configs written by a newer todu are rejected.
func migrate(cfg *Config) (bool, error) {
	switch {
	case cfg.Version > CurrentVersion:
		return false, fmt.Errorf("%w: config version %d is newer than supported version %d (upgrade todu)",
			ErrInvalid, cfg.Version, CurrentVersion)
	case cfg.Version < 1:
		return false, fmt.Errorf("%w: config version %d is invalid", ErrInvalid, cfg.Version)
	}

	start := cfg.Version
	for _, m := range migrations {
		if m.version != cfg.Version {
			continue
		}
		m.apply(cfg)
		cfg.Version++
	}
	if cfg.Version != CurrentVersion {
		return false, fmt.Errorf("%w: no migration path from version %d", ErrInvalid, cfg.Version)
	}
	return cfg.Version != start, nil
}
