package storage

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// DefaultCategories seeds the category list when none is stored.
var DefaultCategories = []string{task.DefaultCategory, "Work", "Personal"}

type settingsRecord struct {
	config.Settings
	LastModified time.Time `json:"lastModified"`
}

type categoriesRecord struct {
	Categories   []string  `json:"categories"`
	LastModified time.Time `json:"lastModified"`
}

// LoadSettings returns the stored settings merged over the defaults. Invalid
// stored values are replaced by their defaults.
func (s *Store) LoadSettings() config.Settings {
	settings := config.DefaultSettings()
	raw, ok, err := s.read(KeySettings)
	if err != nil {
		s.log.Warn("failed to load settings", "error", err)
	}
	if !ok {
		return settings
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.log.Warn("failed to load settings", "key", KeySettings, "error", err)
		return config.DefaultSettings()
	}
	if reset := settings.Sanitize(); len(reset) > 0 {
		s.log.Warn("ignoring invalid stored settings", "keys", strings.Join(reset, ","))
	}
	return settings
}

// SaveSettings writes settings with a modification timestamp.
func (s *Store) SaveSettings(settings config.Settings) bool {
	data, err := json.Marshal(settingsRecord{Settings: settings, LastModified: s.now().UTC()})
	if err != nil {
		s.log.Warn("failed to save settings", "error", err)
		return false
	}
	return s.write(KeySettings, data)
}

// LoadCategories returns the stored category list, or the default seed when
// nothing is stored or the stored value is malformed.
func (s *Store) LoadCategories() []string {
	raw, ok, err := s.read(KeyCategories)
	if err != nil {
		s.log.Warn("failed to load categories", "error", err)
	}
	if !ok {
		return slices.Clone(DefaultCategories)
	}
	var rec categoriesRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.log.Warn("failed to load categories", "key", KeyCategories, "error", err)
		return slices.Clone(DefaultCategories)
	}
	return normalizeCategories(rec.Categories)
}

// SaveCategories writes the de-duplicated, non-empty categories.
func (s *Store) SaveCategories(categories []string) bool {
	data, err := json.Marshal(categoriesRecord{
		Categories:   normalizeCategories(categories),
		LastModified: s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to save categories", "error", err)
		return false
	}
	return s.write(KeyCategories, data)
}

// LoadDarkMode returns the stored theme flag; nil means follow the system.
func (s *Store) LoadDarkMode() *bool {
	raw, ok, err := s.read(KeyDarkMode)
	if err != nil {
		s.log.Warn("failed to load dark mode preference", "error", err)
	}
	if !ok {
		return nil
	}
	var dark *bool
	if err := json.Unmarshal(raw, &dark); err != nil {
		s.log.Warn("failed to load dark mode preference", "key", KeyDarkMode, "error", err)
		return nil
	}
	return dark
}

// SaveDarkMode stores the theme flag. nil removes it.
func (s *Store) SaveDarkMode(dark *bool) bool {
	if dark == nil {
		if err := s.kv.Remove(KeyDarkMode); err != nil {
			s.log.Warn("failed to save dark mode preference", "error", err)
			return false
		}
		return true
	}
	data, _ := json.Marshal(*dark)
	return s.write(KeyDarkMode, data)
}

func normalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
