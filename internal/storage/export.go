package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// Import field names, as they appear in a Document.
const (
	FieldTasks      = "tasks"
	FieldSettings   = "settings"
	FieldCategories = "categories"
	FieldDarkMode   = "darkMode"
)

// ErrInvalidDocument is returned by Import when the input is not a JSON object.
var ErrInvalidDocument = errors.New("invalid data format: expected a JSON object")

// Document is the export/import file format.
type Document struct {
	Version    string          `json:"version"`
	ExportDate time.Time       `json:"exportDate"`
	Tasks      []task.Task     `json:"tasks"`
	Settings   config.Settings `json:"settings"`
	Categories []string        `json:"categories"`
	DarkMode   *bool           `json:"darkMode"`
}

// ImportResult lists which document fields were written, which were present
// but malformed, and which were well-formed but could not be saved.
type ImportResult struct {
	Applied []string `json:"applied"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// Export gathers everything the store holds into one document.
func (s *Store) Export() (Document, error) {
	tasks, err := s.LoadTasks()
	if err != nil {
		return Document{}, err
	}
	return Document{
		Version:    EnvelopeVersion,
		ExportDate: s.now().UTC(),
		Tasks:      tasks,
		Settings:   s.LoadSettings(),
		Categories: s.LoadCategories(),
		DarkMode:   s.LoadDarkMode(),
	}, nil
}

// Import applies each top-level field of raw independently. A malformed
// field is skipped without affecting the others.
func (s *Store) Import(raw []byte) (ImportResult, error) {
	var fields map[string]json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ImportResult{}, ErrInvalidDocument
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	var res ImportResult
	record := func(field string, ok bool, saved bool) {
		switch {
		case !ok:
			res.Skipped = append(res.Skipped, field)
		case !saved:
			res.Failed = append(res.Failed, field)
		default:
			res.Applied = append(res.Applied, field)
		}
	}

	if v, present := fields[FieldTasks]; present {
		tasks, ok := s.importTasks(v)
		record(FieldTasks, ok, ok && s.SaveTasks(tasks))
	}
	if v, present := fields[FieldSettings]; present {
		settings, ok := s.importSettings(v)
		record(FieldSettings, ok, ok && s.SaveSettings(settings))
	}
	if v, present := fields[FieldCategories]; present {
		var categories []string
		ok := isJSONArray(v) && json.Unmarshal(v, &categories) == nil
		record(FieldCategories, ok, ok && s.SaveCategories(categories))
	}
	if v, present := fields[FieldDarkMode]; present {
		var dark *bool
		ok := json.Unmarshal(v, &dark) == nil
		record(FieldDarkMode, ok, ok && s.SaveDarkMode(dark))
	}

	for _, f := range res.Skipped {
		s.log.Warn("skipped malformed import field", "field", f)
	}
	return res, nil
}

func (s *Store) importTasks(v json.RawMessage) ([]task.Task, bool) {
	if !isJSONArray(v) {
		return nil, false
	}
	tasks, err := s.DecodeTasks(v)
	if err != nil {
		return nil, false
	}
	return tasks, true
}

func (s *Store) importSettings(v json.RawMessage) (config.Settings, bool) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return config.Settings{}, false
	}
	settings := config.DefaultSettings()
	if err := json.Unmarshal(trimmed, &settings); err != nil {
		return config.Settings{}, false
	}
	settings.Sanitize()
	return settings, true
}

func isJSONArray(v json.RawMessage) bool {
	trimmed := bytes.TrimSpace(v)
	return len(trimmed) > 0 && trimmed[0] == '['
}
