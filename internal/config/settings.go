package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// ErrInvalidSetting is returned for unknown setting keys or bad values.
var ErrInvalidSetting = errors.New("invalid setting")

// Theme values.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Accepted enum values.
var (
	Themes     = []string{ThemeLight, ThemeDark, ThemeSystem}
	SortFields = []string{"createdAt", "dueDate", "priority", "alphabetical", "category"}
	SortOrders = []string{SortAsc, SortDesc}
)

// Settings are the user preferences persisted alongside the tasks.
type Settings struct {
	Theme                   string        `json:"theme"`
	DefaultPriority         task.Priority `json:"defaultPriority"`
	DefaultCategory         string        `json:"defaultCategory"`
	SortBy                  string        `json:"sortBy"`
	SortOrder               string        `json:"sortOrder"`
	ShowCompletedTasks      bool          `json:"showCompletedTasks"`
	AutoDeleteCompleted     bool          `json:"autoDeleteCompleted"`
	AutoDeleteCompletedDays int           `json:"autoDeleteCompletedDays"`
	EnableNotifications     bool          `json:"enableNotifications"`
	EnableSounds            bool          `json:"enableSounds"`
	CompactView             bool          `json:"compactView"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		Theme:                   ThemeSystem,
		DefaultPriority:         task.DefaultPriority,
		DefaultCategory:         task.DefaultCategory,
		SortBy:                  "createdAt",
		SortOrder:               SortDesc,
		ShowCompletedTasks:      true,
		AutoDeleteCompleted:     false,
		AutoDeleteCompletedDays: 30,
		EnableNotifications:     true,
		EnableSounds:            false,
		CompactView:             false,
	}
}

// Validate checks enum fields and numeric ranges.
func (s Settings) Validate() error {
	for _, key := range SettingKeys() {
		if err := settingFields[key].check(s); err != nil {
			return err
		}
	}
	return nil
}

// Sanitize resets every invalid field to its default and returns the keys
// that were reset.
func (s *Settings) Sanitize() []string {
	def := DefaultSettings()
	var reset []string
	for _, key := range SettingKeys() {
		f := settingFields[key]
		if f.check(*s) == nil {
			continue
		}
		_ = f.set(s, f.get(def))
		reset = append(reset, key)
	}
	return reset
}

// Get returns the string form of the setting named key.
func (s Settings) Get(key string) (string, error) {
	f, ok := settingFields[key]
	if !ok {
		return "", unknownSetting(key)
	}
	return f.get(s), nil
}

// Set parses value and assigns it to the setting named key.
func (s *Settings) Set(key, value string) error {
	f, ok := settingFields[key]
	if !ok {
		return unknownSetting(key)
	}
	next := *s
	if err := f.set(&next, strings.TrimSpace(value)); err != nil {
		return err
	}
	if err := f.check(next); err != nil {
		return err
	}
	*s = next
	return nil
}

// SettingKeys returns the setting names in display order.
func SettingKeys() []string {
	return []string{
		"theme", "defaultPriority", "defaultCategory", "sortBy", "sortOrder",
		"showCompletedTasks", "autoDeleteCompleted", "autoDeleteCompletedDays",
		"enableNotifications", "enableSounds", "compactView",
	}
}

func unknownSetting(key string) error {
	return fmt.Errorf("%w: unknown key %q (valid: %s)", ErrInvalidSetting, key, strings.Join(SettingKeys(), ", "))
}

type settingField struct {
	get   func(Settings) string
	set   func(*Settings, string) error
	check func(Settings) error
}

var settingFields = map[string]settingField{
	"theme": enumField(func(s *Settings) *string { return &s.Theme }, "theme", Themes),
	"defaultPriority": {
		get: func(s Settings) string { return s.DefaultPriority.String() },
		set: func(s *Settings, v string) error {
			p, err := task.ParsePriority(v)
			if err != nil {
				return fmt.Errorf("%w: defaultPriority: %w", ErrInvalidSetting, err)
			}
			s.DefaultPriority = p
			return nil
		},
		check: func(s Settings) error {
			if !s.DefaultPriority.Valid() {
				return fmt.Errorf("%w: defaultPriority %q (valid: %s)", ErrInvalidSetting,
					s.DefaultPriority, strings.Join(task.PriorityNames(), ", "))
			}
			return nil
		},
	},
	"defaultCategory": {
		get: func(s Settings) string { return s.DefaultCategory },
		set: func(s *Settings, v string) error {
			s.DefaultCategory = v
			return nil
		},
		check: func(s Settings) error {
			if strings.TrimSpace(s.DefaultCategory) == "" {
				return fmt.Errorf("%w: defaultCategory must not be empty", ErrInvalidSetting)
			}
			return nil
		},
	},
	"sortBy":                  enumField(func(s *Settings) *string { return &s.SortBy }, "sortBy", SortFields),
	"sortOrder":               enumField(func(s *Settings) *string { return &s.SortOrder }, "sortOrder", SortOrders),
	"showCompletedTasks":      boolField(func(s *Settings) *bool { return &s.ShowCompletedTasks }, "showCompletedTasks"),
	"autoDeleteCompleted":     boolField(func(s *Settings) *bool { return &s.AutoDeleteCompleted }, "autoDeleteCompleted"),
	"enableNotifications":     boolField(func(s *Settings) *bool { return &s.EnableNotifications }, "enableNotifications"),
	"enableSounds":            boolField(func(s *Settings) *bool { return &s.EnableSounds }, "enableSounds"),
	"compactView":             boolField(func(s *Settings) *bool { return &s.CompactView }, "compactView"),
	"autoDeleteCompletedDays": {
		get: func(s Settings) string { return strconv.Itoa(s.AutoDeleteCompletedDays) },
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: autoDeleteCompletedDays must be a whole number of days", ErrInvalidSetting)
			}
			s.AutoDeleteCompletedDays = n
			return nil
		},
		check: func(s Settings) error {
			if s.AutoDeleteCompletedDays < 1 {
				return fmt.Errorf("%w: autoDeleteCompletedDays must be >= 1", ErrInvalidSetting)
			}
			return nil
		},
	},
}

func enumField(ptr func(*Settings) *string, name string, valid []string) settingField {
	return settingField{
		get: func(s Settings) string { return *ptr(&s) },
		set: func(s *Settings, v string) error {
			*ptr(s) = v
			return nil
		},
		check: func(s Settings) error {
			if v := *ptr(&s); !slices.Contains(valid, v) {
				return fmt.Errorf("%w: %s %q (valid: %s)", ErrInvalidSetting, name, v, strings.Join(valid, ", "))
			}
			return nil
		},
	}
}

func boolField(ptr func(*Settings) *bool, name string) settingField {
	return settingField{
		get: func(s Settings) string { return strconv.FormatBool(*ptr(&s)) },
		set: func(s *Settings, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s must be true or false", ErrInvalidSetting, name)
			}
			*ptr(s) = b
			return nil
		},
		check: func(Settings) error { return nil },
	}
}
