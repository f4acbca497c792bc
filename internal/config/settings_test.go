package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/todu/internal/task"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, ThemeSystem, s.Theme)
	assert.Equal(t, task.PriorityMedium, s.DefaultPriority)
	assert.Equal(t, "General", s.DefaultCategory)
	assert.Equal(t, "createdAt", s.SortBy)
	assert.Equal(t, SortDesc, s.SortOrder)
	assert.True(t, s.ShowCompletedTasks)
	assert.False(t, s.AutoDeleteCompleted)
	assert.Equal(t, 30, s.AutoDeleteCompletedDays)
	assert.True(t, s.EnableNotifications)
	assert.False(t, s.EnableSounds)
	assert.False(t, s.CompactView)
}

func TestSettingsSetGet(t *testing.T) {
	s := DefaultSettings()

	require.NoError(t, s.Set("theme", "dark"))
	require.NoError(t, s.Set("defaultPriority", "HIGH"))
	require.NoError(t, s.Set("compactView", "true"))
	require.NoError(t, s.Set("autoDeleteCompletedDays", "7"))

	for key, want := range map[string]string{
		"theme":                   "dark",
		"defaultPriority":         "high",
		"compactView":             "true",
		"autoDeleteCompletedDays": "7",
	} {
		got, err := s.Get(key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}
}

func TestSettingsSetRejects(t *testing.T) {
	tests := []struct{ key, value string }{
		{"theme", "purple"},
		{"defaultPriority", "urgent"},
		{"defaultCategory", "  "},
		{"sortBy", "random"},
		{"sortOrder", "sideways"},
		{"enableSounds", "maybe"},
		{"autoDeleteCompletedDays", "0"},
		{"autoDeleteCompletedDays", "ten"},
		{"nope", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			s := DefaultSettings()
			err := s.Set(tt.key, tt.value)
			require.ErrorIs(t, err, ErrInvalidSetting)
			assert.Equal(t, DefaultSettings(), s, "rejected set must not modify settings")
		})
	}
}

func TestSettingsSanitize(t *testing.T) {
	s := DefaultSettings()
	s.Theme = "neon"
	s.AutoDeleteCompletedDays = -3
	s.CompactView = true

	reset := s.Sanitize()
	assert.ElementsMatch(t, []string{"theme", "autoDeleteCompletedDays"}, reset)
	assert.Equal(t, ThemeSystem, s.Theme)
	assert.Equal(t, 30, s.AutoDeleteCompletedDays)
	assert.True(t, s.CompactView)
}

func TestSettingKeysCoverFields(t *testing.T) {
	assert.Len(t, SettingKeys(), len(settingFields))
	for _, key := range SettingKeys() {
		_, ok := settingFields[key]
		assert.True(t, ok, key)
	}
}
