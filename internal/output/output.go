// Package output handles formatting CLI output as table, JSON, or compact.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/twiced-technology-gmbh/todu/internal/config"
)

// Format represents an output format.
type Format int

const (
	// FormatAuto uses the default format (table).
	FormatAuto Format = iota
	// FormatJSON outputs JSON.
	FormatJSON
	// FormatTable outputs a human-readable table.
	FormatTable
	// FormatCompact outputs one-line-per-record compact format.
	FormatCompact
)

// Detect returns the appropriate format based on flags and environment.
// Default is table when no explicit format is set.
func Detect(jsonFlag, tableFlag, compactFlag bool) Format {
	if jsonFlag {
		return FormatJSON
	}
	if compactFlag {
		return FormatCompact
	}
	if tableFlag {
		return FormatTable
	}

	switch os.Getenv("TODU_OUTPUT") {
	case "json":
		return FormatJSON
	case "compact", "oneline":
		return FormatCompact
	case "table":
		return FormatTable
	}

	return FormatTable
}

// ConfigureColor selects the colour profile for output written to w.
// noColor, NO_COLOR or a non-terminal writer strip all styling.
func ConfigureColor(w io.Writer, noColor bool) {
	profile := termenv.NewOutput(w).EnvColorProfile()
	if noColor {
		profile = termenv.Ascii
	}
	lipgloss.SetColorProfile(profile)
	if profile == termenv.Ascii {
		DisableColor()
	}
}

// ApplyTheme tells lipgloss which background to adapt colours to. An
// explicit dark-mode flag wins over the theme setting; "system" keeps
// lipgloss' own terminal detection.
func ApplyTheme(theme string, dark *bool) {
	switch {
	case dark != nil:
		lipgloss.SetHasDarkBackground(*dark)
	case theme == config.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	case theme == config.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	}
	markdownStyle = glamourStyle(theme, dark)
}
