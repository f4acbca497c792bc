package output

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/twiced-technology-gmbh/todu/internal/config"
)

const markdownWidth = 80

// markdownStyle is the glamour standard style used for task text.
var markdownStyle = "auto"

func glamourStyle(theme string, dark *bool) string {
	if !colorEnabled {
		return "notty"
	}
	switch {
	case dark != nil && *dark, dark == nil && theme == config.ThemeDark:
		return "dark"
	case dark != nil, theme == config.ThemeLight:
		return "light"
	}
	return "auto"
}

// renderMarkdown renders text with glamour, falling back to the raw text
// if rendering fails.
func renderMarkdown(text string) string {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(markdownWidth)}
	if markdownStyle == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(markdownStyle))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
