package cmd

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var themeCmd = &cobra.Command{
	Use:   "theme [light|dark|system]",
	Short: "Show or set the colour theme",
	Long: `Without an argument, prints the current theme. Setting light or dark also
pins the dark-mode flag; system clears it so the terminal decides.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTheme,
}

func init() {
	rootCmd.AddCommand(themeCmd)
}

func runTheme(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	theme := a.settings.Theme
	if len(args) == 1 {
		theme = strings.ToLower(strings.TrimSpace(args[0]))
		if !slices.Contains(config.Themes, theme) {
			return clierr.Newf(clierr.InvalidSetting, "invalid theme %q; allowed: %s", args[0], strings.Join(config.Themes, ", "))
		}

		s := a.settings
		s.Theme = theme
		var dark *bool
		if theme != config.ThemeSystem {
			v := theme == config.ThemeDark
			dark = &v
		}
		if !a.store.SaveSettings(s) || !a.store.SaveDarkMode(dark) {
			return clierr.New(clierr.StorageFailed, "theme could not be saved")
		}
	}

	dark := a.store.LoadDarkMode()
	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]any{"theme": theme, "darkMode": dark})
	}
	output.Messagef(out, "Theme: %s", theme)
	return nil
}
