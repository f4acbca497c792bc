package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View or change preferences",
	Long: `Preferences are stored with the tasks and shared by every todu process
using the same data directory.`,
	Args: cobra.NoArgs,
	RunE: runSettingsList,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsReset,
}

func init() {
	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingError(err error) error {
	if errors.Is(err, config.ErrInvalidSetting) {
		return clierr.Wrap(clierr.InvalidSetting, err).
			WithDetails(map[string]any{"keys": config.SettingKeys()})
	}
	return err
}

func runSettingsList(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return printSettings(cmd, a.settings)
}

func printSettings(cmd *cobra.Command, s config.Settings) error {
	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, s)
	}
	output.SettingsTable(out, s)
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := a.settings.Get(args[0])
	if err != nil {
		return settingError(err)
	}
	if outputFormat() == output.FormatJSON {
		return output.JSON(cmd.OutOrStdout(), map[string]string{"key": args[0], "value": v})
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	key, value := args[0], args[1]
	s := a.settings
	if err := s.Set(key, value); err != nil {
		return settingError(err)
	}
	if !a.store.SaveSettings(s) {
		return clierr.New(clierr.StorageFailed, "settings could not be saved")
	}

	v, _ := s.Get(key)
	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]string{"key": key, "value": v})
	}
	output.Messagef(out, "Set %s = %s", key, v)
	return nil
}

func runSettingsReset(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s := config.DefaultSettings()
	if !a.store.SaveSettings(s) {
		return clierr.New(clierr.StorageFailed, "settings could not be saved")
	}
	return printSettings(cmd, s)
}
