package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

const defaultLogLimit = 20

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent activity",
	Long: `Lists the most recent entries of the activity log, oldest first. The log
records every change made through todu while activity_log is enabled.`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntP("limit", "n", defaultLogLimit, "number of entries to show")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 1 {
		return clierr.Newf(clierr.InvalidInput, "limit must be positive, got %d", limit)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.activity == nil {
		return clierr.New(clierr.InvalidSetting, "activity log is disabled; enable it with 'todu config set activity_log true'")
	}
	entries, err := a.activity.Recent(limit)
	if err != nil {
		return clierr.Wrap(clierr.StorageFailed, err)
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, entries)
	}
	output.ActivityTable(out, entries)
	return nil
}
