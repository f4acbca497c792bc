package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored data",
	Long: `Removes tasks, settings, categories and the dark mode preference from the
data directory. The config file and activity log are kept.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old completed tasks",
	Long: `Deletes completed tasks. Without --older-than, the autoDeleteCompleted and
autoDeleteCompletedDays settings decide what is removed. --older-than accepts
a day count like "14d" or a duration like "36h".`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func init() {
	clearCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	purgeCmd.Flags().String("older-than", "", "age threshold (e.g. 14d, 36h)")
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(purgeCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirm(cmd.InOrStdin(), "Remove all tasks, settings and categories?")
		if err != nil || !ok {
			return err
		}
	}

	if !a.store.ClearAll() {
		return clierr.New(clierr.StorageFailed, "could not clear stored data")
	}
	if err := a.eng.Reload(); err != nil {
		return clierr.Wrap(clierr.StorageFailed, err)
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]any{"status": "cleared"})
	}
	output.Messagef(out, "Cleared all stored data in %s", a.cfg.Dir())
	return nil
}

func runPurge(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetString("older-than")
	var age time.Duration
	if olderThan != "" {
		var err error
		if age, err = parseAge(olderThan); err != nil {
			return err
		}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Opening the app already ran the settings-driven purge.
	removed := a.purged
	if olderThan != "" {
		removed = append(removed, a.eng.PurgeCompletedOlderThan(age)...)
	} else if !a.settings.AutoDeleteCompleted {
		output.Messagef(cmd.ErrOrStderr(), "autoDeleteCompleted is off; pass --older-than to purge anyway")
	}
	if err := a.checkSynced(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		ids := make([]string, 0, len(removed))
		for _, t := range removed {
			ids = append(ids, t.ID)
		}
		return output.JSON(out, map[string]any{"status": "purged", "count": len(removed), "ids": ids})
	}
	output.Messagef(out, "Purged %d completed tasks", len(removed))
	return nil
}

// parseAge accepts "Nd" day counts and anything time.ParseDuration does.
func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil && n >= 0 {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, clierr.Newf(clierr.InvalidInput, "invalid age %q: use e.g. 14d or 36h", s)
	}
	return d, nil
}
