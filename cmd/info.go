package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show storage usage",
	Long: `Shows the size of each stored part, the total, and how much of the quota
is still available, and whether the store accepts writes. Probing briefly
writes a scratch key.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := a.store.Info()
	if err != nil {
		return clierr.Wrap(clierr.StorageFailed, err)
	}

	writable := a.store.Available()

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]any{
			"dir":      a.cfg.Dir(),
			"backend":  a.cfg.Backend,
			"writable": writable,
			"storage":  info,
		})
	}
	output.Messagef(out, "%s (%s backend)", a.cfg.Dir(), a.cfg.Backend)
	if !writable {
		output.Messagef(out, "Storage is not writable; changes will not be saved")
	}
	output.InfoTable(out, info)
	return nil
}
