package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

var recategorizeCmd = &cobra.Command{
	Use:     "recategorize ID[,ID,...] CATEGORY",
	Aliases: []string{"recat"},
	Short:   "Move tasks to a category",
	Long:    `Sets the category of every listed task in one save. An empty category means General.`,
	Args:    cobra.ExactArgs(2), //nolint:mnd // ids and category
	RunE:    runRecategorize,
}

func init() {
	rootCmd.AddCommand(recategorizeCmd)
}

func runRecategorize(cmd *cobra.Command, args []string) error {
	raw, err := task.ParseIDs(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.resolveIDs(raw)
	if err != nil {
		return err
	}
	changed := a.eng.BulkSetCategory(ids, args[1])
	if err := a.checkSynced(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		if changed == nil {
			changed = []task.Task{}
		}
		return output.JSON(out, changed)
	}
	category := args[1]
	if len(changed) > 0 {
		category = changed[0].Category
	}
	output.Messagef(out, "Moved %d tasks to %s", len(changed), category)
	return nil
}
