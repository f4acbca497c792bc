package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

var doneCmd = &cobra.Command{
	Use:     "done ID[,ID,...]",
	Aliases: []string{"toggle"},
	Short:   "Toggle a task's completion",
	Long: `Toggles a single task between pending and completed. With several
comma-separated IDs, every pending one is marked completed in one save.`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

func init() {
	rootCmd.AddCommand(doneCmd)
}

func runDone(cmd *cobra.Command, args []string) error {
	raw, err := task.ParseIDs(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(raw) == 1 {
		id, err := a.resolveID(raw[0])
		if err != nil {
			return err
		}
		t, err := a.eng.Toggle(id)
		if err != nil {
			return engineError(err, id)
		}
		if err := a.checkSynced(); err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(out, t)
		}
		state := "pending"
		if t.Completed {
			state = "completed"
		}
		output.Messagef(out, "Marked task %s %s: %s", task.ShortID(t.ID), state, t.Text)
		return nil
	}

	ids, err := a.resolveIDs(raw)
	if err != nil {
		return err
	}
	completed := a.eng.BulkComplete(ids)
	if err := a.checkSynced(); err != nil {
		return err
	}
	if outputFormat() == output.FormatJSON {
		if completed == nil {
			completed = []task.Task{}
		}
		return output.JSON(out, completed)
	}
	output.Messagef(out, "Completed %d of %d tasks", len(completed), len(ids))
	return nil
}
