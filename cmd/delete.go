package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

var deleteCmd = &cobra.Command{
	Use:     "delete ID[,ID,...]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Deletes a task. Prompts for confirmation in interactive mode.
Multiple IDs can be provided as a comma-separated list (requires --yes).`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	raw, err := task.ParseIDs(args[0])
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if len(raw) > 1 && !yes {
		return clierr.New(clierr.ConfirmationReq, "batch delete requires --yes")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(raw) == 1 {
		return deleteSingleTask(cmd, a, raw[0], yes)
	}

	// Unknown ids are reported per id rather than failing the whole batch.
	var ids []string
	failures := map[string]error{}
	for _, r := range raw {
		id, err := a.resolveID(r)
		if err != nil {
			id = r
			failures[r] = err
		}
		ids = append(ids, id)
	}
	a.eng.BulkDelete(ids)
	if err := a.checkSynced(); err != nil {
		return err
	}
	return runBatch(cmd.OutOrStdout(), cmd.ErrOrStderr(), ids, func(id string) error {
		return failures[id]
	})
}

// deleteSingleTask handles a single task delete with confirmation and output.
func deleteSingleTask(cmd *cobra.Command, a *app, arg string, yes bool) error {
	id, err := a.resolveID(arg)
	if err != nil {
		return err
	}
	t, ok := a.eng.Get(id)
	if !ok {
		return engineError(engine.ErrNotFound, id)
	}

	if !yes {
		ok, err := confirm(cmd.InOrStdin(), fmt.Sprintf("Delete task %s %q?", task.ShortID(t.ID), t.Text))
		if err != nil || !ok {
			return err
		}
	}

	if _, err := a.eng.Delete(id); err != nil {
		return engineError(err, id)
	}
	if err := a.checkSynced(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]any{
			"status": "deleted",
			"id":     t.ID,
			"text":   t.Text,
		})
	}
	output.Messagef(out, "Deleted task %s: %s", task.ShortID(t.ID), t.Text)
	return nil
}
