package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a task",
	Long: `Changes one or more fields of a task. Use --due none to remove the due date.
Running edit without flags only refreshes the task's updated time.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().String("text", "", "new task text")
	editCmd.Flags().String("due", "", "new due date (YYYY-MM-DD, or none to clear)")
	editCmd.Flags().StringP("priority", "p", "", "new priority (low, medium, high)")
	editCmd.Flags().StringP("category", "c", "", "new category")
	editCmd.Flags().Bool("done", false, "mark completed")
	editCmd.Flags().Bool("undone", false, "mark pending")
	editCmd.MarkFlagsMutuallyExclusive("done", "undone")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	patch, err := editPatch(cmd)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return clierr.New(clierr.NoChanges, "nothing to change; pass --text, --due, --priority, --category, --done or --undone")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveID(args[0])
	if err != nil {
		return err
	}
	t, err := a.eng.Update(id, patch)
	if err != nil {
		return engineError(err, id)
	}
	if err := a.checkSynced(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, t)
	}
	output.Messagef(out, "Updated task %s: %s", task.ShortID(t.ID), t.Text)
	return nil
}

// editPatch collects the changed flags into a patch.
func editPatch(cmd *cobra.Command) (task.Patch, error) {
	var p task.Patch
	flags := cmd.Flags()

	if flags.Changed("text") {
		v, _ := flags.GetString("text")
		if strings.TrimSpace(v) == "" {
			return p, clierr.New(clierr.EmptyText, "task text cannot be empty")
		}
		p.Text = &v
	}
	if flags.Changed("due") {
		v, _ := flags.GetString("due")
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "none":
			p.ClearDueDate = true
		default:
			d, err := task.ParseDue(v)
			if err != nil {
				return p, err
			}
			p.DueDate = d
		}
	}
	if flags.Changed("priority") {
		v, _ := flags.GetString("priority")
		pr, err := task.ParsePriority(v)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	if flags.Changed("category") {
		v, _ := flags.GetString("category")
		p.Category = &v
	}
	if done, _ := flags.GetBool("done"); done {
		p.Completed = &done
	}
	if undone, _ := flags.GetBool("undone"); undone {
		completed := false
		p.Completed = &completed
	}
	return p, nil
}
