package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

var addCmd = &cobra.Command{
	Use:     "add TEXT...",
	Aliases: []string{"create", "new"},
	Short:   "Add a task",
	Long: `Adds a task at the top of the list. Priority and category default to the
defaultPriority and defaultCategory settings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
	addCmd.Flags().StringP("priority", "p", "", "priority (low, medium, high)")
	addCmd.Flags().StringP("category", "c", "", "category")
	addCmd.Flags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "prio":
			name = "priority"
		case "cat":
			name = "category"
		case "due-date":
			name = "due"
		}
		return pflag.NormalizedName(name)
	})
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return clierr.New(clierr.EmptyText, "task text cannot be empty")
	}

	dueFlag, _ := cmd.Flags().GetString("due")
	due, err := task.ParseDue(dueFlag)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	priority := a.settings.DefaultPriority
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		p, err := task.ParsePriority(v)
		if err != nil {
			return err
		}
		priority = p
	}
	category := a.settings.DefaultCategory
	if v, _ := cmd.Flags().GetString("category"); v != "" {
		category = v
	}

	t, err := a.eng.Add(text, due, priority, category)
	if err != nil {
		return engineError(err, "")
	}
	if err := a.checkSynced(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, t)
	}

	output.Messagef(out, "Added task %s: %s", task.ShortID(t.ID), t.Text)
	output.Messagef(out, "  Priority: %s | Category: %s", t.Priority, t.Category)
	if t.DueDate != nil {
		output.Messagef(out, "  Due: %s", t.DueDate)
	}
	return nil
}
