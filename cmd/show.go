package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show task details",
	Long:  `Displays full details of a single task. The task text is rendered as markdown.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.resolveID(args[0])
	if err != nil {
		return err
	}
	t, ok := a.eng.Get(id)
	if !ok {
		return engineError(engine.ErrNotFound, id)
	}

	out := cmd.OutOrStdout()
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(out, t)
	case output.FormatCompact:
		output.TaskDetailCompact(out, t)
	default:
		output.TaskDetail(out, t, time.Now())
	}
	return nil
}
