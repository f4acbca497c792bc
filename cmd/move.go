package cmd

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

var moveCmd = &cobra.Command{
	Use:   "move FROM TO",
	Short: "Move a task to another position",
	Long: `Moves the task at position FROM to position TO in the stored order.
Positions start at 1 and follow the order printed by 'todu list --stored'.`,
	Args: cobra.ExactArgs(2), //nolint:mnd // from and to
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
	from, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	to, err := parsePosition(args[1])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.eng.Reorder(from-1, to-1); err != nil {
		if errors.Is(err, engine.ErrIndexOutOfRange) {
			return clierr.Newf(clierr.InvalidIndex, "position out of range (1-%d)", a.eng.Len()).
				WithDetails(map[string]any{"from": from, "to": to, "tasks": a.eng.Len()})
		}
		return err
	}
	if err := a.checkSynced(); err != nil {
		return err
	}

	moved := a.eng.Tasks()[to-1]
	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]any{"from": from, "to": to, "task": moved})
	}
	output.Messagef(out, "Moved task %s from %d to %d: %s", task.ShortID(moved.ID), from, to, moved.Text)
	return nil
}

func parsePosition(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, clierr.Newf(clierr.InvalidIndex, "invalid position %q (positions start at 1)", arg).
			WithDetails(map[string]any{"input": arg})
	}
	return n, nil
}
