package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"summary"},
	Short:   "Show task statistics",
	Long: `Displays totals, completion rate, due and overdue counts, priority and
category breakdowns, and 7 and 30 day productivity.

Use --watch to keep the display live-updating whenever the list changes,
including changes made by other todu processes. Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolP("watch", "w", false, "live-update on changes")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if err := renderStats(out, a.eng.Statistics()); err != nil {
		return err
	}

	if watch, _ := cmd.Flags().GetBool("watch"); !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watchStats(ctx, a, out, cmd.ErrOrStderr())
}

func renderStats(w io.Writer, s engine.Stats) error {
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(w, s)
	case output.FormatCompact:
		output.StatsCompact(w, s)
	default:
		output.StatsTable(w, s)
	}
	return nil
}

// watchStats re-renders after every change until ctx is done. Rendering
// happens on this goroutine, never inside the event handler.
func watchStats(ctx context.Context, a *app, out, errOut io.Writer) error {
	changed := make(chan struct{}, 1)
	unsubscribe := a.eng.Subscribe(func(engine.Event) error {
		select {
		case changed <- struct{}{}:
		default:
		}
		return nil
	}, engine.Created, engine.Updated, engine.Deleted, engine.CompletionChanged, engine.Invalidated)
	defer unsubscribe()

	fmt.Fprintln(errOut, "Watching for changes... (Ctrl+C to stop)")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			if outputFormat() != output.FormatJSON {
				clearScreen(out)
			}
			if err := renderStats(out, a.eng.Statistics()); err != nil {
				return err
			}
		}
	}
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[2J\033[H")
}
