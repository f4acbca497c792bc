package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

const watchBuffer = 64

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print task changes as they happen",
	Long: `Prints one line per change to the list, including changes made by other
todu processes. With --json, each line is a JSON object. Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watchEvent is the JSON shape of a streamed change.
type watchEvent struct {
	Time  time.Time  `json:"time"`
	Event string     `json:"event"`
	Task  *task.Task `json:"task,omitempty"`
	Count int        `json:"count,omitempty"`
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return streamEvents(ctx, a.eng, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// streamEvents writes engine events to out until ctx is done. Events are
// queued by the handler and written on this goroutine.
func streamEvents(ctx context.Context, eng *engine.Engine, out, errOut io.Writer) error {
	events := make(chan engine.Event, watchBuffer)
	unsubscribe := eng.Subscribe(func(ev engine.Event) error {
		select {
		case events <- ev:
			return nil
		default:
			return fmt.Errorf("watch buffer full, dropped %s event", ev.Kind)
		}
	}, engine.Created, engine.Updated, engine.Deleted, engine.CompletionChanged,
		engine.Reordered, engine.Invalidated, engine.PersistFailed)
	defer unsubscribe()

	fmt.Fprintln(errOut, "Watching for changes... (Ctrl+C to stop)")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := writeEvent(out, ev, time.Now()); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w io.Writer, ev engine.Event, now time.Time) error {
	if outputFormat() == output.FormatJSON {
		we := watchEvent{Time: now.UTC(), Event: ev.Kind.String()}
		switch ev.Kind {
		case engine.Created, engine.Updated, engine.Deleted, engine.CompletionChanged:
			t := ev.Task
			we.Task = &t
		case engine.Reordered, engine.Invalidated:
			we.Count = len(ev.Tasks)
		}
		return output.JSONLine(w, we)
	}

	stamp := now.Local().Format(time.TimeOnly)
	switch ev.Kind {
	case engine.Created, engine.Updated, engine.Deleted:
		fmt.Fprintf(w, "%s %-9s %s %s\n", stamp, ev.Kind, task.ShortID(ev.Task.ID), ev.Task.Text)
	case engine.CompletionChanged:
		state := "reopened"
		if ev.Task.Completed {
			state = "completed"
		}
		fmt.Fprintf(w, "%s %-9s %s %s\n", stamp, state, task.ShortID(ev.Task.ID), ev.Task.Text)
	case engine.Reordered:
		fmt.Fprintf(w, "%s reordered %d tasks\n", stamp, len(ev.Tasks))
	case engine.Invalidated:
		fmt.Fprintf(w, "%s reloaded  %d tasks\n", stamp, len(ev.Tasks))
	case engine.PersistFailed:
		fmt.Fprintf(w, "%s save failed\n", stamp)
	}
	return nil
}
