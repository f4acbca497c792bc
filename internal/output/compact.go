package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	for _, t := range tasks {
		fmt.Fprintln(w, formatTaskLine(t))
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, t task.Task) {
	fmt.Fprintln(w, formatTaskLine(t))

	ts := "  created:" + t.CreatedAt.Local().Format("2006-01-02") +
		" updated:" + t.UpdatedAt.Local().Format("2006-01-02")
	if t.CompletedAt != nil {
		ts += " completed:" + t.CompletedAt.Local().Format("2006-01-02")
	}
	fmt.Fprintln(w, ts)
}

// StatsCompact renders statistics in compact format.
func StatsCompact(w io.Writer, s engine.Stats) {
	fmt.Fprintf(w, "%d tasks (%d completed, %d pending, %d%%)\n",
		s.Total, s.Completed, s.Pending, s.CompletionRate)
	fmt.Fprintf(w, "Due: overdue=%d today=%d completedToday=%d\n",
		s.Overdue, s.DueToday, s.CompletedToday)
	fmt.Fprintf(w, "Priority: high=%d medium=%d low=%d\n",
		s.ByPriority.High, s.ByPriority.Medium, s.ByPriority.Low)

	if len(s.Categories) > 0 {
		parts := make([]string, 0, len(s.Categories))
		for _, cc := range s.Categories {
			parts = append(parts, cc.Name+"="+strconv.Itoa(cc.Count))
		}
		fmt.Fprintln(w, "Category: "+strings.Join(parts, " "))
	}
	fmt.Fprintf(w, "Week: created=%d completed=%d  Month: created=%d completed=%d\n",
		s.Productivity.ThisWeek.Created, s.Productivity.ThisWeek.Completed,
		s.Productivity.ThisMonth.Created, s.Productivity.ThisMonth.Completed)
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t task.Task) string {
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	line := task.ShortID(t.ID) + " " + mark + " [" + t.Priority.String() + "] " + t.Text +
		" (" + t.Category + ")"
	if t.DueDate != nil {
		line += " due:" + t.DueDate.String()
	}
	return line
}
