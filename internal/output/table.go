package output

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/todu/internal/activity"
	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/date"
	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/storage"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

const timeLayout = "2006-01-02 15:04"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "238", Dark: "244"})
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "246", Dark: "241"})
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))

	priorityStyles = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		"medium": lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "172", Dark: "226"}),
		"low":    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "246", Dark: "242"}),
	}

	dueStyles = map[string]lipgloss.Style{
		"overdue": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		"today":   lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
	}

	// categoryPalette colours categories by hash so a category keeps its colour.
	categoryPalette = []lipgloss.Color{"33", "36", "35", "32", "91", "34", "93", "96"}
	colorEnabled    = true
)

// DisableColor strips all styling from table output.
func DisableColor() {
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	doneStyle = lipgloss.NewStyle()
	priorityStyles = map[string]lipgloss.Style{}
	dueStyles = map[string]lipgloss.Style{}
	colorEnabled = false
	markdownStyle = "notty"
}

// TaskTable renders a list of tasks as a formatted table. now decides
// which due dates are highlighted as overdue or due today.
func TaskTable(w io.Writer, tasks []task.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	today := date.Today(now)
	const pad = 2
	idW, prioW, catW, dueW, textW := 4, 10, 10, 12, 5
	for _, t := range tasks {
		idW = max(idW, len(task.ShortID(t.ID))+pad)
		catW = max(catW, min(lipgloss.Width(t.Category)+pad, 20)) //nolint:mnd // max category column width
		textW = max(textW, min(lipgloss.Width(t.Text)+pad, 60))   //nolint:mnd // max text column width
	}

	header := fmt.Sprintf("%-*s %-4s %-*s %-*s %-*s %-*s",
		idW, "ID", "DONE", prioW, "PRIORITY", catW, "CATEGORY", dueW, "DUE", textW, "TEXT")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for _, t := range tasks {
		done := dimStyle.Render("[ ]")
		text := truncate(t.Text, textW-pad)
		if t.Completed {
			done = doneStyle.Render("[x]")
			text = dimStyle.Render(text)
		}

		row := fmt.Sprintf("%-*s %s %s %s %s %s",
			idW, task.ShortID(t.ID),
			padRight(done, 4), //nolint:mnd // DONE column width
			padRight(styledValue(t.Priority.String(), priorityStyles), prioW),
			padRight(categoryStyle(truncate(t.Category, catW-pad)), catW),
			padRight(dueDisplay(t, today), dueW),
			text)
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// TaskDetail renders a single task with full detail. The task text is
// rendered as markdown.
func TaskDetail(w io.Writer, t task.Task, now time.Time) {
	titleLine := "Task " + t.ID
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", len(titleLine)))

	status := "pending"
	if t.Completed {
		status = doneStyle.Render("completed")
	}
	printField(w, "Status", status)
	printField(w, "Priority", styledValue(t.Priority.String(), priorityStyles))
	printField(w, "Category", categoryStyle(t.Category))
	today := date.Today(now)
	due := dueDisplay(t, today)
	if t.DueDate != nil && !t.Completed {
		due += dimStyle.Render(" (" + relativeDays(today.DaysUntil(*t.DueDate)) + ")")
	}
	printField(w, "Due", due)
	printField(w, "Created", t.CreatedAt.Local().Format(timeLayout))
	printField(w, "Updated", t.UpdatedAt.Local().Format(timeLayout))
	if t.CompletedAt != nil {
		printField(w, "Completed", t.CompletedAt.Local().Format(timeLayout))
		printField(w, "Lead time", FormatDuration(t.CompletedAt.Sub(t.CreatedAt)))
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, renderMarkdown(t.Text))
}

// StatsTable renders collection statistics as a dashboard.
func StatsTable(w io.Writer, s engine.Stats) {
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render("Tasks"))
	fmt.Fprintf(w, "Total: %d  Completed: %d  Pending: %d  (%d%% done)\n\n",
		s.Total, s.Completed, s.Pending, s.CompletionRate)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-16s %6s", "DUE", "COUNT")))
	fmt.Fprintf(w, "%s %6d\n", padRight(styledValue("overdue", dueStyles), 16), s.Overdue)  //nolint:mnd // column width
	fmt.Fprintf(w, "%s %6d\n", padRight(styledValue("today", dueStyles), 16), s.DueToday)   //nolint:mnd // column width
	fmt.Fprintf(w, "%-16s %6d\n", "completed today", s.CompletedToday)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-16s %6s", "PRIORITY", "COUNT")))
	for _, pc := range []struct {
		name  string
		count int
	}{{"high", s.ByPriority.High}, {"medium", s.ByPriority.Medium}, {"low", s.ByPriority.Low}} {
		fmt.Fprintf(w, "%s %6d\n", padRight(styledValue(pc.name, priorityStyles), 16), pc.count) //nolint:mnd // column width
	}

	if len(s.Categories) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-16s %6s", "CATEGORY", "COUNT")))
		for _, cc := range s.Categories {
			fmt.Fprintf(w, "%s %6d\n", padRight(categoryStyle(truncate(cc.Name, 16)), 16), cc.Count) //nolint:mnd // column width
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-16s %8s %10s", "CREATED IN", "CREATED", "COMPLETED")))
	fmt.Fprintf(w, "%-16s %8d %10d\n", "last 7 days", s.Productivity.ThisWeek.Created, s.Productivity.ThisWeek.Completed)
	fmt.Fprintf(w, "%-16s %8d %10d\n", "last 30 days", s.Productivity.ThisMonth.Created, s.Productivity.ThisMonth.Completed)
}

// InfoTable renders storage usage per key.
func InfoTable(w io.Writer, info storage.Info) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-12s %12s", "KEY", "SIZE")))
	for _, row := range []struct {
		name string
		size int64
	}{
		{"tasks", info.TasksSize},
		{"settings", info.SettingsSize},
		{"categories", info.CategoriesSize},
		{"dark mode", info.DarkModeSize},
	} {
		fmt.Fprintf(w, "%-12s %12s\n", row.name, FormatBytes(row.size))
	}
	fmt.Fprintf(w, "%-12s %12s\n", "total", FormatBytes(info.TotalSize))
	fmt.Fprintf(w, "%-12s %12s\n", "available", FormatBytes(info.AvailableSize))
	fmt.Fprintf(w, "%-12s %11.1f%%\n", "used", info.UsagePercentage)
}

// SettingsTable renders every setting as KEY VALUE.
func SettingsTable(w io.Writer, s config.Settings) {
	keys := config.SettingKeys()
	keyW := 0
	for _, k := range keys {
		keyW = max(keyW, len(k))
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s  %s", keyW, "KEY", "VALUE")))
	for _, k := range keys {
		v, _ := s.Get(k)
		fmt.Fprintf(w, "%-*s  %s\n", keyW, k, v)
	}
}

// ImportSummary reports which parts of an import were applied.
func ImportSummary(w io.Writer, r storage.ImportResult) {
	printField(w, "Applied", listOrDash(r.Applied))
	printField(w, "Skipped", listOrDash(r.Skipped))
	if len(r.Failed) > 0 {
		printField(w, "Failed", dueStyles["overdue"].Render(strings.Join(r.Failed, ", ")))
	}
}

// ActivityTable renders activity log entries, oldest first.
func ActivityTable(w io.Writer, entries []activity.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No activity recorded.")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-16s %-15s %-10s %s", "TIME", "ACTION", "TASK", "DETAIL")))
	for _, e := range entries {
		id := task.ShortID(e.TaskID)
		if id == "" {
			id = dimStyle.Render("--")
		}
		fmt.Fprintf(w, "%-16s %-15s %s %s\n",
			e.Timestamp.Local().Format(timeLayout), e.Action, padRight(id, 10), e.Detail) //nolint:mnd // column width
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

// FormatDuration renders a duration as human-readable "Xd Yh" or "Xh Ym".
func FormatDuration(d time.Duration) string {
	const hoursPerDay = 24
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if days > 0 {
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	}
	minutes := int(d.Minutes()) % 60 //nolint:mnd // 60 minutes per hour
	return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
}

// FormatBytes renders a byte count as B, KiB or MiB.
func FormatBytes(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return strconv.FormatInt(n, 10) + " B"
	case n < unit*unit:
		return strconv.FormatFloat(float64(n)/unit, 'f', 1, 64) + " KiB"
	default:
		return strconv.FormatFloat(float64(n)/(unit*unit), 'f', 1, 64) + " MiB"
	}
}

// dueDisplay renders the due date, highlighted when pending and overdue
// or due today.
func dueDisplay(t task.Task, today date.Date) string {
	if t.DueDate == nil {
		return dimStyle.Render("--")
	}
	s := t.DueDate.String()
	if t.Completed {
		return s
	}
	switch {
	case t.DueDate.Before(today):
		return styledValue("overdue", dueStyles, s)
	case t.DueDate.Equal(today):
		return styledValue("today", dueStyles, s)
	}
	return s
}

// relativeDays describes a day offset from today.
func relativeDays(n int) string {
	switch {
	case n == 0:
		return "today"
	case n == 1:
		return "tomorrow"
	case n == -1:
		return "1 day overdue"
	case n < 0:
		return fmt.Sprintf("%d days overdue", -n)
	}
	return fmt.Sprintf("in %d days", n)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 { //nolint:mnd // minimum length for truncation
		maxLen = 4
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	target := min(maxLen-3, len(runes)) //nolint:mnd // room for "..."
	for target > 0 && lipgloss.Width(string(runes[:target])) > maxLen-3 {
		target--
	}
	return string(runes[:target]) + "..."
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return dimStyle.Render("--")
	}
	return strings.Join(items, ", ")
}

// categoryStyle renders a category in its hashed palette colour.
func categoryStyle(category string) string {
	if !colorEnabled {
		return category
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(category))
	color := categoryPalette[h.Sum32()%uint32(len(categoryPalette))]
	return lipgloss.NewStyle().Foreground(color).Render(category)
}

// styledValue renders text (s by default) using the style keyed by s, or
// returns it unchanged.
func styledValue(s string, styles map[string]lipgloss.Style, text ...string) string {
	out := s
	if len(text) > 0 {
		out = text[0]
	}
	if st, ok := styles[s]; ok {
		return st.Render(out)
	}
	return out
}
