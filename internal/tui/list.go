// Package tui implements the interactive task list.
package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/date"
	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// mode represents the current input state.
type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeSearch
	modeConfirmDelete
)

const (
	listChrome   = 4 // header, blank line, status bar, help
	errorChrome  = 1
	tickInterval = time.Minute // due-date highlighting follows the clock
)

var statusCycle = []engine.Status{engine.StatusAll, engine.StatusPending, engine.StatusCompleted}

// List is the top-level bubbletea model.
type List struct {
	eng      *engine.Engine
	settings config.Settings
	now      func() time.Time

	criteria engine.Criteria
	tasks    []task.Task
	cursor   int
	offset   int

	mode     mode
	input    textinput.Model
	help     help.Model
	keys     keyMap
	width    int
	height   int
	err      error
	editID   string
	deleteID string

	changes     chan struct{}
	unsubscribe func()
}

// New creates a List over eng. Settings provide the initial sort order,
// completed-task visibility and the defaults for new tasks.
func New(eng *engine.Engine, settings config.Settings) *List {
	in := textinput.New()
	in.CharLimit = 500 //nolint:mnd // generous single-line limit

	l := &List{
		eng:      eng,
		settings: settings,
		now:      time.Now,
		criteria: criteriaFrom(settings),
		input:    in,
		help:     help.New(),
		keys:     defaultKeys(),
		changes:  make(chan struct{}, 1),
	}
	l.unsubscribe = eng.Subscribe(l.onEvent,
		engine.Created, engine.Updated, engine.Deleted,
		engine.CompletionChanged, engine.Reordered, engine.Invalidated)
	l.refresh()
	return l
}

// SetNow overrides the clock used for due-date highlighting (for testing).
func (l *List) SetNow(fn func() time.Time) {
	l.now = fn
}

// Close stops listening to engine events.
func (l *List) Close() {
	l.unsubscribe()
}

func criteriaFrom(s config.Settings) engine.Criteria {
	c := engine.Criteria{
		Status:    engine.StatusAll,
		SortKey:   engine.SortKey(s.SortBy),
		Direction: engine.Direction(s.SortOrder),
	}
	if !s.ShowCompletedTasks {
		c.Status = engine.StatusPending
	}
	return c
}

// onEvent runs on whichever goroutine committed the change, so it only
// flags the model for a refresh.
func (l *List) onEvent(engine.Event) error {
	select {
	case l.changes <- struct{}{}:
	default:
	}
	return nil
}

// --- Messages ---

// RefreshMsg asks the list to re-run its query.
type RefreshMsg struct{}

// TickMsg is sent periodically so due-date highlighting stays current.
type TickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return RefreshMsg{}
	}
}

// Init implements tea.Model.
func (l *List) Init() tea.Cmd {
	return tea.Batch(waitForChange(l.changes), tickCmd())
}

// Update implements tea.Model.
func (l *List) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return l.handleKey(msg)
	case tea.WindowSizeMsg:
		l.width = msg.Width
		l.height = msg.Height
		l.help.Width = msg.Width
		l.ensureVisible()
		return l, nil
	case RefreshMsg:
		l.refresh()
		return l, waitForChange(l.changes)
	case TickMsg:
		return l, tickCmd()
	}

	if l.mode != modeList {
		var cmd tea.Cmd
		l.input, cmd = l.input.Update(msg)
		return l, cmd
	}
	return l, nil
}

func (l *List) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return l, tea.Quit
	}

	switch l.mode {
	case modeAdd, modeEdit, modeSearch:
		return l.handleInputKey(msg)
	case modeConfirmDelete:
		return l.handleDeleteKey(msg)
	}
	return l.handleListKey(msg)
}

func (l *List) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	l.err = nil

	switch {
	case key.Matches(msg, l.keys.Quit):
		return l, tea.Quit
	case key.Matches(msg, l.keys.Up):
		if l.cursor > 0 {
			l.cursor--
			l.ensureVisible()
		}
	case key.Matches(msg, l.keys.Down):
		if l.cursor < len(l.tasks)-1 {
			l.cursor++
			l.ensureVisible()
		}
	case key.Matches(msg, l.keys.MoveUp):
		l.move(-1)
	case key.Matches(msg, l.keys.MoveDown):
		l.move(1)
	case key.Matches(msg, l.keys.Toggle):
		if t, ok := l.selected(); ok {
			_, l.err = l.eng.Toggle(t.ID)
			l.refresh()
		}
	case key.Matches(msg, l.keys.Priority):
		if t, ok := l.selected(); ok {
			next := nextPriority(t.Priority)
			_, l.err = l.eng.Update(t.ID, task.Patch{Priority: &next})
			l.refresh()
		}
	case key.Matches(msg, l.keys.Add):
		return l, l.startInput(modeAdd, "add> ", "")
	case key.Matches(msg, l.keys.Edit):
		if t, ok := l.selected(); ok {
			l.editID = t.ID
			return l, l.startInput(modeEdit, "edit> ", t.Text)
		}
	case key.Matches(msg, l.keys.Search):
		return l, l.startInput(modeSearch, "/", l.criteria.Search)
	case key.Matches(msg, l.keys.Delete):
		if t, ok := l.selected(); ok {
			l.deleteID = t.ID
			l.mode = modeConfirmDelete
		}
	case key.Matches(msg, l.keys.Filter):
		i := slices.Index(statusCycle, l.criteria.Status)
		l.criteria.Status = statusCycle[(i+1)%len(statusCycle)]
		l.refresh()
	case key.Matches(msg, l.keys.Sort):
		i := slices.Index(config.SortFields, string(l.criteria.SortKey))
		l.criteria.SortKey = engine.SortKey(config.SortFields[(i+1)%len(config.SortFields)])
		l.refresh()
	case key.Matches(msg, l.keys.Reverse):
		if l.criteria.Direction == engine.Ascending {
			l.criteria.Direction = engine.Descending
		} else {
			l.criteria.Direction = engine.Ascending
		}
		l.refresh()
	case key.Matches(msg, l.keys.Help):
		l.help.ShowAll = !l.help.ShowAll
	}
	return l, nil
}

func (l *List) startInput(m mode, prompt, value string) tea.Cmd {
	l.mode = m
	l.input.Prompt = prompt
	l.input.SetValue(value)
	l.input.CursorEnd()
	return l.input.Focus()
}

func (l *List) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		l.finishInput()
		return l, nil
	case tea.KeyEnter:
		value := l.input.Value()
		switch l.mode {
		case modeAdd:
			_, l.err = l.eng.Add(value, nil, l.settings.DefaultPriority, l.settings.DefaultCategory)
			if l.err == nil {
				l.cursor = 0
			}
		case modeEdit:
			_, l.err = l.eng.Update(l.editID, task.Patch{Text: &value})
		case modeSearch:
			l.criteria.Search = value
			l.cursor = 0
		}
		l.finishInput()
		l.refresh()
		return l, nil
	}

	var cmd tea.Cmd
	l.input, cmd = l.input.Update(msg)
	return l, cmd
}

func (l *List) finishInput() {
	l.mode = modeList
	l.editID = ""
	l.input.Blur()
	l.input.Reset()
}

func (l *List) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		_, l.err = l.eng.Delete(l.deleteID)
		l.mode = modeList
		l.refresh()
	case "n", "N", "esc", "q":
		l.mode = modeList
	}
	return l, nil
}

// move swaps the selected task with its visible neighbour in the stored
// order.
func (l *List) move(delta int) {
	t, ok := l.selected()
	target := l.cursor + delta
	if !ok || target < 0 || target >= len(l.tasks) {
		return
	}

	all := l.eng.Tasks()
	from := indexOf(all, t.ID)
	to := indexOf(all, l.tasks[target].ID)
	if from < 0 || to < 0 {
		return
	}
	if err := l.eng.Reorder(from, to); err != nil {
		l.err = err
		return
	}
	l.refresh()
	l.cursor = max(0, indexOf(l.tasks, t.ID))
	l.ensureVisible()
}

func (l *List) refresh() {
	l.tasks = l.eng.Query(l.criteria)
	l.clampCursor()
}

func (l *List) selected() (task.Task, bool) {
	if l.cursor < 0 || l.cursor >= len(l.tasks) {
		return task.Task{}, false
	}
	return l.tasks[l.cursor], true
}

func (l *List) clampCursor() {
	if l.cursor >= len(l.tasks) {
		l.cursor = len(l.tasks) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.ensureVisible()
}

func (l *List) visibleRows() int {
	rows := l.height - listChrome
	if l.err != nil {
		rows -= errorChrome
	}
	if l.help.ShowAll {
		tallest := 0
		for _, col := range l.keys.FullHelp() {
			tallest = max(tallest, len(col))
		}
		rows -= tallest - 1
	}
	return max(rows, 1)
}

func (l *List) ensureVisible() {
	rows := l.visibleRows()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}
	l.offset = max(0, min(l.offset, len(l.tasks)-1))
}

func nextPriority(p task.Priority) task.Priority {
	i := slices.Index(task.Priorities, p)
	return task.Priorities[(i+1)%len(task.Priorities)]
}

func indexOf(tasks []task.Task, id string) int {
	return slices.IndexFunc(tasks, func(t task.Task) bool { return t.ID == id })
}

// --- Styles ---

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}

	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	todayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2) //nolint:mnd // dialog padding
)

// --- View rendering ---

// View implements tea.Model.
func (l *List) View() string {
	if l.width == 0 {
		return "Loading..."
	}
	if l.mode == modeConfirmDelete {
		return l.viewDeleteConfirm()
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(l.headerLine()))
	b.WriteString("\n")

	rows := l.visibleRows()
	today := date.Today(l.now())
	end := min(len(l.tasks), l.offset+rows)
	for i := l.offset; i < end; i++ {
		b.WriteString(l.renderRow(l.tasks[i], i == l.cursor, today))
		b.WriteString("\n")
	}
	if len(l.tasks) == 0 {
		b.WriteString(dimStyle.Render("  No tasks. Press a to add one."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if l.mode != modeList {
		b.WriteString(l.input.View())
	} else {
		b.WriteString(l.renderStatusBar())
	}
	b.WriteString("\n")
	b.WriteString(l.help.View(l.keys))
	return b.String()
}

func (l *List) headerLine() string {
	status := string(l.criteria.Status)
	sortKey := l.criteria.SortKey
	if sortKey == "" {
		sortKey = engine.SortCreatedAt
	}
	dir := l.criteria.Direction
	if dir == "" {
		dir = engine.Descending
	}
	line := fmt.Sprintf("todu  %s  sort:%s %s", status, sortKey, dir)
	if l.criteria.Search != "" {
		line += fmt.Sprintf("  search:%q", l.criteria.Search)
	}
	return line
}

func (l *List) renderRow(t task.Task, active bool, today date.Date) string {
	marker := "  "
	if active {
		marker = cursorStyle.Render("> ")
	}
	check := "[ ]"
	text := t.Text
	if t.Completed {
		check = "[x]"
		text = doneStyle.Render(text)
	}

	prio := t.Priority.String()
	if st, ok := priorityStyles[t.Priority]; ok {
		prio = st.Render(prio)
	}

	var due string
	if t.DueDate != nil {
		due = " " + t.DueDate.String()
		switch {
		case t.Completed:
		case t.DueDate.Before(today):
			due = overdueStyle.Render(due)
		case t.DueDate.Equal(today):
			due = todayStyle.Render(due)
		}
	}

	line := fmt.Sprintf("%s%s %-6s %s %s%s", marker, check, prio, text,
		dimStyle.Render("("+t.Category+")"), due)
	return lipgloss.NewStyle().MaxWidth(l.width).Render(line)
}

func (l *List) renderStatusBar() string {
	s := l.eng.Statistics()
	status := fmt.Sprintf(" %d shown | %d/%d done | %d overdue", len(l.tasks), s.Completed, s.Total, s.Overdue)
	if !l.eng.Synced() {
		status += " | unsaved"
	}
	status = statusBarStyle.Render(truncate(status, l.width))

	if l.err != nil {
		msg := l.err.Error()
		if errors.Is(l.err, engine.ErrEmptyText) {
			msg = "task text cannot be empty"
		}
		return errorStyle.Render(truncate("Error: "+msg, l.width)) + "\n" + status
	}
	return status
}

func (l *List) viewDeleteConfirm() string {
	t, _ := l.eng.Get(l.deleteID)
	content := errorStyle.Render("Delete task?") + "\n\n" +
		"  " + t.Text + "\n\n" +
		dimStyle.Render("y:yes  n:no")
	return dialogStyle.Render(content)
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
