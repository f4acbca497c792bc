// Package activity appends engine mutations to a JSONL log file.
package activity

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/filelock"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

const (
	// FileName is the log file name inside the data directory.
	FileName = "activity.jsonl"

	// MaxEntries bounds the log; the oldest entries are dropped beyond it.
	MaxEntries = 10000

	logFileMode = 0o600
)

// Entry is one line of the activity log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	TaskID    string    `json:"taskId,omitempty"`
	Detail    string    `json:"detail"`
}

// Log is an append-only activity log shared by every process using the
// same data directory.
type Log struct {
	path       string
	maxEntries int
	now        func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithMaxEntries overrides MaxEntries.
func WithMaxEntries(n int) Option {
	return func(l *Log) { l.maxEntries = n }
}

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New returns a Log writing to path.
func New(path string, opts ...Option) *Log {
	l := &Log{path: path, maxEntries: MaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

func (l *Log) lockPath() string {
	dir, base := filepath.Split(l.path)
	return filepath.Join(dir, "."+base+".lock")
}

// Append writes entry and truncates the log if it grew past its bound.
func (l *Log) Append(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}

	return filelock.With(l.lockPath(), func() error {
		f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode) //nolint:gosec // log path from trusted data dir
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			_ = f.Close()
			return fmt.Errorf("writing log entry: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}

		// Truncation is best-effort; the entry is already written.
		_ = l.truncateIfNeeded()
		return nil
	})
}

// Recent returns up to limit of the newest entries, oldest first. A limit
// of 0 or less returns everything. Malformed lines are skipped.
func (l *Log) Recent(limit int) ([]Entry, error) {
	var lines []string
	err := filelock.WithShared(l.lockPath(), func() error {
		var err error
		lines, err = l.readLines()
		return err
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Attach subscribes the log to eng's mutation events.
func (l *Log) Attach(eng *engine.Engine) (detach func()) {
	return eng.Subscribe(l.Handle,
		engine.Created, engine.Updated, engine.Deleted,
		engine.CompletionChanged, engine.Reordered, engine.PersistFailed)
}

// Handle converts an engine event into a log entry.
func (l *Log) Handle(ev engine.Event) error {
	entry, ok := l.entryFor(ev)
	if !ok {
		return nil
	}
	return l.Append(entry)
}

func (l *Log) entryFor(ev engine.Event) (Entry, bool) {
	e := Entry{Timestamp: l.now().UTC(), TaskID: ev.Task.ID}
	switch ev.Kind {
	case engine.Created:
		e.Action, e.Detail = "create", ev.Task.Text
	case engine.Updated:
		e.Action = "update"
		if ev.Old != nil {
			e.Detail = strings.Join(changedFields(*ev.Old, ev.Task), ",")
		}
	case engine.Deleted:
		e.Action, e.Detail = "delete", ev.Task.Text
	case engine.CompletionChanged:
		e.Action, e.Detail = "complete", ev.Task.Text
		if ev.WasCompleted {
			e.Action = "reopen"
		}
	case engine.Reordered:
		e.Action, e.Detail = "reorder", fmt.Sprintf("%d tasks", len(ev.Tasks))
	case engine.PersistFailed:
		e.Action, e.Detail = "persist-failed", "changes kept in memory only"
	default:
		return Entry{}, false
	}
	return e, true
}

func changedFields(old, cur task.Task) []string {
	var fields []string
	if old.Text != cur.Text {
		fields = append(fields, "text")
	}
	if !sameDue(old, cur) {
		fields = append(fields, "dueDate")
	}
	if old.Priority != cur.Priority {
		fields = append(fields, "priority")
	}
	if old.Category != cur.Category {
		fields = append(fields, "category")
	}
	if old.Completed != cur.Completed {
		fields = append(fields, "completed")
	}
	return fields
}

func sameDue(a, b task.Task) bool {
	if a.DueDate == nil || b.DueDate == nil {
		return a.DueDate == nil && b.DueDate == nil
	}
	return a.DueDate.Equal(*b.DueDate)
}

func (l *Log) readLines() ([]string, error) {
	f, err := os.Open(l.path) //nolint:gosec // trusted path
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// truncateIfNeeded rewrites the log keeping only the newest maxEntries
// lines. Caller holds the log lock.
func (l *Log) truncateIfNeeded() error {
	lines, err := l.readLines()
	if err != nil {
		return err
	}
	if len(lines) <= l.maxEntries {
		return nil
	}
	lines = lines[len(lines)-l.maxEntries:]

	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return os.WriteFile(l.path, []byte(buf.String()), logFileMode)
}
