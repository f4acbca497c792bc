// Package task defines the task record and the rules that keep it valid.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/todu/internal/date"
)

// DefaultCategory is assigned when a task has no (or a blank) category.
const DefaultCategory = "General"

// ErrEmptyText is returned when a task's text is empty after trimming.
var ErrEmptyText = errors.New("task text is empty")

// Task is a single to-do record.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Text        string     `json:"text" yaml:"text"`
	Completed   bool       `json:"completed" yaml:"completed"`
	DueDate     *date.Date `json:"dueDate" yaml:"dueDate,omitempty"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	Category    string     `json:"category" yaml:"category"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt" yaml:"completedAt,omitempty"`
}

// New builds a fresh, pending task. Zero values for priority and category
// fall back to their defaults.
func New(id, text string, due *date.Date, priority Priority, category string, now time.Time) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, ErrEmptyText
	}
	if priority == "" {
		priority = DefaultPriority
	}
	now = now.UTC()
	return Task{
		ID:        id,
		Text:      text,
		DueDate:   copyDate(due),
		Priority:  priority,
		Category:  normalizeCategory(category),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy so callers never share pointer fields.
func (t Task) Clone() Task {
	c := t
	c.DueDate = copyDate(t.DueDate)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

// UnmarshalJSON accepts an empty string or null for dueDate.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		DueDate json.RawMessage `json:"dueDate"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.DueDate = nil
	raw := strings.TrimSpace(string(aux.DueDate))
	if raw == "" || raw == "null" || raw == `""` {
		return nil
	}
	var d date.Date
	if err := json.Unmarshal(aux.DueDate, &d); err != nil {
		return fmt.Errorf("task %s: dueDate: %w", t.ID, err)
	}
	t.DueDate = &d
	return nil
}

func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultCategory
	}
	return category
}

func copyDate(d *date.Date) *date.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

const shortIDLen = 8

// ShortID returns the trailing characters of id used in listings. UUIDv7
// ids share their leading timestamp bits, so the tail is what tells them
// apart.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[len(id)-shortIDLen:]
}
