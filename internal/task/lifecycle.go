package task

import (
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/todu/internal/date"
)

// Patch holds the fields to replace on an existing task. Nil fields are
// left untouched. ClearDueDate removes the due date and wins over DueDate.
type Patch struct {
	Text         *string
	DueDate      *date.Date
	ClearDueDate bool
	Priority     *Priority
	Category     *string
	Completed    *bool
}

// IsEmpty reports whether the patch would change nothing but UpdatedAt.
func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.DueDate == nil && !p.ClearDueDate &&
		p.Priority == nil && p.Category == nil && p.Completed == nil
}

// Validate rejects patches that would break task invariants.
func (p Patch) Validate() error {
	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		return ErrEmptyText
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ValidatePriority(string(*p.Priority))
	}
	return nil
}

// Apply returns a copy of t with the patch applied and UpdatedAt refreshed.
// The patch must already be valid.
func (t Task) Apply(p Patch, now time.Time) Task {
	out := t.Clone()
	now = now.UTC()

	if p.Text != nil {
		out.Text = strings.TrimSpace(*p.Text)
	}
	if p.DueDate != nil {
		out.DueDate = copyDate(p.DueDate)
	}
	if p.ClearDueDate {
		out.DueDate = nil
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Category != nil {
		out.Category = normalizeCategory(*p.Category)
	}
	if p.Completed != nil && *p.Completed != out.Completed {
		out.setCompleted(*p.Completed, now)
	}

	out.UpdatedAt = now
	return out
}

// Toggle flips completion, maintains CompletedAt and refreshes UpdatedAt.
// It returns the previous completion state.
func (t *Task) Toggle(now time.Time) bool {
	was := t.Completed
	now = now.UTC()
	t.setCompleted(!was, now)
	t.UpdatedAt = now
	return was
}

// SetCategory replaces the category (blank falls back to the default).
func (t *Task) SetCategory(category string, now time.Time) {
	t.Category = normalizeCategory(category)
	t.UpdatedAt = now.UTC()
}

func (t *Task) setCompleted(completed bool, now time.Time) {
	t.Completed = completed
	if completed {
		at := now
		t.CompletedAt = &at
		return
	}
	t.CompletedAt = nil
}
