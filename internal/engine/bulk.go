package engine

import (
	"slices"
	"time"

	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// BulkComplete marks every listed pending task completed. Unknown and
// already completed ids are skipped. The collection is saved once and one
// CompletionChanged event is emitted per affected task.
func (e *Engine) BulkComplete(ids []string) []task.Task {
	e.mu.Lock()
	now := e.now()
	var affected []task.Task
	var events []Event
	for _, id := range dedupe(ids) {
		i := e.indexOf(id)
		if i < 0 || e.tasks[i].Completed {
			continue
		}
		t := e.tasks[i].Clone()
		t.Toggle(now)
		e.tasks[i] = t
		affected = append(affected, t)
		events = append(events, Event{Kind: CompletionChanged, Task: t, WasCompleted: false})
	}
	e.commitBulk(events)
	e.mu.Unlock()

	e.bus.dispatch()
	return cloneAll(affected)
}

// BulkDelete removes every listed task that exists.
func (e *Engine) BulkDelete(ids []string) []task.Task {
	e.mu.Lock()
	removed := e.removeWhere(func(t task.Task) bool { return slices.Contains(ids, t.ID) })
	e.mu.Unlock()

	e.bus.dispatch()
	return removed
}

// BulkSetCategory moves every listed task to category (blank means the
// default category).
func (e *Engine) BulkSetCategory(ids []string, category string) []task.Task {
	e.mu.Lock()
	now := e.now()
	var affected []task.Task
	var events []Event
	for _, id := range dedupe(ids) {
		i := e.indexOf(id)
		if i < 0 {
			continue
		}
		old := e.tasks[i]
		t := old.Clone()
		t.SetCategory(category, now)
		e.tasks[i] = t
		affected = append(affected, t)
		events = append(events, Event{Kind: Updated, Task: t, Old: &old})
	}
	e.commitBulk(events)
	e.mu.Unlock()

	e.bus.dispatch()
	return cloneAll(affected)
}

// PurgeCompleted deletes completed tasks older than the
// autoDeleteCompletedDays setting. It does nothing unless
// autoDeleteCompleted is enabled.
func (e *Engine) PurgeCompleted() []task.Task {
	settings := e.store.LoadSettings()
	if !settings.AutoDeleteCompleted || settings.AutoDeleteCompletedDays < 1 {
		return nil
	}
	return e.PurgeCompletedOlderThan(time.Duration(settings.AutoDeleteCompletedDays) * 24 * time.Hour)
}

// PurgeCompletedOlderThan deletes tasks completed more than age ago.
func (e *Engine) PurgeCompletedOlderThan(age time.Duration) []task.Task {
	e.mu.Lock()
	cutoff := e.now().Add(-age)
	removed := e.removeWhere(func(t task.Task) bool {
		return t.Completed && t.CompletedAt != nil && t.CompletedAt.Before(cutoff)
	})
	e.mu.Unlock()

	e.bus.dispatch()
	return removed
}

// removeWhere deletes matching tasks, saves once and queues one Deleted
// event per task in collection order. Caller holds e.mu.
func (e *Engine) removeWhere(match func(task.Task) bool) []task.Task {
	var removed []task.Task
	var events []Event
	kept := e.tasks[:0:0]
	for _, t := range e.tasks {
		if match(t) {
			removed = append(removed, t.Clone())
			events = append(events, Event{Kind: Deleted, Task: t})
			continue
		}
		kept = append(kept, t)
	}
	if len(removed) == 0 {
		return nil
	}
	e.tasks = kept
	e.commitBulk(events)
	return removed
}

// commitBulk saves once if anything changed. Caller holds e.mu.
func (e *Engine) commitBulk(events []Event) {
	if len(events) == 0 {
		return
	}
	e.commit(events...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
