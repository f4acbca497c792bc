package engine

import (
	"fmt"

	"github.com/twiced-technology-gmbh/todu/internal/storage"
)

// Reload replaces the collection with what the store holds and emits
// Invalidated. Unsaved in-memory changes are discarded. When the store cannot
// be read the current collection is kept and no event is emitted.
func (e *Engine) Reload() error {
	e.mu.Lock()
	tasks, err := e.store.LoadTasks()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("reload tasks: %w", err)
	}
	e.tasks = tasks
	e.synced = true
	e.bus.enqueue(Event{Kind: Invalidated, Tasks: cloneAll(e.tasks)})
	e.mu.Unlock()

	e.bus.dispatch()
	return nil
}

// onExternalChange reloads when another instance rewrites the tasks key.
// Last writer wins; no merge is attempted.
func (e *Engine) onExternalChange(key string, _, _ []byte) {
	if key != storage.KeyTasks {
		return
	}
	e.log.Debug("tasks changed by another instance, reloading")
	if err := e.Reload(); err != nil {
		e.log.Warn("keeping current tasks", "error", err)
	}
}
