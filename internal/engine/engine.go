// Package engine owns the in-memory task collection. Every mutation goes
// through an Engine method, is persisted through the Store, and is announced
// on a typed event bus once committed.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/date"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// Rejections. Nothing is mutated, persisted or emitted when one is returned.
var (
	ErrEmptyText       = task.ErrEmptyText
	ErrNotFound        = errors.New("task not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidPriority = errors.New("invalid priority")
)

// Store is the persistence the engine needs.
type Store interface {
	LoadTasks() ([]task.Task, error)
	SaveTasks(tasks []task.Task) bool
	LoadSettings() config.Settings
	GenerateID() string
	SubscribeExternal(fn func(key string, oldValue, newValue []byte)) (stop func(), err error)
}

// Engine is safe for concurrent use. Event handlers run after the engine's
// lock is released and may call back into it.
type Engine struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
	tag   language.Tag

	mu     sync.Mutex
	tasks  []task.Task
	synced bool

	collMu   sync.Mutex
	collator *collate.Collator

	bus          *bus
	stopExternal func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocale sets the collation locale for alphabetical and category order.
func WithLocale(tag language.Tag) Option {
	return func(e *Engine) { e.tag = tag }
}

// New loads the collection from store and subscribes to changes made by
// other instances.
func New(store Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store: store,
		log:   slog.Default(),
		now:   time.Now,
		tag:   language.Und,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.bus = newBus(e.log)
	e.collator = collate.New(e.tag)

	tasks, err := store.LoadTasks()
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	e.tasks = tasks
	e.synced = true

	stop, err := store.SubscribeExternal(e.onExternalChange)
	if err != nil {
		return nil, fmt.Errorf("subscribe to external changes: %w", err)
	}
	e.stopExternal = stop
	return e, nil
}

// Close stops listening for external changes.
func (e *Engine) Close() {
	if e.stopExternal != nil {
		e.stopExternal()
	}
}

// Subscribe registers h for the given kinds (all kinds when none are given).
// Handlers for one kind run in subscription order. The returned function
// unsubscribes.
func (e *Engine) Subscribe(h Handler, kinds ...Kind) (unsubscribe func()) {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	return e.bus.subscribe(h, kinds...)
}

// Synced reports whether the last save succeeded.
func (e *Engine) Synced() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synced
}

// Len returns the number of tasks.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Tasks returns a copy of the collection in its stored order.
func (e *Engine) Tasks() []task.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAll(e.tasks)
}

// Get returns a copy of the task with id.
func (e *Engine) Get(id string) (task.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexOf(id)
	if i < 0 {
		return task.Task{}, false
	}
	return e.tasks[i].Clone(), true
}

// Add creates a task at the head of the collection.
func (e *Engine) Add(text string, due *date.Date, priority task.Priority, category string) (task.Task, error) {
	if priority != "" && !priority.Valid() {
		return task.Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	t, err := task.New("", text, due, priority, category, e.now())
	if err != nil {
		return task.Task{}, err
	}
	t.ID = e.store.GenerateID()

	e.mu.Lock()
	e.tasks = slices.Insert(e.tasks, 0, t)
	e.commit(Event{Kind: Created, Task: t})
	e.mu.Unlock()

	e.bus.dispatch()
	return t.Clone(), nil
}

// Update replaces the fields set in p. UpdatedAt is always refreshed, even
// for an empty patch.
func (e *Engine) Update(id string, p task.Patch) (task.Task, error) {
	if err := p.Validate(); err != nil {
		if errors.Is(err, task.ErrEmptyText) {
			return task.Task{}, ErrEmptyText
		}
		return task.Task{}, fmt.Errorf("%w: %v", ErrInvalidPriority, err)
	}

	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		return task.Task{}, ErrNotFound
	}
	old := e.tasks[i]
	updated := old.Apply(p, e.now())
	e.tasks[i] = updated
	e.commit(Event{Kind: Updated, Task: updated, Old: &old})
	e.mu.Unlock()

	e.bus.dispatch()
	return updated.Clone(), nil
}

// Delete removes the task with id.
func (e *Engine) Delete(id string) (task.Task, error) {
	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		return task.Task{}, ErrNotFound
	}
	removed := e.tasks[i]
	e.tasks = slices.Delete(e.tasks, i, i+1)
	e.commit(Event{Kind: Deleted, Task: removed})
	e.mu.Unlock()

	e.bus.dispatch()
	return removed.Clone(), nil
}

// Toggle flips completion of the task with id.
func (e *Engine) Toggle(id string) (task.Task, error) {
	e.mu.Lock()
	i := e.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		return task.Task{}, ErrNotFound
	}
	t := e.tasks[i].Clone()
	was := t.Toggle(e.now())
	e.tasks[i] = t
	e.commit(Event{Kind: CompletionChanged, Task: t, WasCompleted: was})
	e.mu.Unlock()

	e.bus.dispatch()
	return t.Clone(), nil
}

// Reorder moves the task at oldIndex to newIndex, shifting the tasks in
// between.
func (e *Engine) Reorder(oldIndex, newIndex int) error {
	e.mu.Lock()
	n := len(e.tasks)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		e.mu.Unlock()
		return fmt.Errorf("%w: move %d to %d with %d tasks", ErrIndexOutOfRange, oldIndex, newIndex, n)
	}
	moved := e.tasks[oldIndex]
	e.tasks = slices.Delete(e.tasks, oldIndex, oldIndex+1)
	e.tasks = slices.Insert(e.tasks, newIndex, moved)
	e.commit(Event{Kind: Reordered, Tasks: cloneAll(e.tasks)})
	e.mu.Unlock()

	e.bus.dispatch()
	return nil
}

// Query filters and sorts a copy of the collection and announces the result
// as ViewComputed.
func (e *Engine) Query(c Criteria) []task.Task {
	e.mu.Lock()
	result := Filter(e.tasks, c, date.Today(e.now()))
	e.mu.Unlock()

	key := c.SortKey
	if key == "" {
		key = SortCreatedAt
	}
	dir := c.Direction
	if dir == "" {
		dir = Descending
	}
	e.collMu.Lock()
	Sort(result, key, dir, e.collator.CompareString)
	e.collMu.Unlock()

	e.bus.enqueue(Event{Kind: ViewComputed, Tasks: result})
	e.bus.dispatch()
	return cloneAll(result)
}

// Statistics summarizes the whole collection.
func (e *Engine) Statistics() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Summarize(e.tasks, e.now())
}

// Categories returns the distinct categories in use, in collation order.
func (e *Engine) Categories() []string {
	e.mu.Lock()
	seen := make(map[string]bool)
	var names []string
	for _, t := range e.tasks {
		if t.Category != "" && !seen[t.Category] {
			seen[t.Category] = true
			names = append(names, t.Category)
		}
	}
	e.mu.Unlock()

	e.collMu.Lock()
	e.collator.SortStrings(names)
	e.collMu.Unlock()
	if names == nil {
		names = []string{}
	}
	return names
}

// commit persists the collection and queues events for dispatch after the
// lock is released. Caller holds e.mu.
func (e *Engine) commit(events ...Event) {
	if e.store.SaveTasks(cloneAll(e.tasks)) {
		e.synced = true
		e.bus.enqueue(events...)
		return
	}
	e.synced = false
	e.log.Warn("changes kept in memory but not saved", "tasks", len(e.tasks))
	e.bus.enqueue(events...)
	e.bus.enqueue(Event{Kind: PersistFailed})
}

// indexOf returns the index of id or -1. Caller holds e.mu.
func (e *Engine) indexOf(id string) int {
	return slices.IndexFunc(e.tasks, func(t task.Task) bool { return t.ID == id })
}

func cloneAll(tasks []task.Task) []task.Task {
	if tasks == nil {
		return nil
	}
	out := make([]task.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
