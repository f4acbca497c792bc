package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// Kind identifies an event type.
type Kind int

// Event kinds.
const (
	Created Kind = iota + 1
	Updated
	Deleted
	CompletionChanged
	Reordered
	ViewComputed
	Invalidated
	PersistFailed
)

// Kinds lists every event kind.
var Kinds = []Kind{Created, Updated, Deleted, CompletionChanged, Reordered, ViewComputed, Invalidated, PersistFailed}

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	case CompletionChanged:
		return "completion_changed"
	case Reordered:
		return "reordered"
	case ViewComputed:
		return "view_computed"
	case Invalidated:
		return "invalidated"
	case PersistFailed:
		return "persist_failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is delivered to subscribers. Which fields are set depends on Kind:
//
//	Created, Deleted        Task
//	Updated                 Task (new), Old
//	CompletionChanged       Task, WasCompleted
//	Reordered, Invalidated  Tasks (full collection)
//	ViewComputed            Tasks (query result)
//	PersistFailed           nothing
type Event struct {
	Kind         Kind
	Task         task.Task
	Old          *task.Task
	WasCompleted bool
	Tasks        []task.Task
}

// clone gives each handler its own copy of the payload.
func (e Event) clone() Event {
	c := e
	c.Task = e.Task.Clone()
	if e.Old != nil {
		old := e.Old.Clone()
		c.Old = &old
	}
	c.Tasks = cloneAll(e.Tasks)
	return c
}

// Handler receives events. A returned error is logged and otherwise ignored.
type Handler func(Event) error

type subscription struct {
	id int
	h  Handler
}

// bus delivers events in the order they were enqueued. Whichever caller
// finds the queue idle becomes the dispatcher and drains it; events raised
// by handlers are appended and delivered after the current one.
type bus struct {
	log *slog.Logger

	mu       sync.Mutex
	next     int
	subs     map[Kind][]subscription
	queue    []Event
	draining bool
}

func newBus(log *slog.Logger) *bus {
	return &bus{log: log, subs: make(map[Kind][]subscription)}
}

func (b *bus) subscribe(h Handler, kinds ...Kind) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	for _, k := range kinds {
		b.subs[k] = append(b.subs[k], subscription{id: id, h: h})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, k := range kinds {
				subs := b.subs[k]
				for i, s := range subs {
					if s.id == id {
						b.subs[k] = append(subs[:i:i], subs[i+1:]...)
						break
					}
				}
			}
		})
	}
}

func (b *bus) enqueue(events ...Event) {
	b.mu.Lock()
	b.queue = append(b.queue, events...)
	b.mu.Unlock()
}

func (b *bus) dispatch() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	for len(b.queue) > 0 {
		ev := b.queue[0]
		b.queue = b.queue[1:]
		subs := append([]subscription(nil), b.subs[ev.Kind]...)
		b.mu.Unlock()

		for _, s := range subs {
			b.deliver(s.h, ev)
		}

		b.mu.Lock()
	}
	b.draining = false
	b.mu.Unlock()
}

func (b *bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "kind", ev.Kind, "panic", r)
		}
	}()
	if err := h(ev.clone()); err != nil {
		b.log.Error("event handler failed", "kind", ev.Kind, "error", err)
	}
}
