// Package watcher provides debounced, per-file change notifications for a
// directory of stored values.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the time to wait after the last event for a file before
// reporting it. This coalesces the write+rename pair of an atomic save into
// a single notification.
const DefaultDebounce = 50 * time.Millisecond

// Watcher watches a directory and reports the base name of each file that
// changed, debounced independently per file.
type Watcher struct {
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	timers   map[string]*time.Timer
	delay    time.Duration
	accept   func(name string) bool
	callback func(name string)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

// WithFilter limits notifications to names for which accept returns true.
// Hidden files (leading dot) are always ignored.
func WithFilter(accept func(name string) bool) Option {
	return func(w *Watcher) { w.accept = accept }
}

// New creates a Watcher for dir. The callback runs on a timer goroutine.
func New(dir string, callback func(name string), opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
		delay:    DefaultDebounce,
		callback: callback,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run starts the watch loop. It blocks until the context is canceled or the
// watcher is closed. Errors from fsnotify are passed to the optional errFn.
func (w *Watcher) Run(ctx context.Context, errFn func(error)) {
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				w.stopTimers()
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}
			if w.accept != nil && !w.accept(name) {
				continue
			}
			w.debounce(name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.stopTimers()
				return
			}
			if errFn != nil {
				errFn(err)
			}
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) debounce(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		delete(w.timers, name)
		w.mu.Unlock()
		w.callback(name)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
}
