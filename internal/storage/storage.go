// Package storage persists tasks, settings, categories and the theme flag in
// a kv.Backend under fixed keys. It holds no business logic: every load
// tolerates malformed data by logging it and falling back to an empty or
// default value (task loads fail only when the backend itself cannot be
// read), and every save reports failure as a boolean.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/todu/internal/kv"
)

// ErrUnreadable is returned when the backend fails to read a stored value.
// It is never returned for missing or malformed data.
var ErrUnreadable = errors.New("stored value unreadable")

// Keys under which application state is stored.
const (
	KeyTasks      = "todo-tasks-v2"
	KeySettings   = "todo-settings-v2"
	KeyDarkMode   = "todo-dark-mode"
	KeyCategories = "todo-categories"
)

// Keys lists every key owned by the store.
var Keys = []string{KeyTasks, KeySettings, KeyDarkMode, KeyCategories}

// Store is the persistence adapter used by the engine and the CLI.
type Store struct {
	kv    kv.Backend
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for load and save failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides time.Now for timestamps written by the store.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides GenerateID.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a Store over backend.
func New(backend kv.Backend, opts ...Option) *Store {
	s := &Store{
		kv:    backend,
		log:   slog.Default(),
		now:   time.Now,
		newID: newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateID returns a new opaque, time-ordered unique id.
func (s *Store) GenerateID() string {
	return s.newID()
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SubscribeExternal calls fn for every change another instance makes to one
// of the store's keys. Raw values are passed through; nil means absent.
func (s *Store) SubscribeExternal(fn func(key string, oldValue, newValue []byte)) (stop func(), err error) {
	return s.kv.Watch(func(c kv.Change) {
		if !isStoreKey(c.Key) {
			return
		}
		fn(c.Key, c.Old, c.New)
	})
}

// ClearAll removes every key owned by the store.
func (s *Store) ClearAll() bool {
	ok := true
	for _, key := range Keys {
		if err := s.kv.Remove(key); err != nil {
			s.log.Warn("failed to clear data", "key", key, "error", err)
			ok = false
		}
	}
	return ok
}

// availabilityKey is written and removed by Available.
const availabilityKey = "storage-available-test"

// Available reports whether the backend currently accepts writes.
func (s *Store) Available() bool {
	if err := s.kv.Set(availabilityKey, []byte(availabilityKey)); err != nil {
		return false
	}
	return s.kv.Remove(availabilityKey) == nil
}

// read distinguishes a missing key from a backend that could not be read.
func (s *Store) read(key string) ([]byte, bool, error) {
	data, ok, err := s.kv.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrUnreadable, key, err)
	}
	return data, ok, nil
}

func (s *Store) write(key string, data []byte) bool {
	if err := s.kv.Set(key, data); err != nil {
		s.log.Warn("failed to save", "key", key, "error", err)
		return false
	}
	return true
}

func isStoreKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
