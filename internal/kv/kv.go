// Package kv provides raw key-value backends for persisted application
// state. Backends know nothing about the values they hold; they store bytes
// under string keys, enforce an optional byte quota, and report changes made
// by other instances sharing the same underlying storage.
package kv

import (
	"bytes"
	"errors"
	"regexp"
)

// Sentinel errors.
var (
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrClosed        = errors.New("backend is closed")
	ErrInvalidKey    = errors.New("invalid key")
)

// Change describes a value that another instance modified. A nil Old or New
// means the key was absent before or after the change.
type Change struct {
	Key string
	Old []byte
	New []byte
}

// Backend is a durable byte store addressed by key.
type Backend interface {
	// Get returns the value stored under key and whether it exists.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key. It returns ErrQuotaExceeded if the write
	// would push the total stored size past the backend's quota.
	Set(key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Keys lists the stored keys in no particular order.
	Keys() ([]string, error)

	// Watch registers fn for changes made by other instances only. Writes
	// made through this Backend are never reported back to it. The returned
	// function unregisters fn.
	Watch(fn func(Change)) (stop func(), err error)

	// Close releases resources held by the backend.
	Close() error
}

// keyRe restricts keys to names that are safe as file names on every
// platform the dir backend supports.
var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidKey reports whether key can be stored by every backend.
func ValidKey(key string) bool {
	return keyRe.MatchString(key)
}

// checkQuota reports ErrQuotaExceeded when replacing a value of size oldLen
// with one of size newLen would push total past quota. A quota of 0 or less
// means unlimited.
func checkQuota(quota, total int64, oldLen, newLen int) error {
	if quota <= 0 {
		return nil
	}
	if total-int64(oldLen)+int64(newLen) > quota {
		return ErrQuotaExceeded
	}
	return nil
}

// cloneBytes copies b so callers cannot alias backend state. nil stays nil.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

// watchers is a registry of change callbacks shared by the backends.
type watchers struct {
	next int
	fns  map[int]func(Change)
}

func (w *watchers) add(fn func(Change)) int {
	if w.fns == nil {
		w.fns = make(map[int]func(Change))
	}
	w.next++
	w.fns[w.next] = fn
	return w.next
}

func (w *watchers) remove(id int) {
	delete(w.fns, id)
}

func (w *watchers) snapshot() []func(Change) {
	out := make([]func(Change), 0, len(w.fns))
	for i := 1; i <= w.next; i++ {
		if fn, ok := w.fns[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}
