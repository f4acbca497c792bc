package kv

import (
	"fmt"
	"sync"
)

// Hub is shared in-process storage. Every Memory opened from the same Hub
// sees the same data, and a write through one instance is reported to the
// watchers of all other instances, the way a second browser tab or a second
// process sharing a data directory would see it.
type Hub struct {
	mu        sync.Mutex
	data      map[string][]byte
	quota     int64
	instances map[*Memory]struct{}
}

// NewHub creates an empty Hub. A quota of 0 means unlimited.
func NewHub(quota int64) *Hub {
	return &Hub{
		data:      make(map[string][]byte),
		quota:     quota,
		instances: make(map[*Memory]struct{}),
	}
}

// Open returns a new instance attached to the hub.
func (h *Hub) Open() *Memory {
	m := &Memory{hub: h}
	h.mu.Lock()
	h.instances[m] = struct{}{}
	h.mu.Unlock()
	return m
}

// NewMemory returns a standalone in-memory backend.
func NewMemory(quota int64) *Memory {
	return NewHub(quota).Open()
}

// Memory is an in-process Backend, mainly for tests and ephemeral use.
type Memory struct {
	hub *Hub

	// guarded by hub.mu
	watch  watchers
	closed bool
}

var _ Backend = (*Memory)(nil)

// Get implements Backend.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.hub.data[key]
	return cloneBytes(v), ok, nil
}

// Set implements Backend.
func (m *Memory) Set(key string, value []byte) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if value == nil {
		value = []byte{}
	}

	m.hub.mu.Lock()
	if m.closed {
		m.hub.mu.Unlock()
		return ErrClosed
	}
	old, existed := m.hub.data[key]
	if err := checkQuota(m.hub.quota, m.hub.totalLocked(), len(old), len(value)); err != nil {
		m.hub.mu.Unlock()
		return err
	}
	m.hub.data[key] = cloneBytes(value)
	var prev []byte
	if existed {
		prev = cloneBytes(old)
	}
	fns := m.hub.peerWatchersLocked(m)
	m.hub.mu.Unlock()

	notify(fns, Change{Key: key, Old: prev, New: cloneBytes(value)})
	return nil
}

// Remove implements Backend.
func (m *Memory) Remove(key string) error {
	m.hub.mu.Lock()
	if m.closed {
		m.hub.mu.Unlock()
		return ErrClosed
	}
	old, existed := m.hub.data[key]
	if !existed {
		m.hub.mu.Unlock()
		return nil
	}
	delete(m.hub.data, key)
	fns := m.hub.peerWatchersLocked(m)
	m.hub.mu.Unlock()

	notify(fns, Change{Key: key, Old: old})
	return nil
}

// Keys implements Backend.
func (m *Memory) Keys() ([]string, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.hub.data))
	for k := range m.hub.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Watch implements Backend. Callbacks run synchronously on the goroutine of
// the writing instance.
func (m *Memory) Watch(fn func(Change)) (func(), error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	id := m.watch.add(fn)
	return func() {
		m.hub.mu.Lock()
		m.watch.remove(id)
		m.hub.mu.Unlock()
	}, nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	m.closed = true
	delete(m.hub.instances, m)
	return nil
}

func (h *Hub) totalLocked() int64 {
	var total int64
	for _, v := range h.data {
		total += int64(len(v))
	}
	return total
}

func (h *Hub) peerWatchersLocked(self *Memory) []func(Change) {
	var fns []func(Change)
	for inst := range h.instances {
		if inst == self {
			continue
		}
		fns = append(fns, inst.watch.snapshot()...)
	}
	return fns
}

func notify(fns []func(Change), c Change) {
	for _, fn := range fns {
		fn(Change{Key: c.Key, Old: cloneBytes(c.Old), New: cloneBytes(c.New)})
	}
}
