package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/twiced-technology-gmbh/todu/internal/filelock"
	"github.com/twiced-technology-gmbh/todu/internal/watcher"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
	lockName = ".lock"
)

// Dir stores each key as a file in a directory. Writes from any number of
// processes are serialized by an advisory lock on a hidden lock file.
type Dir struct {
	root  string
	quota int64
	log   *slog.Logger

	mu     sync.Mutex
	known  map[string][]byte // last content this instance saw or wrote
	watch  watchers
	w      *watcher.Watcher
	cancel context.CancelFunc
	closed bool
}

var _ Backend = (*Dir)(nil)

// DirOption configures a Dir.
type DirOption func(*Dir)

// WithDirLogger sets the logger used for watcher errors.
func WithDirLogger(l *slog.Logger) DirOption {
	return func(d *Dir) { d.log = l }
}

// OpenDir opens (creating if needed) a directory backend rooted at root.
// A quota of 0 means unlimited.
func OpenDir(root string, quota int64, opts ...DirOption) (*Dir, error) {
	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	d := &Dir{
		root:  root,
		quota: quota,
		log:   slog.Default(),
		known: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.root, key)
}

func (d *Dir) lockPath() string {
	return filepath.Join(d.root, lockName)
}

// Get implements Backend.
func (d *Dir) Get(key string) ([]byte, bool, error) {
	if !ValidKey(key) {
		return nil, false, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, false, ErrClosed
	}
	data, ok, err := d.read(key)
	if err != nil {
		return nil, false, err
	}
	// Reads never update known; only Set, Remove and the watcher do.
	return cloneBytes(data), ok, nil
}

// Set implements Backend.
func (d *Dir) Set(key string, value []byte) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if value == nil {
		value = []byte{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	err := filelock.With(d.lockPath(), func() error {
		if d.quota > 0 {
			total, err := d.totalSize()
			if err != nil {
				return err
			}
			var oldLen int
			if info, err := os.Stat(d.path(key)); err == nil {
				oldLen = int(info.Size())
			}
			if err := checkQuota(d.quota, total, oldLen, len(value)); err != nil {
				return err
			}
		}
		return writeAtomic(d.path(key), value)
	})
	if err != nil {
		return err
	}
	d.remember(key, value, true)
	return nil
}

// Remove implements Backend.
func (d *Dir) Remove(key string) error {
	if !ValidKey(key) {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	err := filelock.With(d.lockPath(), func() error {
		if err := os.Remove(d.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.remember(key, nil, false)
	return nil
}

// Keys implements Backend.
func (d *Dir) Keys() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	return d.listKeys()
}

// Watch implements Backend. The filesystem watcher starts with the first
// registration; callbacks run on a watcher goroutine.
func (d *Dir) Watch(fn func(Change)) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.w == nil {
		if err := d.startWatcher(); err != nil {
			return nil, err
		}
	}
	id := d.watch.add(fn)
	return func() {
		d.mu.Lock()
		d.watch.remove(id)
		d.mu.Unlock()
	}, nil
}

// Close implements Backend.
func (d *Dir) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	w, cancel := d.w, d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if w != nil {
		return w.Close()
	}
	return nil
}

// startWatcher primes the known snapshot so the first external change has
// a meaningful Old value, then begins watching. Caller holds d.mu.
func (d *Dir) startWatcher() error {
	keys, err := d.listKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if data, ok, err := d.read(k); err == nil {
			d.remember(k, data, ok)
		}
	}

	w, err := watcher.New(d.root, d.onFileChanged, watcher.WithFilter(ValidKey))
	if err != nil {
		return fmt.Errorf("watch %s: %w", d.root, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.w, d.cancel = w, cancel
	go w.Run(ctx, func(err error) {
		d.log.Warn("data directory watcher error", "dir", d.root, "error", err)
	})
	return nil
}

func (d *Dir) onFileChanged(key string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	data, ok, err := d.read(key)
	if err != nil {
		d.mu.Unlock()
		d.log.Warn("read changed value", "key", key, "error", err)
		return
	}
	old, had := d.known[key]
	if had == ok && bytes.Equal(old, data) {
		d.mu.Unlock()
		return
	}
	d.remember(key, data, ok)
	fns := d.watch.snapshot()
	d.mu.Unlock()

	c := Change{Key: key, New: data}
	if had {
		c.Old = old
	}
	notify(fns, c)
}

func (d *Dir) remember(key string, data []byte, ok bool) {
	if !ok {
		delete(d.known, key)
		return
	}
	d.known[key] = cloneBytes(data)
}

func (d *Dir) read(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(d.path(key)) //nolint:gosec // key validated by ValidKey
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

func (d *Dir) listKeys() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.root, err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !ValidKey(e.Name()) {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

func (d *Dir) totalSize() (int64, error) {
	keys, err := d.listKeys()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, k := range keys {
		info, err := os.Stat(d.path(k))
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// writeAtomic writes data to a hidden temp file next to path and renames it
// into place, so readers never observe a partial value.
func writeAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
