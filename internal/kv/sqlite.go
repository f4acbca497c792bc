package kv

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteSchemaVersion = 1

	// DefaultPollInterval is how often a watching SQLite backend checks
	// whether another connection committed.
	DefaultPollInterval = 250 * time.Millisecond
)

// SQLite stores values in a single table of a SQLite database file. Other
// processes opening the same file see each other's writes; Watch detects
// them by polling PRAGMA data_version.
type SQLite struct {
	db    *sql.DB
	quota int64
	log   *slog.Logger
	poll  time.Duration

	mu          sync.Mutex
	snapshot    map[string][]byte
	dataVersion int64
	watch       watchers
	stopPoll    chan struct{}
	pollDone    chan struct{}
	closed      bool
}

var _ Backend = (*SQLite)(nil)

// SQLiteOption configures a SQLite backend.
type SQLiteOption func(*SQLite)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) SQLiteOption {
	return func(s *SQLite) { s.poll = d }
}

// WithSQLiteLogger sets the logger used for polling errors.
func WithSQLiteLogger(l *slog.Logger) SQLiteOption {
	return func(s *SQLite) { s.log = l }
}

// OpenSQLite opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(dbPath string, quota int64, opts ...SQLiteOption) (*SQLite, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), dirMode); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps data_version meaningful: it only moves when
	// some other connection commits.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &SQLite{
		db:    db,
		quota: quota,
		log:   slog.Default(),
		poll:  DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= sqliteSchemaVersion {
		return nil
	}

	if version < 1 {
		const ddl = `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);`
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion))
	return err
}

// Get implements Backend.
func (s *SQLite) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Backend.
func (s *SQLite) Set(key string, value []byte) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if value == nil {
		value = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if s.quota > 0 {
		var total int64
		if err := tx.QueryRow("SELECT COALESCE(SUM(length(value)), 0) FROM kv").Scan(&total); err != nil {
			return fmt.Errorf("measure usage: %w", err)
		}
		var oldLen int
		err := tx.QueryRow("SELECT length(value) FROM kv WHERE key = ?", key).Scan(&oldLen)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("measure %s: %w", key, err)
		}
		if err := checkQuota(s.quota, total, oldLen, len(value)); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if s.snapshot != nil {
		s.snapshot[key] = cloneBytes(value)
	}
	return nil
}

// Remove implements Backend.
func (s *SQLite) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	if s.snapshot != nil {
		delete(s.snapshot, key)
	}
	return nil
}

// Keys implements Backend.
func (s *SQLite) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	rows, err := s.db.Query("SELECT key FROM kv")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Watch implements Backend. Polling starts with the first registration and
// callbacks run on the polling goroutine.
func (s *SQLite) Watch(fn func(Change)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.stopPoll == nil {
		if err := s.startPolling(); err != nil {
			return nil, err
		}
	}
	id := s.watch.add(fn)
	return func() {
		s.mu.Lock()
		s.watch.remove(id)
		s.mu.Unlock()
	}, nil
}

// Close implements Backend.
func (s *SQLite) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop, done := s.stopPoll, s.pollDone
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return s.db.Close()
}

// startPolling records the current contents and data_version. Caller holds
// s.mu.
func (s *SQLite) startPolling() error {
	snap, err := s.loadAll()
	if err != nil {
		return err
	}
	v, err := s.readDataVersion()
	if err != nil {
		return err
	}
	s.snapshot, s.dataVersion = snap, v
	s.stopPoll = make(chan struct{})
	s.pollDone = make(chan struct{})
	go s.pollLoop(s.stopPoll, s.pollDone)
	return nil
}

func (s *SQLite) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			changes, fns, err := s.checkExternal()
			if err != nil {
				s.log.Warn("poll database for changes", "error", err)
				continue
			}
			for _, c := range changes {
				notify(fns, c)
			}
		}
	}
}

// checkExternal diffs the table against the snapshot when another
// connection has committed since the last check.
func (s *SQLite) checkExternal() ([]Change, []func(Change), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, nil
	}
	v, err := s.readDataVersion()
	if err != nil {
		return nil, nil, err
	}
	if v == s.dataVersion {
		return nil, nil, nil
	}
	s.dataVersion = v

	current, err := s.loadAll()
	if err != nil {
		return nil, nil, err
	}
	changes := diffSnapshots(s.snapshot, current)
	s.snapshot = current
	return changes, s.watch.snapshot(), nil
}

func (s *SQLite) readDataVersion() (int64, error) {
	var v int64
	if err := s.db.QueryRow("PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return v, nil
}

func (s *SQLite) loadAll() (map[string][]byte, error) {
	rows, err := s.db.Query("SELECT key, value FROM kv")
	if err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func diffSnapshots(before, after map[string][]byte) []Change {
	var changes []Change
	for k, nv := range after {
		ov, ok := before[k]
		if ok && bytes.Equal(ov, nv) {
			continue
		}
		c := Change{Key: k, New: nv}
		if ok {
			c.Old = ov
		}
		changes = append(changes, c)
	}
	for k, ov := range before {
		if _, ok := after[k]; !ok {
			changes = append(changes, Change{Key: k, Old: ov})
		}
	}
	return changes
}
