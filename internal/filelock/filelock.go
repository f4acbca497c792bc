// Package filelock provides advisory file locks so that several todu
// processes sharing one data directory never interleave their writes.
package filelock

import "os"

const lockFileMode = 0o600

// Lock acquires an exclusive advisory lock on the file at path, creating it
// if needed. It blocks while any other process holds the lock, shared or
// exclusive. The returned function releases the lock.
func Lock(path string) (unlock func() error, err error) {
	return acquire(path, true)
}

// RLock acquires a shared advisory lock on the file at path. Any number of
// readers may hold it at once; it excludes holders of Lock.
func RLock(path string) (unlock func() error, err error) {
	return acquire(path, false)
}

func acquire(path string, exclusive bool) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode) //nolint:gosec // lock file lives in the data directory
	if err != nil {
		return nil, err
	}
	if err := lockFile(f, exclusive); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() error {
		unlockErr := unlockFile(f)
		if closeErr := f.Close(); unlockErr == nil {
			return closeErr
		}
		return unlockErr
	}, nil
}

// With runs fn while holding the exclusive lock at path. fn's error takes
// precedence over an unlock error.
func With(path string, fn func() error) error {
	return run(Lock, path, fn)
}

// WithShared runs fn while holding the shared lock at path.
func WithShared(path string, fn func() error) error {
	return run(RLock, path, fn)
}

func run(acquire func(string) (func() error, error), path string, fn func() error) error {
	unlock, err := acquire(path)
	if err != nil {
		return err
	}
	fnErr := fn()
	unlockErr := unlock()
	if fnErr != nil {
		return fnErr
	}
	return unlockErr
}
