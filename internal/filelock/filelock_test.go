package filelock

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	unlock, err := Lock(path)
	require.NoError(t, err)
	require.NoError(t, unlock())

	unlock, err = Lock(path)
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestWithSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := With(path, func() error {
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestWithReturnsFnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	boom := errors.New("boom")

	err := With(path, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	// Lock must have been released.
	unlock, err := Lock(path)
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestSharedLocksCoexist(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	first, err := RLock(path)
	require.NoError(t, err)
	second, err := RLock(path)
	require.NoError(t, err)
	require.NoError(t, first())
	require.NoError(t, second())
}

func TestSharedWaitsForExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	unlock, err := Lock(path)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		_ = WithShared(path, func() error {
			close(acquired)
			return nil
		})
	}()

	select {
	case <-acquired:
		t.Fatal("shared lock acquired while exclusive lock held")
	case <-time.After(50 * time.Millisecond):
	}
	require.NoError(t, unlock())

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("shared lock never acquired")
	}
}
