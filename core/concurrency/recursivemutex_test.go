package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveMutex_ReentrantLock(t *testing.T) {
	var m RecursiveMutex
	m.Lock()
	m.Lock()
	m.Lock()
	m.Unlock()
	m.Unlock()
	assert.True(t, m.TryLock())
	m.Unlock()
	m.Unlock()
}

func TestRecursiveMutex_TryLockFromOtherGoroutineFails(t *testing.T) {
	var m RecursiveMutex
	m.Lock()

	done := make(chan bool)
	go func() {
		done <- m.TryLock()
	}()
	require.False(t, <-done)
	m.Unlock()
}

func TestRecursiveMutex_SaveRestoreRecursion(t *testing.T) {
	var m RecursiveMutex
	m.Lock()
	m.Lock()
	m.Lock()

	n := m.UnlockSaveRecursion()
	assert.Equal(t, uint64(3), n)

	ok := m.LockRestoreRecursion(n, true)
	assert.True(t, ok)

	m.Unlock()
	m.Unlock()
	m.Unlock()
}
