package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastMutex_TryLock(t *testing.T) {
	var m FastMutex
	require.True(t, m.TryLock())
	assert.False(t, m.TryLock())
	m.Unlock()
	assert.True(t, m.TryLock())
}

func TestFastMutex_MutualExclusion(t *testing.T) {
	var m FastMutex
	var counter int
	var wg sync.WaitGroup
	const goroutines = 4
	const perGoroutine = 100

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines*perGoroutine, counter)
}

func TestFastMutex_Async(t *testing.T) {
	var m FastMutex
	a := m.Async()
	a.Wait()
	m.Unlock()

	b := m.Async()
	b.Wait()
	m.Unlock()
}

func TestFastMutex_QueuedHandoff(t *testing.T) {
	var m FastMutex
	m.Lock()

	unlocked := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		m.Unlock()
	}()

	go func() {
		close(unlocked)
	}()
	<-unlocked
	m.Unlock()
	<-acquired
}
