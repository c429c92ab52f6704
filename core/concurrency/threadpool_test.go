package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThreadPool_RunsSubmittedTasks(t *testing.T) {
	p := NewThreadPoolConfig().SetMaxThreads(4).SetMaxQueue(16).Start()
	var n int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Dispatch(func() {
			defer wg.Done()
			atomic.AddInt32(&n, 1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(50), n)
}

func TestThreadPool_BlocksOnFullQueueThenAdmits(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	p := NewThreadPoolConfig().SetMaxThreads(1).SetMaxQueue(1).Start()
	p.Dispatch(func() { close(started); <-block })
	<-started             // the worker has popped the blocker off the queue
	p.Dispatch(func() {}) // fills the queue slot

	accepted := make(chan bool, 1)
	go func() {
		accepted <- p.Dispatch(func() {})
	}()

	select {
	case <-accepted:
		t.Fatal("second dispatch should have blocked on the full queue")
	case <-time.After(20 * time.Millisecond):
	}

	close(block)
	assert.True(t, <-accepted)
}

func TestThreadPool_QueueTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := NewThreadPoolConfig().SetMaxThreads(1).SetMaxQueue(1).SetQueueTimeout(10).Start()
	p.Dispatch(func() { <-block })
	p.Dispatch(func() {}) // fills the queue slot
	ok := p.Dispatch(func() {})
	assert.False(t, ok)
}

func TestThreadPool_FinishDrainsQueue(t *testing.T) {
	p := NewThreadPoolConfig().SetMaxThreads(2).SetMaxQueue(8).Start()
	var ran int32
	for i := 0; i < 5; i++ {
		p.Dispatch(func() { atomic.AddInt32(&ran, 1) })
	}
	p.Finish()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(5), ran)
	assert.False(t, p.Dispatch(func() {}))
}

func TestThreadPool_ClearQueueCmdDropsPendingTasks(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	p := NewThreadPoolConfig().SetMaxThreads(1).SetMaxQueue(8).Start()
	p.Dispatch(func() { close(started); <-block }) // occupies the one worker
	<-started                                      // and is no longer queued

	var ran int32
	for i := 0; i < 5; i++ {
		p.Dispatch(func() { atomic.AddInt32(&ran, 1) })
	}
	p.mu.Lock()
	queued := p.tasks.Length()
	p.mu.Unlock()
	assert.Equal(t, 5, queued)

	assert.True(t, p.Dispatch(ClearQueueCmd))
	p.mu.Lock()
	queued = p.tasks.Length()
	p.mu.Unlock()
	assert.Equal(t, 0, queued)

	close(block)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestThreadPool_Yield(t *testing.T) {
	p := NewThreadPoolConfig().SetMaxThreads(0).Start()
	var ran int32
	p.mu.Lock()
	p.tasks.Add(func() { atomic.AddInt32(&ran, 1) })
	p.mu.Unlock()
	ok := p.Yield()
	assert.True(t, ok)
	assert.Equal(t, int32(1), ran)
}

func TestNewDispatchThread_SerialFIFO(t *testing.T) {
	d := NewDispatchThread()
	var order []int
	var mu sync.Mutex
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		d.Dispatch(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 9 {
				close(done)
			}
		})
	}
	<-done
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}
