package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	count atomic.Int64
}

func (h *countingHandler) HandleItem(int) { h.count.Add(1) }

func TestBatchConsumer_InlineDeliversAllItems(t *testing.T) {
	bc := NewBatchConsumer[int](16, 64)
	h := &countingHandler{}
	bc.RegisterHandler(h)

	go bc.Run()
	defer bc.Stop()

	const n = 500
	for i := 0; i < n; i++ {
		for !bc.Push(i) {
			time.Sleep(time.Microsecond)
		}
	}

	require.Eventually(t, func() bool { return h.count.Load() == n }, time.Second, time.Millisecond)
}

func TestBatchConsumer_UnregisterStopsDelivery(t *testing.T) {
	bc := NewBatchConsumer[int](16, 64)
	h := &countingHandler{}
	bc.RegisterHandler(h)
	go bc.Run()
	defer bc.Stop()

	bc.Push(1)
	require.Eventually(t, func() bool { return h.count.Load() == 1 }, time.Second, time.Millisecond)

	bc.UnregisterHandler(h)
	bc.Push(2)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), h.count.Load())
}

// TestBatchConsumer_SetExecutorFansOutConcurrently checks that once a
// WorkExecutor backs the consumer, handler invocations for one batch run
// concurrently with each other instead of serially on the drain goroutine.
func TestBatchConsumer_SetExecutorFansOutConcurrently(t *testing.T) {
	exec := NewWorkExecutor(4, -1)
	defer exec.Close()

	bc := NewBatchConsumer[int](32, 128)
	bc.SetExecutor(exec)

	var mu sync.Mutex
	var inFlight, maxInFlight int
	release := make(chan struct{})
	handler := batchHandlerFunc[int](func(int) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		<-release

		mu.Lock()
		inFlight--
		mu.Unlock()
	})
	bc.RegisterHandler(handler)

	go bc.Run()
	defer bc.Stop()

	for i := 0; i < 8; i++ {
		bc.Push(i)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return maxInFlight > 1
	}, time.Second, time.Millisecond)

	close(release)
}

func TestBatchConsumer_PendingAndStop(t *testing.T) {
	bc := NewBatchConsumer[int](4, 16)
	assert.Equal(t, 0, bc.Pending())
	bc.Push(1)
	bc.Push(2)
	assert.Equal(t, 2, bc.Pending())
	go bc.Run()
	bc.Stop()
}

// batchHandlerFunc adapts a plain func into a BatchHandler for tests.
type batchHandlerFunc[T any] func(T)

func (f batchHandlerFunc[T]) HandleItem(item T) { f(item) }
