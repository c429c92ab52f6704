package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLockFreeQueue_ProducersConsumersChecksum exercises the queue the way
// WorkExecutor actually does: many goroutines enqueuing TaskFunc-shaped
// work, many goroutines dequeuing and running it, with a published
// checksum on both sides standing in for "every task actually ran".
func TestLockFreeQueue_ProducersConsumersChecksum(t *testing.T) {
	q := NewLockFreeQueue[int](256)
	const producers = 8
	const consumers = 8
	const itemsPerProducer = 5000
	totalItems := int64(producers * itemsPerProducer)

	var sentSum, receivedSum, receivedCount int64
	var producerWg sync.WaitGroup

	for p := 0; p < producers; p++ {
		producerWg.Add(1)
		go func(pid int) {
			defer producerWg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				val := pid*itemsPerProducer + i + 1
				for !q.Enqueue(val) {
					runtime.Gosched()
				}
				atomic.AddInt64(&sentSum, int64(val))
			}
		}(p)
	}

	var consumerWg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			for {
				if val, ok := q.Dequeue(); ok {
					atomic.AddInt64(&receivedSum, int64(val))
					if atomic.AddInt64(&receivedCount, 1) == totalItems {
						return
					}
				} else if atomic.LoadInt64(&receivedCount) >= totalItems {
					return
				} else {
					runtime.Gosched()
				}
			}
		}()
	}

	producerWg.Wait()

	done := make(chan struct{})
	go func() {
		consumerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, sentSum, receivedSum)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for consumers: %d/%d delivered", atomic.LoadInt64(&receivedCount), totalItems)
	}
}

func TestLockFreeQueue_FullReturnsFalse(t *testing.T) {
	q := NewLockFreeQueue[int](4)
	for i := 0; i < 4; i++ {
		assert.True(t, q.Enqueue(i))
	}
	assert.False(t, q.Enqueue(99))

	v, ok := q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.True(t, q.Enqueue(99))
}

func TestLockFreeQueue_EmptyDequeueFalse(t *testing.T) {
	q := NewLockFreeQueue[string](4)
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestLockFreeQueue_LenTracksOccupancy(t *testing.T) {
	q := NewLockFreeQueue[int](8)
	assert.Equal(t, 0, q.Len())
	q.Enqueue(1)
	q.Enqueue(2)
	assert.Equal(t, 2, q.Len())
	q.Dequeue()
	assert.Equal(t, 1, q.Len())
}
