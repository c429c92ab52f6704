// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LockFreeQueue is the bounded MPMC cell/sequence queue backing each
// WorkExecutor worker's local task queue (executor.go): one instance per
// worker, sized to absorb bursts of Submit calls landing on that worker's
// index before falling back to WorkExecutor's shared buffered channel.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// LockFreeQueue is a bounded MPMC queue using per-cell sequence numbers to
// detect and resolve producer/consumer races, after the pattern described
// by Dmitry Vyukov.
type LockFreeQueue[T any] struct {
	head  uint64
	_     cpu.CacheLinePad
	tail  uint64
	_     cpu.CacheLinePad
	mask  uint64
	cells []cell[T]
}

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// NewLockFreeQueue creates a new queue with capacity rounded to power of two.
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	if capacity < 2 {
		capacity = 2
	}
	// Round up to power of 2
	size := 1
	for size < capacity {
		size <<= 1
	}

	q := &LockFreeQueue[T]{
		mask:  uint64(size - 1),
		cells: make([]cell[T], size),
	}

	for i := range q.cells {
		q.cells[i].sequence.Store(uint64(i))
	}
	return q
}

// Enqueue adds val; returns false if full.
func (q *LockFreeQueue[T]) Enqueue(val T) bool {
	_, ok := q.enqueueCell(val)
	return ok
}

func (q *LockFreeQueue[T]) enqueueCell(val T) (*cell[T], bool) {
	for {
		tail := atomic.LoadUint64(&q.tail)
		index := tail & q.mask
		c := &q.cells[index]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(tail)

		if dif == 0 {
			if atomic.CompareAndSwapUint64(&q.tail, tail, tail+1) {
				c.data = val
				c.sequence.Store(tail + 1)
				return c, true
			}
		} else if dif < 0 {
			return nil, false // full
		}
		// else: tail moved under us, retry with the fresh value
	}
}

// Dequeue removes and returns an item; ok is false if empty.
func (q *LockFreeQueue[T]) Dequeue() (item T, ok bool) {
	for {
		head := atomic.LoadUint64(&q.head)
		index := head & q.mask
		c := &q.cells[index]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(head+1)

		if dif == 0 {
			if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
				item = c.data
				c.sequence.Store(head + q.mask + 1)
				return item, true
			}
		} else if dif < 0 {
			var zero T
			return zero, false // empty
		}
		// else: head moved under us, retry with the fresh value
	}
}

// Len returns an instantaneous, possibly-stale count of queued items, for
// diagnostics only; WorkExecutor does not call it.
func (q *LockFreeQueue[T]) Len() int {
	tail := atomic.LoadUint64(&q.tail)
	head := atomic.LoadUint64(&q.head)
	if tail < head {
		return 0
	}
	return int(tail - head)
}
