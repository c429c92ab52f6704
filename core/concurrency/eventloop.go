// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BatchConsumer is a generic, batched single-loop consumer with dynamic
// handler registration and adaptive backoff: it drains up to batchSize
// items per cycle, handing each batch to every registered handler, and
// backs off exponentially (capped) when the inbox runs dry instead of
// spinning.

package concurrency

import (
	"sync"
	"sync/atomic"
	"time"
)

// BatchHandler processes one item drained from a BatchConsumer's inbox.
type BatchHandler[T any] interface {
	HandleItem(item T)
}

// BatchConsumer runs a single background goroutine draining its inbox in
// batches and fanning each item out to every registered handler. The zero
// value is not usable; construct with NewBatchConsumer.
//
// By default each batch is handled inline on the consumer's own goroutine.
// SetExecutor hands that fan-out to a WorkExecutor instead: every
// item/handler pair becomes one submitted task, so a slow handler no
// longer holds up the rest of the batch. The next drain cycle still starts
// only after every task of the current batch has finished.
type BatchConsumer[T any] struct {
	handlers     atomic.Value // []BatchHandler[T]
	handlersMu   sync.Mutex
	inbox        chan T
	batchSize    int
	ringCapacity int
	quitCh       chan struct{}
	doneCh       chan struct{}
	running      atomic.Bool

	executorMu sync.Mutex
	executor   *WorkExecutor
}

// NewBatchConsumer constructs a consumer draining at most batchSize items
// per cycle from an inbox buffered to ringCapacity.
func NewBatchConsumer[T any](batchSize, ringCapacity int) *BatchConsumer[T] {
	bc := &BatchConsumer[T]{
		inbox:        make(chan T, ringCapacity),
		batchSize:    batchSize,
		ringCapacity: ringCapacity,
		quitCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	bc.handlers.Store([]BatchHandler[T]{})
	return bc
}

// RegisterHandler adds a new handler, copy-on-write.
func (bc *BatchConsumer[T]) RegisterHandler(h BatchHandler[T]) {
	bc.handlersMu.Lock()
	defer bc.handlersMu.Unlock()
	old := bc.handlers.Load().([]BatchHandler[T])
	next := make([]BatchHandler[T], len(old)+1)
	copy(next, old)
	next[len(old)] = h
	bc.handlers.Store(next)
}

// SetExecutor installs e as the fan-out backend for HandleItem calls: once
// set, every (item, handler) pair is submitted as a task to e instead of
// running inline on the consumer's own goroutine. Passing nil restores
// inline handling. Returns bc for chaining, matching the fluent builder
// style used by ThreadPoolConfig.
func (bc *BatchConsumer[T]) SetExecutor(e *WorkExecutor) *BatchConsumer[T] {
	bc.executorMu.Lock()
	bc.executor = e
	bc.executorMu.Unlock()
	return bc
}

// UnregisterHandler removes h if present, copy-on-write.
func (bc *BatchConsumer[T]) UnregisterHandler(h BatchHandler[T]) {
	bc.handlersMu.Lock()
	defer bc.handlersMu.Unlock()
	old := bc.handlers.Load().([]BatchHandler[T])
	next := make([]BatchHandler[T], 0, len(old))
	for _, existing := range old {
		if existing != h {
			next = append(next, existing)
		}
	}
	bc.handlers.Store(next)
}

// Run drains the inbox until Stop is called. Intended to be launched in its
// own goroutine; a second concurrent call is a no-op.
func (bc *BatchConsumer[T]) Run() {
	if !bc.running.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		close(bc.doneCh)
		bc.running.Store(false)
	}()

	batch := make([]T, 0, bc.batchSize)
	backoffNs := int64(1)
	const maxBackoffNs = int64(1_000_000)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	for {
	drainLoop:
		for len(batch) < bc.batchSize {
			select {
			case item := <-bc.inbox:
				batch = append(batch, item)
			default:
				break drainLoop
			}
		}

		if len(batch) == 0 {
			timer.Reset(time.Duration(backoffNs) * time.Nanosecond)

			select {
			case <-bc.quitCh:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				return
			case item := <-bc.inbox:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				batch = append(batch, item)
				backoffNs = 1
			case <-timer.C:
				backoffNs *= 2
				if backoffNs > maxBackoffNs {
					backoffNs = maxBackoffNs
				}
			}
		} else {
			handlers := bc.handlers.Load().([]BatchHandler[T])
			bc.executorMu.Lock()
			executor := bc.executor
			bc.executorMu.Unlock()

			if executor == nil {
				for _, item := range batch {
					for _, h := range handlers {
						h.HandleItem(item)
					}
				}
			} else {
				var wg sync.WaitGroup
				for _, item := range batch {
					item := item
					for _, h := range handlers {
						h := h
						wg.Add(1)
						if err := executor.Submit(func() {
							defer wg.Done()
							h.HandleItem(item)
						}); err != nil {
							wg.Done()
							h.HandleItem(item)
						}
					}
				}
				wg.Wait()
			}
			batch = batch[:0]
			backoffNs = 1
		}
	}
}

// Pending returns the approximate number of items buffered in the inbox.
func (bc *BatchConsumer[T]) Pending() int {
	return len(bc.inbox)
}

// Push adds an item to the inbox; non-blocking, returns false if full.
func (bc *BatchConsumer[T]) Push(item T) bool {
	select {
	case bc.inbox <- item:
		return true
	default:
		return false
	}
}

// Stop signals Run to exit and waits for it to do so, if it was running.
func (bc *BatchConsumer[T]) Stop() {
	select {
	case <-bc.quitCh:
	default:
		close(bc.quitCh)
	}
	if bc.running.Load() {
		<-bc.doneCh
	}
}
