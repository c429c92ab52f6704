// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler is a single time-worker goroutine driving a deadline-ordered
// priority queue of scheduled dispatch slots.

package concurrency

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// scheduledSlotState is a ScheduledSlot's lifecycle stage.
type scheduledSlotState int

const (
	slotInitializing scheduledSlotState = iota
	slotQueued
	slotFired
)

// ScheduledSlot is a dispatcher bound to a deadline; it runs at most once,
// at or after that deadline. Dispatching a second time before it fires
// replaces the pending function (this is how cancellation-by-overwrite
// works: assign an empty function).
type ScheduledSlot struct {
	mu    sync.Mutex
	state scheduledSlotState
	fn    func()
	tm    Timeout
	seq   uint64
	owner *Scheduler
}

// Dispatch records fn to run at the slot's deadline (first call), replaces
// the pending function (subsequent calls while still queued), or refuses
// (the slot already fired).
func (s *ScheduledSlot) Dispatch(fn func()) bool {
	s.mu.Lock()
	switch s.state {
	case slotInitializing:
		s.fn = fn
		s.state = slotQueued
		s.mu.Unlock()
		s.owner.enqueue(s)
		return true
	case slotQueued:
		s.fn = fn
		s.mu.Unlock()
		return true
	default:
		s.mu.Unlock()
		return false
	}
}

func (s *ScheduledSlot) deadline() Timeout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tm
}

// fire runs the slot's function (if still queued) and marks it fired.
// Invoked by the scheduler's worker, outside any scheduler lock.
func (s *ScheduledSlot) fire() {
	s.mu.Lock()
	if s.state != slotQueued {
		s.mu.Unlock()
		return
	}
	fn := s.fn
	s.state = slotFired
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// cancel marks the slot fired without running it, used by Scheduler.Close.
func (s *ScheduledSlot) cancel() {
	s.mu.Lock()
	s.state = slotFired
	s.mu.Unlock()
}

// slotHeap is a container/heap.Interface over scheduled slots ordered by
// deadline, with insertion sequence as the tie-breaker.
type slotHeap []*ScheduledSlot

func (h slotHeap) Len() int { return len(h) }
func (h slotHeap) Less(i, j int) bool {
	c := h[i].tm.Compare(h[j].tm)
	if c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}
func (h slotHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *slotHeap) Push(x any)   { *h = append(*h, x.(*ScheduledSlot)) }
func (h *slotHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scheduler owns one time-worker goroutine and a deadline-ordered heap of
// ScheduledSlots. The zero value is not usable; construct with
// NewScheduler.
type Scheduler struct {
	mu      sync.Mutex
	heap    slotHeap
	running bool
	alert   *Alert
	seq     uint64

	// Cache-line separation between the mutex-guarded fields above and the
	// atomic closed flag below, mirroring lock_free_queue.go's padding; the
	// pad is sized by golang.org/x/sys/cpu's per-architecture cache-line
	// constant instead of a constant written here.
	_ cpu.CacheLinePad

	closed atomic.Bool
}

// NewScheduler constructs an idle Scheduler; its worker goroutine starts
// lazily when the first slot is dispatched (ScheduledSlot.Dispatch).
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

var (
	defaultSchedulerOnce sync.Once
	defaultSchedulerInst *Scheduler
)

// DefaultScheduler returns the process-wide Scheduler singleton, creating
// it lazily on first use.
func DefaultScheduler() *Scheduler {
	defaultSchedulerOnce.Do(func() {
		defaultSchedulerInst = NewScheduler()
	})
	return defaultSchedulerInst
}

// Schedule returns a slot bound to deadline tm: the function passed to its
// Dispatch call runs once tm expires, on the scheduler's own worker
// goroutine. ScheduledSlot satisfies DispatchFn.
func (s *Scheduler) Schedule(tm Timeout) *ScheduledSlot {
	s.mu.Lock()
	s.seq++
	slot := &ScheduledSlot{tm: tm, seq: s.seq, owner: s}
	s.mu.Unlock()
	return slot
}

func (s *Scheduler) enqueue(slot *ScheduledSlot) {
	s.mu.Lock()
	heap.Push(&s.heap, slot)
	startWorker := !s.running
	if startWorker {
		s.running = true
		s.alert = NewAlert()
	}
	alert := s.alert
	s.mu.Unlock()

	if startWorker {
		go s.runWorker()
	} else {
		alert.Wake()
	}
}

func (s *Scheduler) runWorker() {
	for {
		s.mu.Lock()
		if s.closed.Load() || s.heap.Len() == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		top := s.heap[0]
		tm := top.deadline()
		if tm.Expired() {
			heap.Pop(&s.heap)
			s.mu.Unlock()
			top.fire()
			continue
		}
		alert := s.alert
		s.mu.Unlock()

		alert.Sleep(tm, nil)
	}
}

// Close cancels every pending, not-yet-fired slot (without running them)
// and lets the worker goroutine exit. Intended for deterministic teardown
// of the process-wide DefaultScheduler() singleton in tests; a Scheduler used this way
// must not be reused afterward.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed.Store(true)
	for s.heap.Len() > 0 {
		slot := heap.Pop(&s.heap).(*ScheduledSlot)
		slot.cancel()
	}
	alert := s.alert
	s.mu.Unlock()
	if alert != nil {
		alert.Wake()
	}
}
