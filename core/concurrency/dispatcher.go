// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher is a per-thread FIFO of deferred callables drained by its
// owning goroutine during SleepAndDispatch/HaltAndDispatch. Composition of
// dispatchers (the original design's `>>` operator family) is expressed as
// named functions/methods instead of operator overloading.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// DispatchFn is anything that accepts a deferred callable for later
// execution, reporting whether it was accepted.
type DispatchFn interface {
	Dispatch(fn func()) bool
}

// Dispatcher is the concrete per-thread callable queue.
type Dispatcher struct {
	mu     sync.Mutex
	tasks  *queue.Queue
	alert  *Alert
	opened bool
}

// NewDispatcher constructs an open Dispatcher bound to the given mailbox.
func NewDispatcher(alert *Alert) *Dispatcher {
	return &Dispatcher{tasks: queue.New(), alert: alert, opened: true}
}

var (
	curDispatcherMu sync.Mutex
	curDispatcherTb = map[uint64]*Dispatcher{}
)

// CurrentDispatcher returns the calling goroutine's own Dispatcher, lazily
// creating one bound to ThisThread() on first use. Like ThisThread, this is
// a process-wide per-goroutine singleton with no exit hook in Go; callers
// managing many short-lived goroutines should construct their own
// Dispatcher with NewDispatcher instead.
func CurrentDispatcher() *Dispatcher {
	id := goroutineID()
	curDispatcherMu.Lock()
	defer curDispatcherMu.Unlock()
	d, ok := curDispatcherTb[id]
	if !ok {
		d = NewDispatcher(ThisThread())
		curDispatcherTb[id] = d
	}
	return d
}

// Dispatch pushes fn for later execution on the owning thread. Returns
// false if the dispatcher is closed. If the queue was empty, the owning
// mailbox is woken so it leaves sleep and drains.
func (d *Dispatcher) Dispatch(fn func()) bool {
	d.mu.Lock()
	if !d.opened {
		d.mu.Unlock()
		return false
	}
	wasEmpty := d.tasks.Length() == 0
	d.tasks.Add(fn)
	d.mu.Unlock()
	if wasEmpty {
		d.alert.Wake()
	}
	return true
}

// SleepAndDispatch sleeps until woken or tm expires if the queue is empty
// (and does not sleep otherwise); either way it then pops and runs at most
// one queued callable (outside the lock), and reports whether the sleep
// timed out.
func (d *Dispatcher) SleepAndDispatch(tm Timeout) (expired bool) {
	d.mu.Lock()
	empty := d.tasks.Length() == 0
	d.mu.Unlock()
	if empty {
		expired = d.alert.Sleep(tm, nil)
	}
	d.runOne()
	return expired
}

// HaltAndDispatch is SleepAndDispatch with an infinite timeout.
func (d *Dispatcher) HaltAndDispatch() {
	d.SleepAndDispatch(Never())
}

// runOne pops and executes a single queued task, if any, without holding
// the dispatcher's lock while it runs.
func (d *Dispatcher) runOne() {
	d.mu.Lock()
	if d.tasks.Length() == 0 {
		d.mu.Unlock()
		return
	}
	fn := d.tasks.Remove().(func())
	d.mu.Unlock()
	fn()
}

// Close marks the dispatcher closed and drops any pending callables.
// Subsequent Dispatch calls return false. Call this when the owning
// goroutine is about to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.opened = false
	for d.tasks.Length() > 0 {
		d.tasks.Remove()
	}
	d.mu.Unlock()
}

// Pending returns the number of callables currently queued.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tasks.Length()
}

// threadDispatcher implements DispatchFn by starting a fresh goroutine per
// submitted task — this is the `dispatcher >> newThread` short-circuit.
type threadDispatcher struct{}

func (threadDispatcher) Dispatch(fn func()) bool {
	go fn()
	return true
}

// NewThreadDispatcher returns the DispatchFn that always spawns a fresh
// goroutine for every submitted task, bypassing per-thread queueing
// entirely.
func NewThreadDispatcher() DispatchFn {
	return threadDispatcher{}
}

// ViaAlert is the `dispatcher >> alert` combinator: it returns an AlertFn
// that, when woken with a reason, dispatches a task on d which invokes
// target.WakeReason(reason).
func ViaAlert(d DispatchFn, target AlertFn) AlertFn {
	return CallFn(func(reason int) {
		d.Dispatch(func() {
			target.WakeReason(reason)
		})
	})
}

// combinedDispatcher implements `dispatcher1 >> dispatcher2`.
type combinedDispatcher struct {
	first  DispatchFn
	second DispatchFn
}

// CombineDispatchers returns a DispatchFn whose Dispatch submits to first a
// task that forwards fn to second; if second refuses (closed), fn instead
// runs inline in first's context.
func CombineDispatchers(first, second DispatchFn) DispatchFn {
	return combinedDispatcher{first: first, second: second}
}

func (c combinedDispatcher) Dispatch(fn func()) bool {
	return c.first.Dispatch(func() {
		if !c.second.Dispatch(fn) {
			fn()
		}
	})
}

// ViaThisThread is the `dispatcher >> thisThread` combinator: it routes
// through d back to the calling goroutine's own Dispatcher.
func ViaThisThread(d DispatchFn) DispatchFn {
	return CombineDispatchers(d, CurrentDispatcher())
}
