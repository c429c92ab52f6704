// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Gate and CountGate are binary and counting latches built over WaitQueue.

package concurrency

import "sync"

// Gate is a binary latch: waiters queue while closed and are released in a
// batch when it opens. Subscribing while already open alerts immediately.
type Gate struct {
	mu     sync.Mutex
	opened bool
	queue  *WaitQueue
}

// NewGate constructs a Gate, closed unless initiallyOpen is set.
func NewGate(initiallyOpen bool) *Gate {
	return &Gate{opened: initiallyOpen, queue: NewWaitQueue(FIFO)}
}

// Open sets the gate opened and wakes every current waiter.
func (g *Gate) Open() {
	g.mu.Lock()
	g.opened = true
	g.queue.AlertAll()
	g.mu.Unlock()
}

// Close sets the gate closed. Existing waiters already alerted are
// unaffected; new subscriptions will queue.
func (g *Gate) Close() {
	g.mu.Lock()
	g.opened = false
	g.mu.Unlock()
}

// Pulse wakes every current waiter without changing the opened state.
func (g *Gate) Pulse() {
	g.mu.Lock()
	g.queue.AlertAll()
	g.mu.Unlock()
}

// SetState opens or closes the gate per open.
func (g *Gate) SetState(open bool) {
	if open {
		g.Open()
	} else {
		g.Close()
	}
}

// IsOpen reports the current state.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened
}

// Wait blocks the calling goroutine until the gate is open (or becomes
// open), or tm expires.
func (g *Gate) Wait(tm Timeout) (expired bool) {
	t := NewTicket(ThisThread())
	g.mu.Lock()
	g.queue.Subscribe(t, g.opened)
	g.mu.Unlock()
	expired = Wait(t, tm)
	if expired {
		g.mu.Lock()
		g.queue.SignOff(t)
		g.mu.Unlock()
	}
	return expired
}

// CountGate releases all waiters once its counter reaches zero, and stays
// open (future Dec/subscriptions alert immediately) from then on, until
// reset via SetCount.
type CountGate struct {
	mu    sync.Mutex
	count uint64
	queue *WaitQueue
}

// NewCountGate constructs a CountGate with the given initial count.
func NewCountGate(n uint64) *CountGate {
	return &CountGate{count: n, queue: NewWaitQueue(FIFO)}
}

// Dec decrements the counter once (clamped at zero — see DESIGN.md for the
// underflow decision) and, iff the counter reaches zero, wakes every
// queued waiter.
func (g *CountGate) Dec() {
	g.mu.Lock()
	if g.count > 0 {
		g.count--
	}
	if g.count == 0 {
		g.queue.AlertAll()
	}
	g.mu.Unlock()
}

// SetCount resets the counter to n, waking every waiter immediately if n is
// zero.
func (g *CountGate) SetCount(n uint64) {
	g.mu.Lock()
	g.count = n
	if n == 0 {
		g.queue.AlertAll()
	}
	g.mu.Unlock()
}

// Count returns the current counter value.
func (g *CountGate) Count() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Wait blocks until the counter reaches zero or tm expires.
func (g *CountGate) Wait(tm Timeout) (expired bool) {
	t := NewTicket(ThisThread())
	g.mu.Lock()
	g.queue.Subscribe(t, g.count == 0)
	g.mu.Unlock()
	expired = Wait(t, tm)
	if expired {
		g.mu.Lock()
		g.queue.SignOff(t)
		g.mu.Unlock()
	}
	return expired
}
