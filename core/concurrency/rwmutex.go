// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RWMutex encodes reader/writer state in a single signed counter: positive
// means N shared holders, negative (always -1) means one exclusive holder,
// zero means free.

package concurrency

import "sync"

// RWMutex is a reader/writer lock over a FIFO WaitQueue of tagged tickets.
type RWMutex struct {
	mu      sync.Mutex
	readers int64
	queue   *WaitQueue
}

// NewRWMutex constructs a free RWMutex.
func NewRWMutex() *RWMutex {
	return &RWMutex{queue: NewWaitQueue(FIFO)}
}

// Lock acquires the mutex exclusively.
func (m *RWMutex) Lock(tm Timeout) (expired bool) {
	m.mu.Lock()
	if m.readers == 0 {
		m.readers = -1
		m.mu.Unlock()
		return false
	}
	t := NewTicket(ThisThread())
	m.queue.Add(t)
	m.mu.Unlock()
	return m.awaitTicket(t, tm, false)
}

// LockShared acquires the mutex for shared (reader) access. Subscription
// refuses the fast path whenever a writer sits at the head of the queue,
// even if the counter would otherwise allow an immediate grant — this
// closes the writer-starvation gap left open by only checking the counter.
func (m *RWMutex) LockShared(tm Timeout) (expired bool) {
	m.mu.Lock()
	headIsWriter := m.queue.Front() != nil && !m.queue.Front().Shared()
	if m.readers >= 0 && !headIsWriter {
		m.readers++
		m.mu.Unlock()
		return false
	}
	t := NewTicket(ThisThread())
	t.SetShared(true)
	m.queue.Add(t)
	m.mu.Unlock()
	return m.awaitTicket(t, tm, true)
}

func (m *RWMutex) awaitTicket(t *Ticket, tm Timeout, shared bool) (expired bool) {
	if !Wait(t, tm) {
		return false
	}
	m.mu.Lock()
	if m.queue.SignOff(t) {
		m.mu.Unlock()
		return true
	}
	// Alerted concurrently with the timeout: the ticket now owns a mode we
	// no longer want. Release it through the normal release path so the
	// invariant "an alerted ticket owns a permit" never leaks a hold.
	if shared {
		m.unlockSharedLocked()
	} else {
		m.unlockLocked()
	}
	m.mu.Unlock()
	return true
}

// Unlock releases exclusive ownership.
func (m *RWMutex) Unlock() {
	m.mu.Lock()
	m.unlockLocked()
	m.mu.Unlock()
}

// UnlockShared releases one shared hold.
func (m *RWMutex) UnlockShared() {
	m.mu.Lock()
	m.unlockSharedLocked()
	m.mu.Unlock()
}

func (m *RWMutex) unlockLocked() {
	m.readers = 0
	m.alertThreadsLocked()
}

func (m *RWMutex) unlockSharedLocked() {
	m.readers--
	m.alertThreadsLocked()
}

// alertThreadsLocked grants batches of queued readers, then at most one
// writer, stopping as soon as progress is no longer possible. Must be
// called with m.mu held.
func (m *RWMutex) alertThreadsLocked() {
	for {
		head := m.queue.Front()
		if head == nil {
			return
		}
		if head.Shared() {
			m.readers++
			m.queue.AlertOne()
			continue
		}
		if m.readers == 0 {
			m.readers = -1
			m.queue.AlertOne()
		}
		return
	}
}
