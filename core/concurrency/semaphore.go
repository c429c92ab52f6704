// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Semaphore is a counted-permit lock: Unlock either credits the counter or
// hands the permit directly to a waiting ticket, never both.

package concurrency

import "sync"

// Semaphore holds a pool of permits guarded by a FIFO WaitQueue.
type Semaphore struct {
	mu    sync.Mutex
	count uint64
	queue *WaitQueue
}

// NewSemaphore constructs a Semaphore with n initial permits.
func NewSemaphore(n uint64) *Semaphore {
	return &Semaphore{count: n, queue: NewWaitQueue(FIFO)}
}

// TryLock acquires a permit without blocking, reporting success.
func (s *Semaphore) TryLock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Lock acquires a permit, blocking until one is available or tm expires.
func (s *Semaphore) Lock(tm Timeout) (expired bool) {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return false
	}
	t := NewTicket(ThisThread())
	s.queue.Add(t)
	s.mu.Unlock()

	if !Wait(t, tm) {
		return false // woken: a permit was handed directly to this ticket
	}

	s.mu.Lock()
	removed := s.queue.SignOff(t)
	if removed {
		s.mu.Unlock()
		return true
	}
	// t was alerted concurrently with our timeout expiring: we now own a
	// permit we no longer want. Re-award it, exactly as Unlock would, to
	// preserve the invariant that a permit is never both credited and held.
	s.reawardLocked()
	s.mu.Unlock()
	return true
}

// Unlock releases one permit: it is handed directly to the head waiter if
// one is queued, otherwise credited to the counter.
func (s *Semaphore) Unlock() {
	s.mu.Lock()
	s.reawardLocked()
	s.mu.Unlock()
}

// reawardLocked must be called with s.mu held. It implements the "alert one,
// else count++" rule shared by Unlock and Lock's timeout-race path.
func (s *Semaphore) reawardLocked() {
	if s.queue.AlertOne() == nil {
		s.count++
	}
}

// SetCount resets the permit count to n, immediately handing out permits to
// up to n queued waiters (each hand-out decrements the effective count).
func (s *Semaphore) SetCount(n uint64) {
	s.mu.Lock()
	s.count = n
	for s.count > 0 {
		if s.queue.AlertOne() == nil {
			break
		}
		s.count--
	}
	s.mu.Unlock()
}

// Count returns the current permit count (not counting queued waiters).
func (s *Semaphore) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
