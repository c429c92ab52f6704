// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FastMutex is a lock-free user-space mutex built on a Treiber stack: the
// wait list doubles as the lock state, and ownership transfers by walking
// the stack from unlock. Fairness is LIFO with respect to queue insertion —
// this trades strict FIFO ordering for throughput.

package concurrency

import "sync/atomic"

type fmSlot struct {
	alert *Alert
	next  atomic.Pointer[fmSlot]
}

// FastMutex is the lock-free mutex described in §4.4. The zero value is an
// unlocked mutex ready to use.
type FastMutex struct {
	queue atomic.Pointer[fmSlot] // top of the Treiber stack; nil iff unlocked
	owner atomic.Pointer[fmSlot] // nil iff queue is empty
}

// TryLock attempts the uncontended fast path: CAS queue from nil to a fresh
// slot. Reports whether it succeeded.
func (m *FastMutex) TryLock() bool {
	slot := &fmSlot{alert: ThisThread()}
	if m.queue.CompareAndSwap(nil, slot) {
		m.owner.Store(slot)
		return true
	}
	return false
}

// Lock blocks until the mutex is acquired by the calling goroutine.
func (m *FastMutex) Lock() {
	if m.TryLock() {
		return
	}
	slot := &fmSlot{alert: ThisThread()}
	for {
		top := m.queue.Load()
		slot.next.Store(top)
		if m.queue.CompareAndSwap(top, slot) {
			if top == nil {
				// Stack was empty at the instant of our push: we own it.
				m.owner.Store(slot)
				return
			}
			break
		}
	}
	for m.owner.Load() != slot {
		slot.alert.Halt()
	}
}

// Unlock releases the mutex. Calling Unlock without holding the mutex is
// undefined, as documented by the design this mirrors; no ownership check
// is performed.
func (m *FastMutex) Unlock() {
	o := m.owner.Load()
	m.owner.Store(nil)
	if m.queue.CompareAndSwap(o, nil) {
		return
	}
	// Contended: find the stack neighbor whose next points at o — it will
	// become the new owner. The stack only grows from the top and o (the
	// bottom) is stable until republished, so this walk needs no lock.
	neighbor := findPredecessor(&m.queue, o)
	m.owner.Store(neighbor)
	neighbor.alert.Wake()
}

func findPredecessor(top *atomic.Pointer[fmSlot], target *fmSlot) *fmSlot {
	for {
		cur := top.Load()
		for cur != nil {
			if cur.next.Load() == target {
				return cur
			}
			cur = cur.next.Load()
		}
		// A concurrent Lock may be mid-push; the predecessor will appear
		// shortly. Retry rather than spin CPU into a hard loop.
	}
}

// AsyncLock represents an in-flight, not-yet-awaited acquisition started by
// FastMutex.Async. Go has no scope destructors, so — unlike the design this
// mirrors — callers must explicitly call Wait before entering the critical
// section.
type AsyncLock struct {
	m    *FastMutex
	slot *fmSlot
	done bool
}

// Async subscribes a slot and returns immediately, allowing the caller to do
// unrelated work before committing to wait for ownership.
func (m *FastMutex) Async() *AsyncLock {
	if m.TryLock() {
		return &AsyncLock{m: m, slot: m.owner.Load(), done: true}
	}
	slot := &fmSlot{alert: ThisThread()}
	for {
		top := m.queue.Load()
		slot.next.Store(top)
		if m.queue.CompareAndSwap(top, slot) {
			if top == nil {
				m.owner.Store(slot)
				return &AsyncLock{m: m, slot: slot, done: true}
			}
			break
		}
	}
	return &AsyncLock{m: m, slot: slot}
}

// Wait blocks until ownership transfers to this AsyncLock. Must be called
// before the critical section and before Unlock.
func (a *AsyncLock) Wait() {
	if a.done {
		return
	}
	for a.m.owner.Load() != a.slot {
		a.slot.alert.Halt()
	}
	a.done = true
}
