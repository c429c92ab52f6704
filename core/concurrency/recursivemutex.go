// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RecursiveMutex layers owner tracking and a recursion count on top of
// FastMutex, letting the owning goroutine re-enter the lock.

package concurrency

import "sync/atomic"

const noOwner = -1

// RecursiveMutex is a FastMutex that the current owner may re-acquire.
// The zero value is an unlocked, unowned mutex.
type RecursiveMutex struct {
	fm             FastMutex
	ownerThread    atomic.Int64 // noOwner when unheld
	recursionCount atomic.Uint64
}

// Lock acquires the mutex, or increments the recursion count if the calling
// goroutine already owns it.
func (m *RecursiveMutex) Lock() {
	if m.fm.TryLock() {
		m.recursionCount.Store(1)
		m.ownerThread.Store(int64(ThisThreadID()))
		return
	}
	if m.ownerThread.Load() == int64(ThisThreadID()) {
		m.recursionCount.Add(1)
		return
	}
	m.fm.Lock()
	m.recursionCount.Store(1)
	m.ownerThread.Store(int64(ThisThreadID()))
}

// LockR is an alias for Lock, matching the original design's explicit
// recursive-entry spelling.
func (m *RecursiveMutex) LockR() { m.Lock() }

// TryLock attempts Lock without blocking, reporting success.
func (m *RecursiveMutex) TryLock() bool {
	if m.fm.TryLock() {
		m.recursionCount.Store(1)
		m.ownerThread.Store(int64(ThisThreadID()))
		return true
	}
	if m.ownerThread.Load() == int64(ThisThreadID()) {
		m.recursionCount.Add(1)
		return true
	}
	return false
}

// Unlock decrements the recursion count; only when it reaches zero is the
// underlying FastMutex released and ownership cleared. Unlocking from a
// goroutine that is not the current owner is undefined.
func (m *RecursiveMutex) Unlock() {
	if m.ownerThread.Load() != int64(ThisThreadID()) || m.recursionCount.Load() == 0 {
		return
	}
	if m.recursionCount.Add(^uint64(0)) == 0 { // decrement
		m.ownerThread.Store(noOwner)
		m.fm.Unlock()
	}
}

// UnlockSaveRecursion fully releases the mutex regardless of recursion
// depth, returning the depth it held so it can later be restored with
// LockRestoreRecursion.
func (m *RecursiveMutex) UnlockSaveRecursion() uint64 {
	n := m.recursionCount.Swap(0)
	m.ownerThread.Store(noOwner)
	m.fm.Unlock()
	return n
}

// LockRestoreRecursion re-acquires the mutex (blocking unless tryFlag is
// set, in which case it behaves like TryLock) and, on a fresh acquisition,
// sets the recursion count to n. Reports whether the lock was acquired.
func (m *RecursiveMutex) LockRestoreRecursion(n uint64, tryFlag bool) bool {
	var ok bool
	if tryFlag {
		ok = m.fm.TryLock()
	} else {
		m.fm.Lock()
		ok = true
	}
	if ok {
		m.recursionCount.Store(n)
		m.ownerThread.Store(int64(ThisThreadID()))
	}
	return ok
}

// SetOwner reassigns ownership to another thread id without touching the
// underlying FastMutex. Only the current owner may call this; the new owner
// becomes responsible for eventually calling Unlock the same number of
// times this mutex was locked.
func (m *RecursiveMutex) SetOwner(other uint64) {
	if m.ownerThread.Load() == int64(ThisThreadID()) {
		m.ownerThread.Store(int64(other))
	}
}
