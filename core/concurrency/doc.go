// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package concurrency is a small kernel of cooperating, composable
// concurrency primitives: a per-goroutine wake mailbox (Alert), an
// intrusive wait-queue discipline (WaitQueue/Ticket) every lock in the
// package is built from, a lock-free mutex (FastMutex) and its recursive
// variant, counting and binary latches (Semaphore, Gate, CountGate), a
// reader/writer lock, a condition variable, deferred-callable dispatchers
// (Dispatcher, ThreadPool) with a deadline-ordered Scheduler on top, and a
// generic Future/Promise with an observer-chain API.
//
// Every blocking call takes a Timeout rather than a raw duration or
// deadline, so "wait forever", "don't wait at all" and "wait until an
// absolute instant" are the same type throughout the package.
package concurrency
