// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WaitQueue is the intrusive FIFO/LIFO ticket list every lock-and-condvar
// style primitive in this package (Gate, CountGate, Semaphore, RWMutex,
// CondVar) composes with its own lock. It is not itself thread-safe; the
// owning primitive always mutates it while holding its own mutex.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/yasync/pool"
)

// Mode selects wake ordering for a WaitQueue.
type Mode int

const (
	// FIFO wakes waiters in subscribe order.
	FIFO Mode = iota
	// LIFO wakes the most recently subscribed waiter first, favoring warm
	// caches over fairness (used by ThreadPool's worker trigger).
	LIFO
)

// Ticket is a waiter's membership token. It is linked into a WaitQueue by
// WaitQueue.Add or WaitQueue.Subscribe and must be signed off (via
// WaitQueue.SignOff) if the caller gives up waiting without being alerted.
type Ticket struct {
	alert   *Alert
	shared  bool // RWMutex tags a ticket shared vs exclusive; unused elsewhere
	alerted atomic.Bool
	removed atomic.Bool
	next    *Ticket
	owner   *WaitQueue
}

// ticketPool backs the high-churn ThreadPool worker/queue waiter tickets;
// other primitives allocate tickets directly since their waiter turnover is
// comparatively rare and pooling there would add recycling risk for little
// benefit.
var ticketPool = pool.NewSyncPool(func() *Ticket { return &Ticket{} })

// NewTicket constructs a ticket for the given mailbox. It is not linked into
// any queue until passed to WaitQueue.Add or WaitQueue.Subscribe.
func NewTicket(a *Alert) *Ticket {
	return &Ticket{alert: a}
}

// NewPooledTicket is NewTicket drawing from ticketPool; pair with
// releasePooledTicket once the ticket's wait/wake cycle has fully completed
// and the calling goroutine holds the only remaining reference.
func NewPooledTicket(a *Alert) *Ticket {
	t := ticketPool.Get()
	t.alert = a
	t.shared = false
	t.alerted.Store(false)
	t.removed.Store(false)
	t.next = nil
	t.owner = nil
	return t
}

func releasePooledTicket(t *Ticket) {
	ticketPool.Put(t)
}

// Shared reports the RWMutex shared/exclusive tag.
func (t *Ticket) Shared() bool { return t.shared }

// SetShared tags the ticket as a shared (reader) waiter.
func (t *Ticket) SetShared(shared bool) { t.shared = shared }

// Alerted reports whether this ticket has been woken.
func (t *Ticket) Alerted() bool { return t.alerted.Load() }

// WaitQueue is an intrusive singly-linked list of Tickets.
type WaitQueue struct {
	mode   Mode
	top    *Ticket
	bottom *Ticket
}

// NewWaitQueue constructs an empty queue in the given wake-order mode.
func NewWaitQueue(mode Mode) *WaitQueue {
	return &WaitQueue{mode: mode}
}

// Empty reports whether no tickets are queued.
func (q *WaitQueue) Empty() bool {
	return q.top == nil
}

// Front peeks the head ticket without removing it, or nil if empty.
func (q *WaitQueue) Front() *Ticket {
	return q.top
}

// Add links t into the queue per the queue's mode. The caller's lock must be
// held; this only updates the list, it does not touch t.alerted.
func (q *WaitQueue) Add(t *Ticket) {
	t.owner = q
	t.next = nil
	switch q.mode {
	case LIFO:
		t.next = q.top
		q.top = t
		if q.bottom == nil {
			q.bottom = t
		}
	default: // FIFO
		if q.bottom == nil {
			q.top = t
			q.bottom = t
		} else {
			q.bottom.next = t
			q.bottom = t
		}
	}
}

// Remove unlinks t if still present, reporting whether it found it. Safe to
// call on a ticket that has already been popped by AlertOne/AlertAll (it
// simply reports false).
func (q *WaitQueue) Remove(t *Ticket) bool {
	var prev *Ticket
	cur := q.top
	for cur != nil {
		if cur == t {
			if prev == nil {
				q.top = cur.next
			} else {
				prev.next = cur.next
			}
			if q.bottom == cur {
				q.bottom = prev
			}
			cur.next = nil
			cur.owner = nil
			return true
		}
		prev = cur
		cur = cur.next
	}
	return false
}

// AlertOne pops the head ticket (per mode), marks it alerted and wakes its
// mailbox, then returns it. Returns nil if the queue was empty. The caller
// must have already mutated any primitive state the woken waiter's
// predicate depends on before calling AlertOne, so the recheck succeeds.
func (q *WaitQueue) AlertOne() *Ticket {
	t := q.top
	if t == nil {
		return nil
	}
	q.top = t.next
	if q.bottom == t {
		q.bottom = nil
	}
	t.next = nil
	t.owner = nil
	t.alerted.Store(true)
	t.alert.Wake()
	return t
}

// AlertAll repeatedly pops and wakes every queued ticket.
func (q *WaitQueue) AlertAll() {
	for q.AlertOne() != nil {
	}
}

// Subscribe links t into the queue unless satisfied reports true, in
// which case t is marked alerted without being linked — this is the
// fast-path for primitives whose predicate is already satisfied at
// subscribe time (an open Gate, a CountGate already at zero).
func (q *WaitQueue) Subscribe(t *Ticket, satisfied bool) {
	if satisfied {
		t.alerted.Store(true)
		return
	}
	q.Add(t)
}

// SignOff removes t from the queue iff it was neither alerted nor already
// removed, reporting whether it performed the removal. Primitives call this
// from the waiter's cleanup path (equivalent to the ticket destructor in the
// original design); if it returns false because t was already alerted, t
// holds whatever the alerting side granted it, and the primitive must hand
// that grant on to another waiter (as Semaphore and RWMutex do).
func (q *WaitQueue) SignOff(t *Ticket) bool {
	if t.alerted.Load() || t.removed.Load() {
		return false
	}
	if q.Remove(t) {
		t.removed.Store(true)
		return true
	}
	return false
}

// Wait blocks the calling goroutine on t until it is alerted or tm expires.
// t must already be subscribed (or pre-alerted) to a queue guarded by a
// lock the caller does not hold during this call.
func Wait(t *Ticket, tm Timeout) (expired bool) {
	for {
		if t.Alerted() {
			return false
		}
		if t.alert.Sleep(tm, nil) {
			// The alert's own timeout fired, but the primitive may have
			// alerted this ticket in the instant before that timeout was
			// observed — recheck before declaring expiry.
			if t.Alerted() {
				return false
			}
			return true
		}
	}
}

// UnlockAndWait implements the standard condition-variable protocol:
// subscribe t under the caller's lock (already done by the caller), then
// release unlock, block until alerted or tm expires, and re-acquire lock
// before returning.
func UnlockAndWait(t *Ticket, tm Timeout, unlock, lock func()) (expired bool) {
	unlock()
	expired = Wait(t, tm)
	lock()
	return expired
}
