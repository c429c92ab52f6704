// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Future/Promise is a one-shot resolved-once value cell with an observer
// chain. A Promise and its paired Future share one internal cell; resolving
// the promise runs every attached observer, in subscribe order, at most
// once each, then frees the observer list.
//
// Go has no destructors, so the original design's "promise dropped while
// still pending cancels the future" rule becomes an explicit call:
// Promise.Abandon. Nothing here relies on a finalizer.

package concurrency

import (
	"sync"

	"github.com/momentics/yasync/pool"
)

type futureState int

const (
	futureUnresolved futureState = iota
	futureResolving
	futureResolved
)

type observerNode[T any] struct {
	onValue     func(T)
	onException func(error)
	next        *observerNode[T]
}

type futureInternal[T any] struct {
	mu            sync.Mutex
	state         futureState
	value         *T
	err           error
	firstObserver *observerNode[T]
	lastObserver  *observerNode[T]
	promiseHeld   bool
	nodePool      *pool.SyncPool[*observerNode[T]]
}

func newFutureInternal[T any]() *futureInternal[T] {
	return &futureInternal[T]{
		nodePool: pool.NewSyncPool(func() *observerNode[T] { return &observerNode[T]{} }),
	}
}

// getNode draws a recycled node from the pool rather than allocating,
// since observer nodes churn heavily on chains built from Then/Catch/Via
// where each stage subscribes and is immediately unlinked after firing.
func (in *futureInternal[T]) getNode(onValue func(T), onException func(error)) *observerNode[T] {
	n := in.nodePool.Get()
	n.onValue = onValue
	n.onException = onException
	n.next = nil
	return n
}

func (in *futureInternal[T]) putNode(n *observerNode[T]) {
	n.onValue = nil
	n.onException = nil
	n.next = nil
	in.nodePool.Put(n)
}

// Future is the read side of a futureInternal cell. The zero value is not
// usable; obtain one from NewFuture, Resolved, Failed, Then, Catch, or Via.
type Future[T any] struct {
	inner *futureInternal[T]
}

// Promise is the write side of a futureInternal cell, paired with exactly
// one Future by NewFuture.
type Promise[T any] struct {
	inner *futureInternal[T]
}

// NewFuture constructs a fresh unresolved cell and returns both handles.
func NewFuture[T any]() (Future[T], Promise[T]) {
	in := newFutureInternal[T]()
	in.promiseHeld = true
	return Future[T]{inner: in}, Promise[T]{inner: in}
}

// Resolved returns a Future already holding v.
func Resolved[T any](v T) Future[T] {
	in := newFutureInternal[T]()
	in.state = futureResolved
	in.value = &v
	return Future[T]{inner: in}
}

// Failed returns a Future already holding err.
func Failed[T any](err error) Future[T] {
	in := newFutureInternal[T]()
	in.state = futureResolved
	in.err = err
	return Future[T]{inner: in}
}

// SetValue resolves the future with v. A no-op if already resolving or
// resolved.
func (p Promise[T]) SetValue(v T) {
	p.inner.resolve(&v, nil)
}

// SetException resolves the future with err.
func (p Promise[T]) SetException(err error) {
	p.inner.resolve(nil, err)
}

// SetValueFuture chains p's resolution to src: once src resolves, p resolves
// the same way.
func (p Promise[T]) SetValueFuture(src Future[T]) {
	src.AddObserver(p.SetValue, p.SetException)
}

// Abandon models a Promise going out of scope without ever being resolved:
// if the future is still unresolved, it resolves with ErrCanceledPromise.
// Callers that need C++-style "destructor cancels" semantics call this from
// a defer.
func (p Promise[T]) Abandon() {
	p.inner.mu.Lock()
	held := p.inner.promiseHeld
	p.inner.promiseHeld = false
	p.inner.mu.Unlock()
	if held {
		p.inner.resolve(nil, ErrCanceledPromise)
	}
}

func (in *futureInternal[T]) resolve(v *T, err error) {
	in.mu.Lock()
	if in.state != futureUnresolved {
		in.mu.Unlock()
		return
	}
	in.state = futureResolving
	in.value = v
	in.err = err
	in.promiseHeld = false
	head := in.firstObserver
	in.firstObserver = nil
	in.lastObserver = nil
	in.mu.Unlock()

	for n := head; n != nil; {
		next := n.next
		runObserver(n, v, err)
		in.putNode(n)
		n = next
	}

	in.mu.Lock()
	in.state = futureResolved
	in.mu.Unlock()
}

func runObserver[T any](n *observerNode[T], v *T, err error) {
	defer func() { recover() }()
	if err != nil {
		if n.onException != nil {
			n.onException(err)
		}
		return
	}
	if v != nil && n.onValue != nil {
		n.onValue(*v)
	}
}

// AddObserver subscribes onValue/onException to the future's resolution. If
// already resolved, or in the process of resolving, the matching callback
// runs immediately, synchronously, in the calling goroutine. Either callback
// may be nil. Returns a handle usable with RemoveObserver, or nil if it
// fired immediately.
//
// futureResolving must be handled the same as futureResolved here: resolve
// drops the lock between capturing its local observer chain (clearing
// firstObserver/lastObserver) and its final state store, and in.value/err
// are already set by the time that window opens. An observer linked into
// firstObserver during that window would never be looked at again by the
// resolving goroutine's drain loop, leaking the subscription and hanging
// any Wait(Never())/Get() caught in the race.
func (f Future[T]) AddObserver(onValue func(T), onException func(error)) *observerNode[T] {
	in := f.inner
	in.mu.Lock()
	if in.state != futureUnresolved {
		v, err := in.value, in.err
		in.mu.Unlock()
		node := in.getNode(onValue, onException)
		runObserver(node, v, err)
		in.putNode(node)
		return nil
	}
	node := in.getNode(onValue, onException)
	f.linkLocked(node)
	in.mu.Unlock()
	return node
}

// AddObserverIfPending subscribes only if the future has not yet begun
// resolving; otherwise it is a no-op and returns nil. Used by callers that
// only care about a future still being genuinely undecided at subscribe
// time, e.g. to avoid a redundant wake.
func (f Future[T]) AddObserverIfPending(onValue func(T), onException func(error)) *observerNode[T] {
	in := f.inner
	in.mu.Lock()
	if in.state != futureUnresolved {
		in.mu.Unlock()
		return nil
	}
	node := in.getNode(onValue, onException)
	f.linkLocked(node)
	in.mu.Unlock()
	return node
}

func (f Future[T]) linkLocked(node *observerNode[T]) {
	in := f.inner
	if in.firstObserver == nil {
		in.firstObserver = node
	} else {
		in.lastObserver.next = node
	}
	in.lastObserver = node
}

// RemoveObserver unlinks a still-pending observer, reporting whether it was
// found (false if it already fired or was never linked, e.g. because
// AddObserver fired it immediately and returned nil).
func (f Future[T]) RemoveObserver(node *observerNode[T]) bool {
	if node == nil {
		return false
	}
	in := f.inner
	in.mu.Lock()
	defer in.mu.Unlock()
	var prev *observerNode[T]
	for cur := in.firstObserver; cur != nil; prev, cur = cur, cur.next {
		if cur == node {
			if prev == nil {
				in.firstObserver = cur.next
			} else {
				prev.next = cur.next
			}
			if in.lastObserver == cur {
				in.lastObserver = prev
			}
			in.putNode(cur)
			return true
		}
	}
	return false
}

// TryGetValue returns the resolved value and true, or the zero value and
// false if unresolved or resolved with an exception.
func (f Future[T]) TryGetValue() (T, bool) {
	in := f.inner
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.value != nil {
		return *in.value, true
	}
	var zero T
	return zero, false
}

// GetException returns the resolved exception, or nil if unresolved or
// resolved with a value.
func (f Future[T]) GetException() error {
	in := f.inner
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.err
}

// HasPromise reports whether a live Promise handle exists or the future has
// already started resolving: pcnt > 0 ∨ state ≠ unresolved.
func (f Future[T]) HasPromise() bool {
	in := f.inner
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.promiseHeld || in.state != futureUnresolved
}

// IsPending reports whether the future has a reason to still resolve but
// has not: HasPromise() ∧ state ≠ resolved.
func (f Future[T]) IsPending() bool {
	in := f.inner
	in.mu.Lock()
	defer in.mu.Unlock()
	return (in.promiseHeld || in.state != futureUnresolved) && in.state != futureResolved
}

// IsResolved reports whether the future has fully resolved (observers have
// all run).
func (f Future[T]) IsResolved() bool {
	in := f.inner
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state == futureResolved
}

// Cancel atomically clears any pending observers and resolves the future
// with ErrCanceledPromise, as long as it is still unresolved. No observer
// attached before the call fires because of it; they are dropped, not
// notified — contrast with SetException(ErrCanceledPromise), which does
// notify them. A no-op once resolving has already started.
func (f Future[T]) Cancel() {
	in := f.inner
	in.mu.Lock()
	if in.state != futureUnresolved {
		in.mu.Unlock()
		return
	}
	in.firstObserver = nil
	in.lastObserver = nil
	in.err = ErrCanceledPromise
	in.state = futureResolved
	in.promiseHeld = false
	in.mu.Unlock()
}

// Wait blocks the calling goroutine until the future resolves or tm
// expires, using the same mailbox-sleep idiom as every other blocking
// primitive in this package instead of a bare channel.
func (f Future[T]) Wait(tm Timeout) (expired bool) {
	alert := ThisThread()
	fired := make(chan struct{})
	closeOnce := func() {
		select {
		case <-fired:
		default:
			close(fired)
		}
	}
	node := f.AddObserver(
		func(T) { closeOnce(); alert.Wake() },
		func(error) { closeOnce(); alert.Wake() },
	)
	isFired := func() bool {
		select {
		case <-fired:
			return true
		default:
			return false
		}
	}
	for {
		if isFired() {
			return false
		}
		if alert.Sleep(tm, nil) {
			if isFired() {
				return false
			}
			// Genuine timeout: drop our subscription so a future that
			// resolves long after every waiter gave up doesn't fire into
			// an ever-growing, never-cleaned observer list.
			f.RemoveObserver(node)
			return true
		}
	}
}

// Get waits forever then returns the resolved value, or the zero value and
// the resolved exception (ErrCanceledPromise if canceled without one ever
// being set).
func (f Future[T]) Get() (T, error) {
	f.Wait(Never())
	if v, ok := f.TryGetValue(); ok {
		return v, nil
	}
	if err := f.GetException(); err != nil {
		var zero T
		return zero, err
	}
	var zero T
	return zero, ErrCanceledPromise
}

// Then chains a value transform: the returned future resolves with fn(v)
// once f resolves with a value, or propagates f's exception unchanged. A
// panic inside fn is swallowed by the observer dispatch's own recover,
// leaving the chained future unresolved; callers that need panic-to-
// exception translation should recover inside fn themselves.
func Then[T, T2 any](f Future[T], fn func(T) T2) Future[T2] {
	nf, np := NewFuture[T2]()
	f.AddObserver(
		func(v T) { np.SetValue(fn(v)) },
		func(err error) { np.SetException(err) },
	)
	return nf
}

// ThenFuture is Then for a continuation that itself returns a Future,
// flattening the two-stage resolution into a single future.
func ThenFuture[T, T2 any](f Future[T], fn func(T) Future[T2]) Future[T2] {
	nf, np := NewFuture[T2]()
	f.AddObserver(
		func(v T) {
			inner := fn(v)
			inner.AddObserver(np.SetValue, np.SetException)
		},
		func(err error) { np.SetException(err) },
	)
	return nf
}

// Catch recovers an exception into a value of the same type, passing
// through an already-successful value unchanged.
func Catch[T any](f Future[T], fn func(error) T) Future[T] {
	nf, np := NewFuture[T]()
	f.AddObserver(
		func(v T) { np.SetValue(v) },
		func(err error) { np.SetValue(fn(err)) },
	)
	return nf
}

// Finally runs fn on resolution regardless of outcome, then passes the
// original value or exception through unchanged.
func Finally[T any](f Future[T], fn func()) Future[T] {
	nf, np := NewFuture[T]()
	f.AddObserver(
		func(v T) { fn(); np.SetValue(v) },
		func(err error) { fn(); np.SetException(err) },
	)
	return nf
}

// Via reinterposes the rest of the chain onto d: the returned future
// resolves inside a task submitted to d, rather than inline in whatever
// goroutine resolved f. If d refuses the task (e.g. its owning thread has
// shut down), the returned future resolves with ErrRefused instead of
// silently never resolving.
func (f Future[T]) Via(d DispatchFn) Future[T] {
	nf, np := NewFuture[T]()
	f.AddObserver(
		func(v T) {
			if !d.Dispatch(func() { np.SetValue(v) }) {
				np.SetException(ErrRefused)
			}
		},
		func(err error) {
			if !d.Dispatch(func() { np.SetException(err) }) {
				np.SetException(ErrRefused)
			}
		},
	)
	return nf
}

// Isolate returns a future that mirrors f's resolution but shares no
// observer-list linkage with it: observers added to the returned future are
// linked into its own list, not f's, and f is not resolved early. Nothing
// else in this package calls it.
func (f Future[T]) Isolate() Future[T] {
	nf, np := NewFuture[T]()
	f.AddObserver(np.SetValue, np.SetException)
	return nf
}

// WhenAll waits for every future in fs to resolve, then resolves with the
// slice of values in input order, or the first exception encountered (by
// resolution order, not input order).
func WhenAll[T any](fs ...Future[T]) Future[[]T] {
	nf, np := NewFuture[[]T]()
	if len(fs) == 0 {
		np.SetValue(nil)
		return nf
	}
	var mu sync.Mutex
	values := make([]T, len(fs))
	remaining := len(fs)
	failed := false
	for i, fut := range fs {
		i := i
		fut.AddObserver(
			func(v T) {
				mu.Lock()
				values[i] = v
				remaining--
				done := remaining == 0 && !failed
				mu.Unlock()
				if done {
					np.SetValue(values)
				}
			},
			func(err error) {
				mu.Lock()
				already := failed
				failed = true
				mu.Unlock()
				if !already {
					np.SetException(err)
				}
			},
		)
	}
	return nf
}
