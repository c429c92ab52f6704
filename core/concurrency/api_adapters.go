// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Adapters making the kernel's own types satisfy the public api contracts,
// so code written against api.Scheduler, api.Executor, and
// api.GracefulShutdown can be handed a *Scheduler, *ThreadPool, or
// *WorkExecutor without depending on this package's concrete API. The api
// package must stay independent of this one (it declares contracts, not
// implementations), so the dependency only ever points this direction —
// these adapters are that one-directional bridge, kept deliberately thin.

package concurrency

import (
	"sync"
	"time"

	"github.com/momentics/yasync/api"
)

// AsAPIScheduler wraps s to satisfy api.Scheduler using time.Time deadlines,
// translated to this package's own Timeout internally.
func AsAPIScheduler(s *Scheduler) api.Scheduler {
	return apiScheduler{s: s}
}

type apiScheduler struct{ s *Scheduler }

func (a apiScheduler) Schedule(deadline time.Time, fn func()) (api.Cancelable, error) {
	slot := a.s.Schedule(At(deadline))
	done := make(chan struct{})
	c := &apiCancelable{done: done}
	slot.Dispatch(func() {
		fn()
		c.mu.Lock()
		if !c.closed {
			c.closed = true
			close(done)
		}
		c.mu.Unlock()
	})
	c.slot = slot
	return c, nil
}

func (a apiScheduler) Cancel(c api.Cancelable) error {
	ac, ok := c.(*apiCancelable)
	if !ok {
		return api.ErrInvalidArgument
	}
	ac.slot.cancel()
	ac.mu.Lock()
	if !ac.closed {
		ac.closed = true
		ac.err = api.ErrOperationTimeout
		close(ac.done)
	}
	ac.mu.Unlock()
	return nil
}

func (a apiScheduler) Now() time.Time { return time.Now() }

type apiCancelable struct {
	mu     sync.Mutex
	closed bool
	err    error
	slot   *ScheduledSlot
	done   chan struct{}
}

func (c *apiCancelable) Cancel() error {
	c.slot.cancel()
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	c.mu.Unlock()
	return nil
}

func (c *apiCancelable) Done() <-chan struct{} { return c.done }

func (c *apiCancelable) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// AsAPIExecutor wraps e to satisfy api.Executor.
func AsAPIExecutor(e *WorkExecutor) api.Executor { return e }

var (
	_ api.Executor         = (*WorkExecutor)(nil)
	_ api.GracefulShutdown = (*workExecutorShutdown)(nil)
)

type workExecutorShutdown struct{ e *WorkExecutor }

// AsGracefulShutdown adapts e's Close to api.GracefulShutdown.
func AsGracefulShutdown(e *WorkExecutor) api.GracefulShutdown {
	return workExecutorShutdown{e: e}
}

func (w workExecutorShutdown) Shutdown() error {
	w.e.Close()
	return nil
}

var (
	_ api.GracefulShutdown = (*threadPoolShutdown)(nil)
	_ api.GracefulShutdown = (*schedulerShutdown)(nil)
)

type threadPoolShutdown struct{ p *ThreadPool }

// AsThreadPoolShutdown adapts p's Finish to api.GracefulShutdown.
func AsThreadPoolShutdown(p *ThreadPool) api.GracefulShutdown {
	return threadPoolShutdown{p: p}
}

func (t threadPoolShutdown) Shutdown() error {
	t.p.Finish()
	return nil
}

type schedulerShutdown struct{ s *Scheduler }

// AsSchedulerShutdown adapts s's Close to api.GracefulShutdown.
func AsSchedulerShutdown(s *Scheduler) api.GracefulShutdown {
	return schedulerShutdown{s: s}
}

func (s schedulerShutdown) Shutdown() error {
	s.s.Close()
	return nil
}

// ToAPIResult blocks until f resolves (or tm expires) and snapshots the
// outcome into api.Result, for callers that want a value they can store or
// pass across a boundary instead of holding the Future handle itself. A
// timeout is reported as api.ErrOperationTimeout.
func ToAPIResult[T any](f Future[T], tm Timeout) api.Result[T] {
	if expired := f.Wait(tm); expired {
		var zero T
		return api.Result[T]{Value: zero, Err: api.ErrOperationTimeout}
	}
	if v, ok := f.TryGetValue(); ok {
		return api.Result[T]{Value: v}
	}
	var zero T
	if err := f.GetException(); err != nil {
		return api.Result[T]{Value: zero, Err: err}
	}
	return api.Result[T]{Value: zero, Err: ErrCanceledPromise}
}
