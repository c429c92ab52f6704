// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ThreadPool is an elastic worker pool with a bounded task queue, optional
// dispatch-on-wait backpressure relief, and reentrant yield. Configuration
// is a fluent builder; Start returns the running *ThreadPool, which
// implements DispatchFn.

package concurrency

import (
	"reflect"
	"runtime"
	"sync"

	"github.com/eapache/queue"
)

// unboundedQueue is used by NewDispatchThread to mean "no queue limit".
const unboundedQueue = ^uint(0) >> 1

// ClearQueueCmd is the sentinel callable recognized by ThreadPool.Dispatch:
// submitting it is equivalent to calling ClearQueue directly, expressed
// through the same Dispatch(fn) entry point every other submission uses.
// Compared by function pointer, since func values are not otherwise
// comparable in Go.
var ClearQueueCmd = func() {}

func isClearQueueCmd(fn func()) bool {
	return reflect.ValueOf(fn).Pointer() == reflect.ValueOf(ClearQueueCmd).Pointer()
}

// ThreadPoolConfig collects ThreadPool parameters before Start. All setters
// return the receiver for chaining.
type ThreadPoolConfig struct {
	maxThreads        uint
	maxQueue          uint
	idleTimeoutMs     uint64
	queueTimeoutMs    uint64
	dispatchOnWait    bool
	maxYieldRecursion uint
	threadStart       AlertFn
	threadStop        AlertFn
	finalStop         AlertFn
}

// NewThreadPoolConfig returns the default configuration: maxThreads equal to
// hardware parallelism, maxQueue 1, idleTimeout 1000ms, queueTimeout
// infinite, dispatchOnWait false, maxYieldRecursion 4.
func NewThreadPoolConfig() *ThreadPoolConfig {
	return &ThreadPoolConfig{
		maxThreads:        uint(runtime.NumCPU()),
		maxQueue:          1,
		idleTimeoutMs:     1000,
		maxYieldRecursion: 4,
	}
}

func (c *ThreadPoolConfig) SetMaxThreads(n uint) *ThreadPoolConfig {
	if n == 0 {
		n = 1
	}
	c.maxThreads = n
	return c
}

func (c *ThreadPoolConfig) SetMaxQueue(n uint) *ThreadPoolConfig {
	if n == 0 {
		n = 1
	}
	c.maxQueue = n
	return c
}

// SetIdleTimeout sets the idle-worker timeout in milliseconds; 0 means no
// timeout (a worker waits forever for work).
func (c *ThreadPoolConfig) SetIdleTimeout(ms uint64) *ThreadPoolConfig {
	c.idleTimeoutMs = ms
	return c
}

// SetQueueTimeout sets the submit-blocked-on-full-queue timeout in
// milliseconds; 0 (default) means infinite.
func (c *ThreadPoolConfig) SetQueueTimeout(ms uint64) *ThreadPoolConfig {
	c.queueTimeoutMs = ms
	return c
}

// SetDispatchOnWait lets a submitter blocked on a full queue drain its own
// Dispatcher while waiting, instead of sleeping inertly.
func (c *ThreadPoolConfig) SetDispatchOnWait(v bool) *ThreadPoolConfig {
	c.dispatchOnWait = v
	return c
}

func (c *ThreadPoolConfig) SetMaxYieldRecursion(n uint) *ThreadPoolConfig {
	c.maxYieldRecursion = n
	return c
}

func (c *ThreadPoolConfig) SetThreadStart(a AlertFn) *ThreadPoolConfig {
	c.threadStart = a
	return c
}

func (c *ThreadPoolConfig) SetThreadStop(a AlertFn) *ThreadPoolConfig {
	c.threadStop = a
	return c
}

// SetFinalStop sets the alert fired once the last worker has exited after
// Finish was called and the queue drained.
func (c *ThreadPoolConfig) SetFinalStop(a AlertFn) *ThreadPoolConfig {
	c.finalStop = a
	return c
}

// Start launches the pool. Workers are spawned lazily as tasks are
// submitted, up to maxThreads.
func (c *ThreadPoolConfig) Start() *ThreadPool {
	cfg := *c
	return &ThreadPool{
		cfg:           cfg,
		tasks:         queue.New(),
		workerTrigger: NewWaitQueue(LIFO),
		queueTrigger:  NewWaitQueue(FIFO),
	}
}

// ThreadPool is the running pool returned by ThreadPoolConfig.Start. It
// implements DispatchFn.
type ThreadPool struct {
	cfg           ThreadPoolConfig
	mu            sync.Mutex
	tasks         *queue.Queue
	workerTrigger *WaitQueue
	queueTrigger  *WaitQueue
	threadCount   uint
	finishFlag    bool
}

func (p *ThreadPool) idleTimeout() Timeout {
	if p.cfg.idleTimeoutMs == 0 {
		return Never()
	}
	return AfterMillis(p.cfg.idleTimeoutMs)
}

func (p *ThreadPool) queueTimeout() Timeout {
	if p.cfg.queueTimeoutMs == 0 {
		return Never()
	}
	return AfterMillis(p.cfg.queueTimeoutMs)
}

// Dispatch submits fn for execution, blocking while the queue is full (per
// QueueTimeout), and reports whether it was accepted. Submitting
// ClearQueueCmd is special-cased to drop all pending, not-yet-started tasks
// instead of enqueuing a task; running tasks are unaffected.
func (p *ThreadPool) Dispatch(fn func()) bool {
	if isClearQueueCmd(fn) {
		p.ClearQueue()
		return true
	}
	p.mu.Lock()
	for uint(p.tasks.Length()) >= p.cfg.maxQueue && !p.finishFlag {
		t := NewPooledTicket(ThisThread())
		p.queueTrigger.Add(t)
		p.mu.Unlock()

		expired := p.waitQueueTicket(t)

		p.mu.Lock()
		if expired {
			if p.queueTrigger.SignOff(t) {
				releasePooledTicket(t)
				p.mu.Unlock()
				return false
			}
			// Alerted in the race window between timing out and signing
			// off: it was already unlinked by AlertOne, safe to release.
			releasePooledTicket(t)
			continue
		}
		releasePooledTicket(t)
	}
	if p.finishFlag {
		p.mu.Unlock()
		return false
	}

	p.tasks.Add(fn)
	woke := p.workerTrigger.AlertOne() != nil
	if !woke && p.threadCount < p.cfg.maxThreads {
		p.threadCount++
		go p.runWorker()
	}
	p.mu.Unlock()
	return true
}

// waitQueueTicket blocks the calling goroutine, watching t, either sleeping
// inertly or draining its own Dispatcher meanwhile per DispatchOnWait.
func (p *ThreadPool) waitQueueTicket(t *Ticket) (expired bool) {
	tm := p.queueTimeout()
	for {
		if t.Alerted() {
			return false
		}
		var timedOut bool
		if p.cfg.dispatchOnWait {
			timedOut = CurrentDispatcher().SleepAndDispatch(tm)
		} else {
			timedOut = ThisThread().Sleep(tm, nil)
		}
		if timedOut {
			if t.Alerted() {
				return false
			}
			return true
		}
	}
}

// ClearQueue drops all pending, not-yet-started tasks. Running tasks are
// unaffected.
func (p *ThreadPool) ClearQueue() {
	p.mu.Lock()
	for p.tasks.Length() > 0 {
		p.tasks.Remove()
	}
	p.mu.Unlock()
}

// Finish marks the pool finishing: workers drain the remaining queue and
// then exit; FinalStop fires once the last one does. Finish does not block.
func (p *ThreadPool) Finish() {
	p.mu.Lock()
	p.finishFlag = true
	p.workerTrigger.AlertAll()
	p.mu.Unlock()
}

// NumWorkers returns the current live worker goroutine count.
func (p *ThreadPool) NumWorkers() uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threadCount
}

func (p *ThreadPool) runWorker() {
	if p.cfg.threadStart != nil {
		p.cfg.threadStart.Wake()
	}

workerLoop:
	for {
		p.mu.Lock()
		for p.tasks.Length() == 0 && !p.finishFlag {
			t := NewPooledTicket(ThisThread())
			p.workerTrigger.Add(t)
			p.mu.Unlock()

			expired := Wait(t, p.idleTimeout())

			p.mu.Lock()
			if expired {
				if p.workerTrigger.SignOff(t) {
					releasePooledTicket(t)
					p.mu.Unlock()
					break workerLoop
				}
				// Alerted concurrently with the idle timeout: loop back
				// and recheck; the condition that follows will see work.
				releasePooledTicket(t)
				continue
			}
			releasePooledTicket(t)
		}

		if p.tasks.Length() > 0 {
			fn := p.tasks.Remove().(func())
			p.queueTrigger.AlertOne()
			p.mu.Unlock()
			safeExecute(fn)
			continue workerLoop
		}

		p.mu.Unlock()
		break workerLoop
	}

	p.mu.Lock()
	p.threadCount--
	last := p.threadCount == 0 && p.finishFlag
	p.mu.Unlock()

	if p.cfg.threadStop != nil {
		p.cfg.threadStop.Wake()
	}
	if last && p.cfg.finalStop != nil {
		p.cfg.finalStop.Wake()
	}
}

func safeExecute(fn func()) {
	defer func() { recover() }()
	fn()
}

var (
	yieldDepthMu sync.Mutex
	yieldDepthTb = map[uint64]uint{}
)

// Yield runs one queued task inline on the calling goroutine, if any is
// available, bounded by MaxYieldRecursion to cap stack growth from
// reentrant Yield calls inside a task that itself calls Yield.
func (p *ThreadPool) Yield() bool {
	id := goroutineID()

	yieldDepthMu.Lock()
	depth := yieldDepthTb[id]
	if depth >= p.cfg.maxYieldRecursion {
		yieldDepthMu.Unlock()
		return false
	}
	yieldDepthTb[id] = depth + 1
	yieldDepthMu.Unlock()
	defer func() {
		yieldDepthMu.Lock()
		yieldDepthTb[id] = depth
		yieldDepthMu.Unlock()
	}()

	p.mu.Lock()
	if p.tasks.Length() == 0 {
		p.mu.Unlock()
		return false
	}
	fn := p.tasks.Remove().(func())
	p.mu.Unlock()

	safeExecute(fn)
	return true
}

// NewDispatchThread returns an owned single-thread dispatch queue with an
// unbounded backlog and no idle timeout: a dedicated goroutine that serially
// runs whatever is submitted to it for as long as the process runs. Callers
// that need to shut it down should submit a task that calls Finish on the
// pool obtained via a type assertion, or simply let it live for the
// process's lifetime like the original design's owned dispatch thread.
func NewDispatchThread() DispatchFn {
	return NewThreadPoolConfig().
		SetMaxThreads(1).
		SetMaxQueue(unboundedQueue).
		SetIdleTimeout(0).
		Start()
}
