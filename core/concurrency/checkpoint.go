// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Checkpoint is an Alert that latches whether it has ever been woken, and
// forwards every wake to a downstream AlertFn (by default the constructing
// goroutine's own mailbox). Multiple Checkpoint values created by copying
// share the same latch via the shared *checkpointState pointer.

package concurrency

import "sync"

type checkpointState struct {
	mu       sync.Mutex
	signaled bool
	reason   int
	forward  AlertFn
}

// Checkpoint is itself usable wherever an AlertFn is expected.
type Checkpoint struct {
	state *checkpointState
}

// NewCheckpoint constructs a Checkpoint forwarding to forward. A nil forward
// defaults to the constructing goroutine's own mailbox (ThisThread()).
func NewCheckpoint(forward AlertFn) *Checkpoint {
	if forward == nil {
		forward = ThisThread()
	}
	return &Checkpoint{state: &checkpointState{forward: forward}}
}

// Wake latches signaled and forwards with no reason.
func (c *Checkpoint) Wake() {
	c.WakeReason(0)
}

// WakeReason latches signaled, stores reason, and forwards.
func (c *Checkpoint) WakeReason(reason int) {
	c.state.mu.Lock()
	c.state.signaled = true
	c.state.reason = reason
	c.state.mu.Unlock()
	c.state.forward.WakeReason(reason)
}

// Signaled reports whether this checkpoint has ever been woken since
// construction or the last Reset.
func (c *Checkpoint) Signaled() bool {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.signaled
}

// GetReason returns the most recently latched reason.
func (c *Checkpoint) GetReason() int {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.reason
}

// Reset clears signaled/reason so the checkpoint can be reused.
func (c *Checkpoint) Reset() {
	c.state.mu.Lock()
	c.state.signaled = false
	c.state.reason = 0
	c.state.mu.Unlock()
}

// Wait blocks until signaled or tm expires. This requires the checkpoint's
// forward to be a real mailbox (*Alert) — the default, ThisThread() — since
// waiting means sleeping on that mailbox; Checkpoints forwarding to a
// CallFn adapter have no mailbox of their own to sleep on.
func (c *Checkpoint) Wait(tm Timeout) (expired bool) {
	alert := c.forwardAlert()
	for {
		if c.Signaled() {
			return false
		}
		if alert.Sleep(tm, nil) {
			if c.Signaled() {
				return false
			}
			return true
		}
	}
}

// Dispatch is Wait's dispatching counterpart: while waiting for the
// checkpoint to signal, it also drains the calling goroutine's own
// Dispatcher (via SleepAndDispatch) instead of sleeping on the bare
// mailbox.
func (c *Checkpoint) Dispatch(tm Timeout) (expired bool) {
	d := CurrentDispatcher()
	for {
		if c.Signaled() {
			return false
		}
		if d.SleepAndDispatch(tm) {
			if c.Signaled() {
				return false
			}
			return true
		}
	}
}

func (c *Checkpoint) forwardAlert() *Alert {
	if a, ok := c.state.forward.(*Alert); ok {
		return a
	}
	// Forwarding to a non-mailbox AlertFn (e.g. CallFn): fall back to the
	// calling goroutine's own mailbox, since WakeReason above always also
	// invokes c.state.forward synchronously and latches signaled regardless
	// of which mailbox Wait polls on.
	return ThisThread()
}
