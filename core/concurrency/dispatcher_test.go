package concurrency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_FIFOOrder(t *testing.T) {
	d := NewDispatcher(NewAlert())
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, d.Dispatch(func() { order = append(order, i) }))
	}
	for i := 0; i < 5; i++ {
		d.runOne()
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDispatcher_SleepAndDispatchWakesOnSubmit(t *testing.T) {
	alert := NewAlert()
	d := NewDispatcher(alert)
	ran := make(chan struct{})

	go func() {
		d.SleepAndDispatch(Never())
	}()
	time.Sleep(10 * time.Millisecond)
	d.Dispatch(func() { close(ran) })
	<-ran
}

func TestDispatcher_CloseRefuses(t *testing.T) {
	d := NewDispatcher(NewAlert())
	d.Close()
	assert.False(t, d.Dispatch(func() {}))
}

func TestNewThreadDispatcher_RunsEachOnFreshGoroutine(t *testing.T) {
	d := NewThreadDispatcher()
	done := make(chan struct{})
	require.True(t, d.Dispatch(func() { close(done) }))
	<-done
}

func TestCombineDispatchers_ForwardsThenFallsBackInline(t *testing.T) {
	first := NewDispatcher(NewAlert())
	second := NewDispatcher(NewAlert())
	second.Close()

	combined := CombineDispatchers(first, second)
	ran := make(chan struct{})
	combined.Dispatch(func() { close(ran) })
	first.runOne()
	<-ran
}

func TestViaAlert_WrapsDispatch(t *testing.T) {
	d := NewDispatcher(NewAlert())
	target := NewAlert()
	wrapped := ViaAlert(d, target)

	wrapped.WakeReason(3)
	d.runOne()
	reason := target.Halt()
	assert.Equal(t, 3, reason)
}
