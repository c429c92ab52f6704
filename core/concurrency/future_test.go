package concurrency

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_SetValueThenGet(t *testing.T) {
	f, p := NewFuture[int]()
	p.SetValue(42)
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFuture_ObserverFiresImmediatelyAfterResolve(t *testing.T) {
	f, p := NewFuture[int]()
	p.SetValue(7)
	got := make(chan int, 1)
	f.AddObserver(func(v int) { got <- v }, nil)
	assert.Equal(t, 7, <-got)
}

func TestFuture_ObserversFireInOrderAtMostOnce(t *testing.T) {
	f, p := NewFuture[int]()
	var order []int
	f.AddObserver(func(v int) { order = append(order, 1) }, nil)
	f.AddObserver(func(v int) { order = append(order, 2) }, nil)
	f.AddObserver(func(v int) { order = append(order, 3) }, nil)
	p.SetValue(0)
	assert.Equal(t, []int{1, 2, 3}, order)

	// resolving again is a no-op: no double-firing.
	p.SetValue(0)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestFuture_SetExceptionPropagates(t *testing.T) {
	f, p := NewFuture[int]()
	boom := errors.New("boom")
	p.SetException(boom)
	_, err := f.Get()
	assert.Equal(t, boom, err)
}

func TestFuture_Cancel(t *testing.T) {
	f, _ := NewFuture[int]()
	called := false
	f.AddObserver(func(int) { called = true }, func(error) { called = true })
	f.Cancel()
	assert.False(t, called)
	assert.Equal(t, ErrCanceledPromise, f.GetException())
}

func TestFuture_AbandonCancelsPendingPromise(t *testing.T) {
	f, p := NewFuture[int]()
	func() {
		defer p.Abandon()
	}()
	_, err := f.Get()
	assert.Equal(t, ErrCanceledPromise, err)
}

func TestFuture_Then(t *testing.T) {
	f, p := NewFuture[int]()
	chained := Then(f, func(v int) string {
		return "got-and-done"
	})
	p.SetValue(1)
	v, err := chained.Get()
	require.NoError(t, err)
	assert.Equal(t, "got-and-done", v)
}

func TestFuture_Catch(t *testing.T) {
	f, p := NewFuture[int]()
	recovered := Catch(f, func(err error) int { return -1 })
	p.SetException(errors.New("fail"))
	v, err := recovered.Get()
	require.NoError(t, err)
	assert.Equal(t, -1, v)
}

func TestFuture_Finally(t *testing.T) {
	f, p := NewFuture[int]()
	ran := false
	final := Finally(f, func() { ran = true })
	p.SetValue(5)
	v, _ := final.Get()
	assert.True(t, ran)
	assert.Equal(t, 5, v)
}

func TestFuture_Via(t *testing.T) {
	f, p := NewFuture[int]()
	d := NewDispatcher(NewAlert())
	via := f.Via(d)
	p.SetValue(99)

	d.runOne()
	v, err := via.Get()
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

func TestFuture_ViaRefusedDispatcherFailsDownstreamWithErrRefused(t *testing.T) {
	f, p := NewFuture[int]()
	d := NewDispatcher(NewAlert())
	d.Close()
	via := f.Via(d)
	p.SetValue(1)
	_, err := via.Get()
	assert.Equal(t, ErrRefused, err)
}

func TestFuture_WhenAll(t *testing.T) {
	f1, p1 := NewFuture[int]()
	f2, p2 := NewFuture[int]()
	f3, p3 := NewFuture[int]()
	all := WhenAll(f1, f2, f3)

	go func() {
		time.Sleep(5 * time.Millisecond)
		p2.SetValue(2)
		p1.SetValue(1)
		p3.SetValue(3)
	}()

	v, err := all.Get()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)
}

func TestFuture_WaitTimeout(t *testing.T) {
	f, _ := NewFuture[int]()
	expired := f.Wait(After(10 * time.Millisecond))
	assert.True(t, expired)
}

func TestFuture_AddObserverDuringResolveWindowStillFires(t *testing.T) {
	f, p := NewFuture[int]()
	// Attach enough slow observers that resolve's drain loop is still
	// running (state == futureResolving) well after SetValue returns,
	// giving AddObserver a real window to race into.
	for i := 0; i < 50; i++ {
		f.AddObserverIfPending(func(int) { time.Sleep(2 * time.Millisecond) }, nil)
	}
	go p.SetValue(1)
	time.Sleep(time.Millisecond)

	done := make(chan int, 1)
	f.AddObserver(func(v int) { done <- v }, func(error) { done <- -1 })

	select {
	case v := <-done:
		assert.Equal(t, 1, v)
	case <-time.After(2 * time.Second):
		t.Fatal("observer added while resolving never fired")
	}
}

func TestFuture_HasPromiseAndIsPending(t *testing.T) {
	f, p := NewFuture[int]()
	assert.True(t, f.HasPromise())
	assert.True(t, f.IsPending())
	p.SetValue(1)
	assert.True(t, f.HasPromise())
	assert.False(t, f.IsPending())
}
