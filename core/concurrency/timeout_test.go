package concurrency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeout_NeverSortsMax(t *testing.T) {
	soon := After(time.Millisecond)
	assert.True(t, Never().After(soon))
	assert.True(t, soon.Before(Never()))
	assert.Equal(t, 0, Never().Compare(Never()))
}

func TestTimeout_Expired(t *testing.T) {
	assert.True(t, Now().Expired())
	assert.False(t, Never().Expired())
	assert.False(t, After(time.Hour).Expired())
}

func TestTimeout_Remaining(t *testing.T) {
	tm := After(50 * time.Millisecond)
	assert.Greater(t, tm.Remaining(), time.Duration(0))
	assert.LessOrEqual(t, tm.Remaining(), 50*time.Millisecond)
	assert.Greater(t, Never().Remaining(), time.Hour*24*365)
}

func TestTimeout_AfterMillis(t *testing.T) {
	tm := AfterMillis(10)
	assert.False(t, tm.Expired())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, tm.Expired())
}

func TestTimeout_Compare(t *testing.T) {
	a := At(time.Now())
	b := At(time.Now().Add(time.Second))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}
