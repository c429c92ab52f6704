// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Timeout is a monotonic-clock deadline with a "never expires" sentinel and
// a total order over all values ("never" compares greatest).

package concurrency

import "time"

// Timeout is an immutable deadline. The zero value expires immediately
// (its deadline is the zero time.Time, always in the past), matching
// Timeout's "currently expires" default constructor.
type Timeout struct {
	deadline time.Time
	never    bool
}

// Now returns a Timeout that has already expired.
func Now() Timeout {
	return Timeout{deadline: time.Now()}
}

// Never returns a Timeout that never expires.
func Never() Timeout {
	return Timeout{never: true}
}

// At returns a Timeout expiring at the given instant.
func At(t time.Time) Timeout {
	return Timeout{deadline: t}
}

// After returns a Timeout expiring after d elapses from now.
func After(d time.Duration) Timeout {
	return Timeout{deadline: time.Now().Add(d)}
}

// AfterMillis returns a Timeout expiring after ms milliseconds from now.
func AfterMillis(ms uint64) Timeout {
	return After(time.Duration(ms) * time.Millisecond)
}

// Infinity is the never-expiring Timeout, for use as a default value.
var Infinity = Never()

// Expired reports whether the deadline has passed.
func (t Timeout) Expired() bool {
	if t.never {
		return false
	}
	return !t.deadline.After(time.Now())
}

// Deadline returns the absolute instant this Timeout expires at. The result
// is unspecified (but non-panicking) if t never expires.
func (t Timeout) Deadline() time.Time {
	return t.deadline
}

// IsNever reports whether this Timeout never expires.
func (t Timeout) IsNever() bool {
	return t.never
}

// Remaining returns the duration until expiry, or the largest representable
// duration if t never expires.
func (t Timeout) Remaining() time.Duration {
	if t.never {
		return time.Duration(1<<63 - 1)
	}
	return time.Until(t.deadline)
}

// Compare returns -1, 0 or 1 as t is before, equal to, or after o, with
// "never" sorting as the maximum value.
func (t Timeout) Compare(o Timeout) int {
	switch {
	case t.never && o.never:
		return 0
	case t.never:
		return 1
	case o.never:
		return -1
	case t.deadline.Before(o.deadline):
		return -1
	case t.deadline.After(o.deadline):
		return 1
	default:
		return 0
	}
}

func (t Timeout) Before(o Timeout) bool { return t.Compare(o) < 0 }
func (t Timeout) After(o Timeout) bool  { return t.Compare(o) > 0 }
func (t Timeout) Equal(o Timeout) bool  { return t.Compare(o) == 0 }
