// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module. Kept to sentinels a real call
// site in this tree actually returns or compares against — audited the same
// way api/errors.go's sentinel set was audited and trimmed.

package concurrency

import "errors"

var (
	// ErrExecutorClosed indicates the executor has been shut down
	ErrExecutorClosed = errors.New("executor is closed")

	// ErrCanceledPromise is the exception a Future resolves with when its
	// Promise is abandoned or the future is explicitly canceled before
	// anyone ever set a value or exception.
	ErrCanceledPromise = errors.New("promise canceled")

	// ErrRefused is the exception an error-returning caller (e.g. Future.Via)
	// substitutes when a DispatchFn's Dispatch reports refusal (its target is
	// closed and cannot accept the callable). DispatchFn.Dispatch itself
	// reports refusal as a bool, per this package's "refusals are values, not
	// raised" convention; ErrRefused exists for the few places that need to
	// fold that bool into an error return instead.
	ErrRefused = errors.New("dispatch refused")
)
