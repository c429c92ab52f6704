// Package api
// Author: momentics <momentics@gmail.com>
//
// Sentinel errors shared by the api adapters in core/concurrency. Every
// primitive's own expected-condition errors (ErrExecutorClosed,
// ErrCanceledPromise, ErrRefused, ...) live next to that primitive in
// core/concurrency/errors.go; this file holds only the two conditions the
// api-level adapters themselves need to report, independent of any one
// concrete primitive.

package api

import "fmt"

var (
	// ErrInvalidArgument is returned when an api adapter is handed a value
	// it cannot act on, e.g. Scheduler.Cancel given a Cancelable it did not
	// create.
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// ErrOperationTimeout is returned (or, via ToAPIResult, embedded in a
	// Result) when a bounded wait expired before its operation completed.
	ErrOperationTimeout = fmt.Errorf("operation timeout")
)
