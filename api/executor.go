// Package api
// Author: momentics
//
// Executor is the public-facing contract behind
// core/concurrency.WorkExecutor, the worker pool that backs
// BatchConsumer.SetExecutor's parallel fan-out. Code that only needs to
// submit work and query/resize the pool — without depending on the
// concrete WorkExecutor type — programs against this interface instead,
// obtained via core/concurrency.AsAPIExecutor.

package api

// Executor abstracts parallel task dispatch and worker-pool sizing.
type Executor interface {
    // Submit schedules task for execution.
    Submit(task func()) error

    // NumWorkers returns current number of active worker routines.
    NumWorkers() int

    // Resize adjusts the concurrency at runtime.
    Resize(newCount int)
}
