// File: api/shutdown.go
// Package api defines a unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is satisfied by every stoppable kernel component
// (WorkExecutor, ThreadPool, Scheduler) via the adapters in
// core/concurrency/api_adapters.go, so a caller holding only the
// interface can tear any of them down uniformly.
type GracefulShutdown interface {
	// Shutdown stops the component and releases its resources. Idempotent
	// on every adapted implementation; returns an error only if the
	// underlying stop failed.
	Shutdown() error
}
