// Package pool
// Author: momentics <momentics@gmail.com>
//
// Generic object pooling on top of sync.Pool, used by core/concurrency to
// recycle high-churn allocations (ThreadPool wait tickets) without a GC
// round trip per wait/wake cycle.
package pool
