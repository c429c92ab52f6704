// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract pooling contract satisfied by pool.SyncPool[T] and
// consumed internally by this kernel's own high-churn allocations (ticket
// recycling in waitqueue.go). There is deliberately no byte-buffer pool
// here: this kernel pools fixed-shape Go values (tickets, observer nodes),
// never wire-format byte slices, so a BytePool contract would have no
// implementation anywhere in this tree.

package api

// ObjectPool provides generic pooling of Go objects allocated transiently
type ObjectPool[T any] interface {
	// Get returns an available instance from pool
	Get() T

	// Put returns an instance for reuse
	Put(obj T)
}
