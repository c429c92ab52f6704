// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PinCurrentThread is a portable, cgo-free stand-in for NUMA/core affinity:
// it locks the calling goroutine to its current OS thread so a worker's
// subsequent syscalls and scheduling stay on one M, without depending on
// libnuma or any platform-specific pinning API. numaNode and id are accepted
// for call-site compatibility with a real pinning backend and are otherwise
// ignored.

package concurrency

import "runtime"

// PinCurrentThread locks the calling goroutine to its current OS thread.
// It never fails on a platform Go itself runs on, so it always returns nil;
// the error return exists for symmetry with a future real affinity backend
// that could fail to pin.
func PinCurrentThread(numaNode, id int) error {
	runtime.LockOSThread()
	return nil
}
