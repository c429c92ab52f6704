// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Goroutine identity used by Alert to key the per-goroutine mailbox.

package concurrency

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns a non-zero identifier stable for the lifetime of the
// calling goroutine. The runtime does not expose this value directly, so it
// is parsed out of the leading line of a captured stack trace ("goroutine
// 123 [running]: ..."), the same trick used by most goroutine-local-storage
// shims in the ecosystem.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]

	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		return 0
	}

	id, err := strconv.ParseUint(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
