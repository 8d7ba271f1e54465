// Package memzero wipes secret buffers.
package memzero

import "runtime"

// Zero overwrites b with zeros. It is best-effort: the runtime may have
// copied the bytes elsewhere before the call.
//
//go:noinline
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
