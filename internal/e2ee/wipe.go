package e2ee

import "runtime"

// Wipe zeroes b. Best effort only; the runtime may have copied the bytes.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
