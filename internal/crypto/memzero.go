package crypto

import "dissent/internal/util/memzero"

// Wipe zeroes the provided buffer.
func Wipe(b []byte) { memzero.Zero(b) }
