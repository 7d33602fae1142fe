// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two arithmetic used for FFT window
validation and ring buffer sizing.

All operations are O(1), allocation-free, and safe to call from the audio
hot path.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Exact powers of 2 are returned unchanged; this relies on the (size-1)
// before bits.Len, which would otherwise double an exact power.
// Non-positive inputs return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// A power of 2 has exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
