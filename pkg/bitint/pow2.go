// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to validate and size
spectrum buffers. Spectrum snapshots are always a power of two long, and the
FFT behind each snapshot is twice that length.

Usage:

	// Reject a spectrum length that the FFT cannot use
	ok := bitint.IsPowerOfTwo(sampleLength)

	// Suggest the nearest usable length in an error message
	size := bitint.NextPowerOfTwo(500) // Returns 512
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Subtracting one first keeps
// exact powers of two unchanged: 8-1 = 0b0111, Len = 3, 1<<3 = 8.
//
// Examples:
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2. A power of two has exactly one bit
// set, so n & (n-1) clears it to zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of two, or -1 if n is not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
