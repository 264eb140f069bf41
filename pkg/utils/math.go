// Package utils provides small arithmetic and conversion helpers shared across modules.
package utils

import "math"

// SaturatingAddUint64 adds b to a, clamping at the maximum representable value
// instead of wrapping. Lifetime counters must never decrease through overflow.
func SaturatingAddUint64(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// SaturatingSubUint64 subtracts b from a, flooring at zero.
func SaturatingSubUint64(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// FloorDiv divides a by b rounding toward negative infinity. Go's integer
// division truncates toward zero, which is wrong for day buckets of
// pre-epoch timestamps.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
