// Package utils contains small numeric and scheduling helpers shared by the
// stereo pipeline packages.
package utils

import (
	"math"
	"math/rand"
	"sort"
)

// MaxInt returns the larger of two ints.
func MaxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}

// MinInt returns the smaller of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// AbsInt returns the absolute value of an int.
func AbsInt(n int) int {
	if n < 0 {
		return -1 * n
	}
	return n
}

// Clamp returns x bounded to [min, max].
func Clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

// Median sorts a copy of the values and returns the middle one.
func Median(values ...float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	copied := make([]float64, len(values))
	copy(copied, values)
	sort.Float64s(copied)

	return copied[int(math.Floor(float64(len(copied))/2))]
}

// SampleRandomIntRange samples a random integer within a range given by [min, max]
// using the given rand.Rand.
func SampleRandomIntRange(min, max int, r *rand.Rand) int {
	return r.Intn(max-min+1) + min
}

// MakeRangeArray returns a symmetric array of offsets of the given length,
// e.g. 5 -> {-2, -1, 0, 1, 2}. For an even length the origin sits to the
// right of middle, e.g. 4 -> {-2, -1, 0, 1}.
func MakeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	var span int
	if length%2 == 0 {
		oddArr := MakeRangeArray(length - 1)
		span = length / 2
		rangeArray = append([]int{-span}, oddArr...)
	} else {
		span = (length - 1) / 2
		for i := 0; i < span; i++ {
			rangeArray[length-1-i] = span - i
			rangeArray[i] = -span + i
		}
	}
	return rangeArray
}
