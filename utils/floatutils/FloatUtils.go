// Package floatutils provides small utilities for working with
// float64 slices.
package floatutils

// Max returns the maximum value in s and every index at which it
// occurs. Callers needing a single arg-max with random tie-breaking
// can draw uniformly from the returned indices.
func Max(s []float64) (float64, []int) {
	max := s[0]
	indices := []int{0}
	for i := 1; i < len(s); i++ {
		if s[i] > max {
			max = s[i]
			indices = indices[:0]
			indices = append(indices, i)
		} else if s[i] == max {
			indices = append(indices, i)
		}
	}
	return max, indices
}

// Min returns the minimum value in s and every index at which it
// occurs.
func Min(s []float64) (float64, []int) {
	min := s[0]
	indices := []int{0}
	for i := 1; i < len(s); i++ {
		if s[i] < min {
			min = s[i]
			indices = indices[:0]
			indices = append(indices, i)
		} else if s[i] == min {
			indices = append(indices, i)
		}
	}
	return min, indices
}

// Clip bounds x to the interval [lower, upper].
func Clip(x, lower, upper float64) float64 {
	if x < lower {
		return lower
	}
	if x > upper {
		return upper
	}
	return x
}
