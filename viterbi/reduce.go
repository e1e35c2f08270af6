package viterbi

import "math"

// argmaxSkipNaN returns the index of the largest non-NaN value in
// values and that value. Ties go to the lowest index. It returns -1 when
// every value is NaN.
func argmaxSkipNaN(values []float64) (int, float64) {
	best := -1
	max := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > max {
			best = i
			max = v
		}
	}
	return best, max
}
