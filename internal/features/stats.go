package features

import "math"

// computeMean calculates arithmetic mean of monthly quantities.
func computeMean(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
// Returns NaN for fewer than 2 values: the sample estimator is undefined there.
func computeStddev(values []int64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	sumSq := 0.0
	for _, v := range values {
		diff := float64(v) - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeMax returns the largest value, 0 for an empty slice.
func computeMax(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// computeCV returns stddev / mean, or 0 when mean is 0 or the ratio is not finite.
func computeCV(stddev, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	cv := stddev / mean
	if math.IsNaN(cv) || math.IsInf(cv, 0) {
		return 0
	}
	return cv
}
