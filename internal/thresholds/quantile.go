package thresholds

import "sort"

// computeQuantile uses linear interpolation between order statistics.
// sorted must be pre-sorted ASC.
// p is the quantile in [0,1] (0.10 = 10th percentile).
//
// Position: p * (n-1). The interpolation step is evaluated from the nearer
// neighbour so that p=0.5 on two values lands exactly on their midpoint.
func computeQuantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for quantile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return lerp(sorted[lower], sorted[upper], frac)
}

// lerp interpolates between a and b.
func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - diff*(1-t)
	}
	return a + diff*t
}

// computeMedian returns the middle value, or the mean of the two middle values.
// sorted must be pre-sorted ASC.
func computeMedian(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// sortedCopy returns an ascending copy of values.
func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}
