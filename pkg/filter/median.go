// Package filter reduces a batch of repeated resistance readings to one value.
package filter

import (
	"math"
	"slices"
)

// Median returns the median of batch without modifying it.
//
// For an even count the two central values are averaged. Negative and
// non-finite values take part in the ordering like any other value; NaN sorts
// before every number. An empty batch yields NaN.
func Median(batch []float64) float64 {
	n := len(batch)
	if n == 0 {
		return math.NaN()
	}

	sorted := make([]float64, n)
	copy(sorted, batch)
	slices.Sort(sorted)

	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}
