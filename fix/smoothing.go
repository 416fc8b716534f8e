package fix

import (
	"math"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/metrics"
)

// wing returns the half-width of a rolling window covering the given
// fraction of n values, kept within [1, n-1].
func wing(n int, fraction float64) int {
	w := int(math.Ceil(float64(n) * fraction * 0.5))
	return max(1, min(w, n-1))
}

// RollingMedian returns the median of a window centered on each value of
// x. The window spans the given fraction of all values; the edges are
// padded with a mirror image of the signal. Inputs shorter than two values
// are returned unchanged.
func RollingMedian(x []float64, fraction float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n < 2 {
		copy(out, x)
		return out
	}
	w := wing(n, fraction)
	signal := make([]float64, 0, n+2*w)
	for i := w - 1; i >= 0; i-- {
		signal = append(signal, x[i])
	}
	signal = append(signal, x...)
	for i := n - 1; i >= n-w; i-- {
		signal = append(signal, x[i])
	}
	for i := range out {
		out[i] = metrics.Median(signal[i : i+2*w+1])
	}
	return out
}
