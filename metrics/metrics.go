// Package metrics implements the outlier-resistant estimators used to pool
// bin coverages across samples.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	locationTuning = 6.0
	scaleTuning    = 9.0
	epsilon        = 1e-4
)

// Median returns the median of x, averaging the two middle values when the
// length is even. It returns NaN for empty input and does not modify x.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	s := make([]float64, n)
	copy(s, x)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// MedianAbsoluteDeviation returns the unscaled median of |x - median(x)|.
func MedianAbsoluteDeviation(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	mid := Median(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - mid)
	}
	return Median(dev)
}

// BiweightLocation is Tukey's biweight estimate of central tendency,
// starting from the median.
func BiweightLocation(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return biweightLocation(x, Median(x), locationTuning)
}

func biweightLocation(x []float64, initial, c float64) float64 {
	scale := math.Max(c*MedianAbsoluteDeviation(x), epsilon)
	var num, weightSum float64
	for _, v := range x {
		d := v - initial
		u := d / scale
		if math.Abs(u) >= 1 {
			continue
		}
		w := (1 - u*u) * (1 - u*u)
		num += d * w
		weightSum += w
	}
	if weightSum == 0 {
		// Not enough variation to improve on the initial estimate.
		return initial
	}
	return initial + num/weightSum
}

// BiweightMidvariance is the biweight estimate of dispersion around the
// biweight location. It is 0 when every value is identical.
func BiweightMidvariance(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	initial := BiweightLocation(x)
	scale := math.Max(scaleTuning*MedianAbsoluteDeviation(x), epsilon)
	d := make([]float64, len(x))
	copy(d, x)
	floats.AddConst(-initial, d)

	var n int
	var num, den float64
	for _, di := range d {
		u2 := (di / scale) * (di / scale)
		if u2 >= 1 {
			continue
		}
		n++
		num += di * di * math.Pow(1-u2, 4)
		den += (1 - u2) * (1 - 5*u2)
	}
	if n == 0 || den == 0 {
		return 0
	}
	return math.Sqrt(float64(n)) * math.Sqrt(num) / math.Abs(den)
}
