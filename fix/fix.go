// Package fix removes systematic coverage biases from a sample's bins.
package fix

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
)

// shuffleSeed makes the tie-breaking shuffle of CenterByWindow
// reproducible across runs.
const shuffleSeed = 0xA5EED

// CenterByWindow subtracts from each bin's log2 the rolling median of bins
// with a similar value of key, e.g. GC content. Neighboring bins are
// shuffled before sorting by key so that bins with tied keys, such as the
// bins of one CNV, do not share a window. The returned table keeps the
// input's bin order; only log2 changes.
func CenterByWindow(a *cnary.Array, fraction float64, key []float64) (*cnary.Array, error) {
	n := a.Len()
	if len(key) != n {
		return nil, fmt.Errorf("%w: %d key values for %d bins", cnary.ErrLength, len(key), n)
	}
	if n == 0 {
		return a.Copy(), nil
	}

	order := rand.New(rand.NewSource(shuffleSeed)).Perm(n)
	sort.SliceStable(order, func(i, j int) bool {
		return key[order[i]] < key[order[j]]
	})

	sorted := make([]float64, n)
	for k, i := range order {
		sorted[k] = a.Log2[i]
	}
	biases := RollingMedian(sorted, fraction)

	log2 := make([]float64, n)
	for k, i := range order {
		log2[i] = a.Log2[i] - biases[k]
	}
	return a.WithLog2(log2)
}
