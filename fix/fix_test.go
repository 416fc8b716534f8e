package fix

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
)

func TestRollingMedian(t *testing.T) {
	flat := RollingMedian([]float64{2, 2, 2, 2, 2}, 0.5)
	if !slices.Equal(flat, []float64{2, 2, 2, 2, 2}) {
		t.Errorf("rolling median of a constant = %v", flat)
	}
	// One outlier among ten values is smoothed away by a 3-wide window.
	x := []float64{0, 0, 0, 0, 9, 0, 0, 0, 0, 0}
	got := RollingMedian(x, 0.2)
	for i, v := range got {
		if v != 0 {
			t.Errorf("rolling median[%d] = %g, want 0", i, v)
		}
	}
	if got := RollingMedian([]float64{5}, 0.1); !slices.Equal(got, []float64{5}) {
		t.Errorf("single value = %v", got)
	}
	if got := RollingMedian(nil, 0.1); len(got) != 0 {
		t.Errorf("empty input = %v", got)
	}
}

func TestWing(t *testing.T) {
	tests := []struct {
		n        int
		fraction float64
		want     int
	}{
		{100, 0.1, 5},
		{101, 0.1, 6},
		{10, 0.1, 1},
		{2, 0.9, 1},
	}
	for _, tt := range tests {
		if got := wing(tt.n, tt.fraction); got != tt.want {
			t.Errorf("wing(%d, %g) = %d, want %d", tt.n, tt.fraction, got, tt.want)
		}
	}
}

func trendTable(n int) (*cnary.Array, []float64) {
	bins := make([]cnary.Bin, n)
	key := make([]float64, n)
	for i := range bins {
		// The key runs backwards along the genome, and log2 follows the key.
		key[i] = float64(n-i) / float64(n)
		bins[i] = cnary.Bin{Chromosome: "chr1", Start: i * 100, End: i*100 + 100, Gene: "G", Log2: 2 * key[i]}
	}
	return cnary.FromBins("s", bins), key
}

func TestCenterByWindowRemovesTrend(t *testing.T) {
	a, key := trendTable(200)
	fixed, err := CenterByWindow(a, 0.1, key)
	if err != nil {
		t.Fatal(err)
	}
	if !cnary.SameBins(a, fixed) {
		t.Fatal("bin order changed")
	}
	for i, v := range fixed.Log2 {
		if math.Abs(v) > 0.1 {
			t.Errorf("bin %d: residual %g after correction", i, v)
		}
	}
	if a.Log2[0] != 2 {
		t.Error("input table was modified")
	}
}

func TestCenterByWindowDeterministic(t *testing.T) {
	a, _ := trendTable(50)
	key := make([]float64, 50)
	first, err := CenterByWindow(a, 0.1, key)
	if err != nil {
		t.Fatal(err)
	}
	second, err := CenterByWindow(a, 0.1, key)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(first.Log2, second.Log2) {
		t.Error("tied keys gave different corrections across runs")
	}
}

func TestCenterByWindowKeyLength(t *testing.T) {
	a, _ := trendTable(10)
	if _, err := CenterByWindow(a, 0.1, []float64{1}); !errors.Is(err, cnary.ErrLength) {
		t.Errorf("expected ErrLength, got %v", err)
	}
}

func TestEdgeBias(t *testing.T) {
	a := cnary.FromBins("s", []cnary.Bin{
		{Chromosome: "chr1", Start: 0, End: 1000},
		{Chromosome: "chr1", Start: 1000, End: 2000},
		{Chromosome: "chr1", Start: 10000, End: 11000},
		{Chromosome: "chr2", Start: 11000, End: 12000},
	})
	got := EdgeBias(a, 250)
	// Adjacent 1000 bp bins: -250/2000 loss plus 250^2/(4*250*1000) gain.
	want := []float64{-0.0625, -0.0625, -0.125, -0.125}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("edge bias[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestEdgeLossSmallBin(t *testing.T) {
	// A 100 bp bin under a 250 bp insert: 250/200 - 150^2/(2*250*100).
	want := 1.25 - 22500.0/50000.0
	if got := edgeLoss(100, 250); math.Abs(got-want) > 1e-12 {
		t.Errorf("edgeLoss = %g, want %g", got, want)
	}
}
