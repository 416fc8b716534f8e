package reference

import (
	"fmt"
	"log/slog"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/fix"
)

// Covariate is a per-bin value that coverage is corrected against.
type Covariate struct {
	Name   string
	Values []float64
}

// Covariates applied by BiasCorrect, in this order. The edge-density key
// is always present; GC and repeat content only when known.
const (
	CovariateGC      = "GC"
	CovariateRmask   = "RepeatMasker"
	CovariateDensity = "density"
)

var covariateOrder = []string{CovariateGC, CovariateRmask, CovariateDensity}

// orderedCovariates returns the available covariates in correction order.
func orderedCovariates(available map[string][]float64) []Covariate {
	var out []Covariate
	for _, name := range covariateOrder {
		if values, ok := available[name]; ok && values != nil {
			out = append(out, Covariate{Name: name, Values: values})
		}
	}
	return out
}

// ShiftSexChroms adds the flat baseline to every bin and shifts the sex
// chromosomes so that samples of either sex match the reference:
// an XX sample has chrY forced to -1, an XY sample gets +1 on chrX and chrY.
func ShiftSexChroms(a *cnary.Array, flat []float64) (*cnary.Array, error) {
	if len(flat) != a.Len() {
		return nil, fmt.Errorf("%w: %d baseline values for %d bins", cnary.ErrLength, len(flat), a.Len())
	}
	isXX := a.GuessXX(false)
	chrX, chrY := a.ChrXLabel(), a.ChrYLabel()
	log2 := make([]float64, a.Len())
	for i, v := range a.Log2 {
		log2[i] = v + flat[i]
		switch chrom := a.Chromosome[i]; {
		case isXX && chrom == chrY:
			log2[i] = -1
		case !isXX && (chrom == chrX || chrom == chrY):
			log2[i]++
		}
	}
	return a.WithLog2(log2)
}

// BiasCorrect removes systematic bias from one sample: it centers the
// sample, matches its sex chromosomes to the reference through the flat
// baseline, then applies a windowed correction for each covariate in turn.
// It returns the corrected log2 values; the input table is not modified.
func BiasCorrect(a *cnary.Array, flat []float64, covariates []Covariate, fraction float64) ([]float64, error) {
	corrected, err := ShiftSexChroms(a.CenterAll(), flat)
	if err != nil {
		return nil, err
	}
	for _, cov := range covariates {
		slog.Debug("Correcting for bias", "sample", a.SampleID, "covariate", cov.Name)
		corrected, err = fix.CenterByWindow(corrected, fraction, cov.Values)
		if err != nil {
			return nil, err
		}
	}
	return corrected.Log2, nil
}
