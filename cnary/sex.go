package cnary

import (
	"log/slog"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/metrics"
)

// Sex is the sex-chromosome complement of a sample or reference.
type Sex int

const (
	// Female is the XX complement.
	Female Sex = iota
	// Male is the XY complement.
	Male
)

func (s Sex) String() string {
	if s == Male {
		return "XY"
	}
	return "XX"
}

func (a *Array) hasChrPrefix() bool {
	for _, chrom := range a.Chromosome {
		if strings.HasPrefix(chrom, "chr") {
			return true
		}
	}
	return false
}

// ChrXLabel returns the name of the X chromosome, following the naming
// convention of the table's chromosomes.
func (a *Array) ChrXLabel() string {
	if a.hasChrPrefix() {
		return "chrX"
	}
	return "X"
}

// ChrYLabel returns the name of the Y chromosome.
func (a *Array) ChrYLabel() string {
	if a.hasChrPrefix() {
		return "chrY"
	}
	return "Y"
}

// RelativeChrXCoverage returns the median chrX log2 minus the median
// autosomal log2. ok is false when the table lacks chrX or autosomal bins.
func (a *Array) RelativeChrXCoverage() (rel float64, ok bool) {
	chrX, chrY := a.ChrXLabel(), a.ChrYLabel()
	var xs, auto []float64
	for i, chrom := range a.Chromosome {
		switch chrom {
		case chrX:
			xs = append(xs, a.Log2[i])
		case chrY:
		default:
			auto = append(auto, a.Log2[i])
		}
	}
	if len(xs) == 0 || len(auto) == 0 {
		return math.NaN(), false
	}
	return metrics.Median(xs) - metrics.Median(auto), true
}

// GuessXX guesses whether the sample is female from its relative chrX
// coverage. The cutoff is -0.5 for raw samples and +0.5 for samples that
// were already normalized against a male reference. A table without chrX
// bins is reported as not XX.
func (a *Array) GuessXX(maleReference bool) bool {
	cutoff := -0.5
	if maleReference {
		cutoff = 0.5
	}
	rel, ok := a.RelativeChrXCoverage()
	if !ok {
		slog.Warn("No X chromosome or autosome bins found; check the input", "sample", a.SampleID, "chromosome", a.ChrXLabel())
		return false
	}
	isXX := rel >= cutoff
	sex := Male
	if isXX {
		sex = Female
	}
	slog.Debug("Guessed sample sex", "sample", a.SampleID, "relative_chrx_log2", rel, "sex", sex)
	return isXX
}

// ExpectFlatLog2 returns the log2 value every bin of a copy-number neutral
// sample would have against a reference of the given sex: 0 on autosomes,
// -1 on chrX and chrY for a male reference, -1 on chrY only for a female
// reference.
func (a *Array) ExpectFlatLog2(reference Sex) []float64 {
	chrX, chrY := a.ChrXLabel(), a.ChrYLabel()
	flat := make([]float64, a.Len())
	for i, chrom := range a.Chromosome {
		switch {
		case chrom == chrY:
			flat[i] = -1
		case chrom == chrX && reference == Male:
			flat[i] = -1
		}
	}
	return flat
}

// CenterAll returns a copy of the table with the median autosomal log2
// subtracted from every bin. Without autosomal bins, all bins are used.
func (a *Array) CenterAll() *Array {
	out := a.Copy()
	if a.Len() == 0 {
		return out
	}
	chrX, chrY := a.ChrXLabel(), a.ChrYLabel()
	var auto []float64
	for i, chrom := range a.Chromosome {
		if chrom != chrX && chrom != chrY {
			auto = append(auto, a.Log2[i])
		}
	}
	if len(auto) == 0 {
		auto = a.Log2
	}
	floats.AddConst(-metrics.Median(auto), out.Log2)
	return out
}
