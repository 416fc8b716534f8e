// Package reference builds a pooled copy-number reference from the bin
// coverages of several samples and screens its bins for quality.
package reference

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/exascience/pargo/parallel"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/fix"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/metrics"
)

// ErrProbesMismatch is returned when the bins of two coverage files differ.
var ErrProbesMismatch = errors.New("probes do not match")

// ErrNoInput is returned when no coverage file is given.
var ErrNoInput = errors.New("no input files")

// Options control how a reference is built.
type Options struct {
	// FastaPath is the genome used for GC and repeat content. Optional.
	FastaPath string
	// Sex is the sex-chromosome complement assumed for the reference.
	Sex cnary.Sex
	// Params holds the fixed constants.
	Params params.Params
}

// DefaultOptions returns options for a female reference without a genome.
func DefaultOptions() Options {
	return Options{Sex: cnary.Female, Params: params.Default()}
}

// Combine pools the coverages of several samples into one reference table.
// The first file is the anchor: every other file must hold exactly the same
// bins, otherwise ErrProbesMismatch is returned and nothing is built.
//
// Each sample is bias corrected, then every bin's log2 is the biweight
// location of the corrected values and its spread their biweight
// midvariance. A flat, copy-number neutral pseudo-sample is counted along
// with the samples.
func Combine(filenames []string, opts Options) (*cnary.Array, error) {
	if len(filenames) == 0 {
		return nil, ErrNoInput
	}
	slog.Info("Loading", "file", filenames[0])
	anchor, err := cnary.Read(filenames[0])
	if err != nil {
		return nil, err
	}

	if anchor.Len() == 0 {
		var cols []string
		if opts.FastaPath != "" || anchor.Has(cnary.ColGC) {
			cols = append(cols, cnary.ColGC)
		}
		if opts.FastaPath != "" {
			cols = append(cols, cnary.ColRmask)
		}
		cols = append(cols, cnary.ColSpread)
		return cnary.New(params.ReferenceSampleID, cols...), nil
	}

	content := make(map[string][]float64)
	switch {
	case opts.FastaPath != "":
		gc, rmask, err := FastaStats(anchor, opts.FastaPath)
		if err != nil {
			return nil, err
		}
		content[CovariateGC] = gc
		content[CovariateRmask] = rmask
	case anchor.Has(cnary.ColGC):
		// GC values computed upstream, e.g. imported from another pipeline.
		gc, _ := anchor.Column(cnary.ColGC)
		content[CovariateGC] = gc
	default:
		slog.Info("No FASTA reference genome provided; skipping GC, RM calculations")
	}

	flat := anchor.ExpectFlatLog2(opts.Sex)
	available := map[string][]float64{
		CovariateGC:      content[CovariateGC],
		CovariateRmask:   content[CovariateRmask],
		CovariateDensity: fix.EdgeBias(anchor, opts.Params.InsertSize),
	}
	covariates := orderedCovariates(available)

	corrected, err := BiasCorrect(anchor, flat, covariates, opts.Params.WindowFraction)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filenames[0], err)
	}
	// The flat pseudo-sample pulls each bin toward the neutral expectation.
	coverages := [][]float64{flat, corrected}

	for _, fname := range filenames[1:] {
		slog.Info("Loading", "file", fname)
		sample, err := cnary.Read(fname)
		if err != nil {
			return nil, err
		}
		if !cnary.SameBins(anchor, sample) {
			return nil, fmt.Errorf("%s: %w those in %s", fname, ErrProbesMismatch, filenames[0])
		}
		corrected, err := BiasCorrect(sample, flat, covariates, opts.Params.WindowFraction)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fname, err)
		}
		coverages = append(coverages, corrected)
	}

	slog.Info("Calculating average bin coverages", "samples", len(filenames), "bins", anchor.Len())
	centers, spreads := summarizeBins(coverages)

	out := cnary.New(params.ReferenceSampleID)
	for i := 0; i < anchor.Len(); i++ {
		b := anchor.Bin(i)
		b.Log2 = centers[i]
		out.Append(b)
	}
	if gc := content[CovariateGC]; gc != nil {
		if err := out.SetColumn(cnary.ColGC, gc); err != nil {
			return nil, err
		}
	}
	if rmask := content[CovariateRmask]; rmask != nil {
		if err := out.SetColumn(cnary.ColRmask, rmask); err != nil {
			return nil, err
		}
	}
	if err := out.SetColumn(cnary.ColSpread, spreads); err != nil {
		return nil, err
	}
	return out, nil
}

// summarizeBins computes, for each bin, the biweight location and
// midvariance across samples. coverages holds one vector per sample.
func summarizeBins(coverages [][]float64) (centers, spreads []float64) {
	n := len(coverages[0])
	centers = make([]float64, n)
	spreads = make([]float64, n)
	parallel.Range(0, n, 0, func(low, high int) {
		column := make([]float64, len(coverages))
		for i := low; i < high; i++ {
			for s, cvg := range coverages {
				column[s] = cvg[i]
			}
			centers[i] = metrics.BiweightLocation(column)
			spreads[i] = metrics.BiweightMidvariance(column)
		}
	})
	return centers, spreads
}

// IsAntitargetFile reports whether a coverage file holds antitarget bins,
// judging by its name.
func IsAntitargetFile(path string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(path)), "antitarget")
}

// Build pools target and antitarget coverage files separately, as told
// apart by IsAntitargetFile, and joins the two references in genomic order.
func Build(filenames []string, opts Options) (*cnary.Array, error) {
	var targets, antitargets []string
	for _, fname := range filenames {
		if IsAntitargetFile(fname) {
			antitargets = append(antitargets, fname)
		} else {
			targets = append(targets, fname)
		}
	}
	if len(targets) == 0 || len(antitargets) == 0 {
		return Combine(filenames, opts)
	}
	if len(targets) != len(antitargets) {
		slog.Warn("Unequal number of target and antitarget files", "targets", len(targets), "antitargets", len(antitargets))
	}
	tgt, err := Combine(targets, opts)
	if err != nil {
		return nil, err
	}
	anti, err := Combine(antitargets, opts)
	if err != nil {
		return nil, err
	}
	return cnary.Concat(params.ReferenceSampleID, tgt, anti).SortByPosition(), nil
}
