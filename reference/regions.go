package reference

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/regions"
)

// Bed2Probes reads an interval file into a neutral placeholder table: every
// numeric column, including gc, rmask and spread, is zero. The sample
// identifier is the file's base name.
func Bed2Probes(path string) (*cnary.Array, error) {
	regs, err := regions.Parse(path)
	if err != nil {
		return nil, err
	}
	bins := make([]cnary.Bin, len(regs))
	for i, r := range regs {
		bins[i] = cnary.Bin{Chromosome: r.Chromosome, Start: r.Start, End: r.End, Gene: r.Name}
	}
	return cnary.FromBins(cnary.SampleIDFromPath(path), bins, cnary.ColGC, cnary.ColRmask, cnary.ColSpread), nil
}

// FlatReference builds a reference without coverage data: every bin gets
// the log2 a copy-number neutral sample would have and a spread of 0.
// Antitarget bins are optional and are renamed "Background". GC and repeat
// content are filled in when a genome is given.
func FlatReference(targetsPath, antitargetsPath string, opts Options) (*cnary.Array, error) {
	ref, err := Bed2Probes(targetsPath)
	if err != nil {
		return nil, err
	}
	if antitargetsPath != "" {
		anti, err := Bed2Probes(antitargetsPath)
		if err != nil {
			return nil, err
		}
		for i := range anti.Gene {
			anti.Gene[i] = params.BackgroundName
		}
		ref = cnary.Concat(params.ReferenceSampleID, ref, anti).SortByPosition()
	}
	ref.SampleID = params.ReferenceSampleID

	if err := ref.SetColumn(cnary.ColLog2, ref.ExpectFlatLog2(opts.Sex)); err != nil {
		return nil, err
	}
	if opts.FastaPath != "" {
		gc, rmask, err := FastaStats(ref, opts.FastaPath)
		if err != nil {
			return nil, err
		}
		if err := ref.SetColumn(cnary.ColGC, gc); err != nil {
			return nil, err
		}
		if err := ref.SetColumn(cnary.ColRmask, rmask); err != nil {
			return nil, err
		}
	} else {
		slog.Info("No FASTA reference genome provided; skipping GC, RM calculations")
	}
	return ref, nil
}

// SplitTargets splits a reference into its target and antitarget bins.
func SplitTargets(ref *cnary.Array) (targets, antitargets *cnary.Array) {
	isBG := make([]bool, ref.Len())
	notBG := make([]bool, ref.Len())
	for i, gene := range ref.Gene {
		isBG[i] = cnary.IsBackground(gene)
		notBG[i] = !isBG[i]
	}
	return ref.Select(notBG), ref.Select(isBG)
}

// ReferenceToRegions returns the target and antitarget regions of a
// reference, as if read from two interval files. With coordOnly the
// regions carry no name.
func ReferenceToRegions(ref *cnary.Array, coordOnly bool) (targets, antitargets iter.Seq[regions.Region]) {
	tgt, anti := SplitTargets(ref)
	return tableRegions(tgt, coordOnly), tableRegions(anti, coordOnly)
}

func tableRegions(a *cnary.Array, coordOnly bool) iter.Seq[regions.Region] {
	return func(yield func(regions.Region) bool) {
		for i := 0; i < a.Len(); i++ {
			r := regions.Region{Chromosome: a.Chromosome[i], Start: a.Start[i], End: a.End[i]}
			if !coordOnly {
				r.Name = a.Gene[i]
			}
			if !yield(r) {
				return
			}
		}
	}
}

// WriteRegions writes the targets and antitargets of a reference to
// <prefix>.target.bed and <prefix>.antitarget.bed.
func WriteRegions(ref *cnary.Array, prefix string, coordOnly bool) error {
	targets, antitargets := ReferenceToRegions(ref, coordOnly)
	for suffix, seq := range map[string]iter.Seq[regions.Region]{
		".target.bed":     targets,
		".antitarget.bed": antitargets,
	} {
		if err := regions.WriteFile(prefix+suffix, slices.Collect(seq)); err != nil {
			return fmt.Errorf("writing %s%s: %w", prefix, suffix, err)
		}
	}
	return nil
}
