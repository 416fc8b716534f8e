package reference

import (
	"fmt"
	"log/slog"

	"github.com/exascience/pargo/parallel"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/fasta"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/regions"
)

// CalculateGCLo returns the GC fraction and the lowercase (repeat-masked)
// fraction of a sequence. Only A, C, G and T in either case are counted;
// a sequence without any of them yields (0, 0).
func CalculateGCLo(seq []byte) (gc, lo float64) {
	var atLo, atUp, gcLo, gcUp int
	for _, b := range seq {
		switch b {
		case 'a', 't':
			atLo++
		case 'A', 'T':
			atUp++
		case 'g', 'c':
			gcLo++
		case 'G', 'C':
			gcUp++
		}
	}
	total := float64(atLo + atUp + gcLo + gcUp)
	if total == 0 {
		return 0, 0
	}
	return float64(gcLo+gcUp) / total, float64(atLo+gcLo) / total
}

// GenomicContent computes the GC and repeat-masked fractions of every
// interval from a FASTA genome, indexing the genome first if needed. The
// results are aligned with the input intervals.
func GenomicContent(fastaPath string, intervals []regions.Region) (gc, rmask []float64, err error) {
	r, err := fasta.Open(fastaPath)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	slog.Info("Calculating GC and RepeatMasker content", "file", fastaPath, "bins", len(intervals))
	gc = make([]float64, len(intervals))
	rmask = make([]float64, len(intervals))
	errs := make([]error, len(intervals))
	parallel.Range(0, len(intervals), 0, func(low, high int) {
		for i := low; i < high; i++ {
			iv := intervals[i]
			seq, err := r.Fetch(iv.Chromosome, iv.Start, iv.End)
			if err != nil {
				errs[i] = err
				continue
			}
			gc[i], rmask[i] = CalculateGCLo(seq)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", fastaPath, err)
		}
	}
	return gc, rmask, nil
}

// FastaStats computes the GC and repeat-masked fractions of each bin.
func FastaStats(a *cnary.Array, fastaPath string) (gc, rmask []float64, err error) {
	return GenomicContent(fastaPath, binRegions(a))
}

func binRegions(a *cnary.Array) []regions.Region {
	out := make([]regions.Region, a.Len())
	for i := range out {
		out[i] = regions.Region{Chromosome: a.Chromosome[i], Start: a.Start[i], End: a.End[i], Name: a.Gene[i]}
	}
	return out
}
