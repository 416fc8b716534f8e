package reference

import (
	"fmt"
	"io"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
)

// MaskBadProbes flags the bins with excessively low or inconsistent
// coverage: log2 below the minimum coverage, spread above the maximum
// spread, or, when known, a repeat-masked fraction above the maximum.
// Values exactly at a threshold pass. Tables without a spread column are
// only screened on coverage and repeats.
func MaskBadProbes(probes *cnary.Array, p params.Params) []bool {
	spread, _ := probes.Column(cnary.ColSpread)
	rmask, _ := probes.Column(cnary.ColRmask)
	mask := make([]bool, probes.Len())
	for i, log2 := range probes.Log2 {
		mask[i] = log2 < p.MinBinCoverage ||
			(spread != nil && spread[i] > p.MaxBinSpread) ||
			(rmask != nil && rmask[i] > p.MaxRepeatFraction)
	}
	return mask
}

// dittoMark replaces a gene name repeated from the previous report line.
const dittoMark = `  "`

// WarnBadProbes writes a report of the bins failing MaskBadProbes: one
// line per failing target bin and a summary line for targets and for
// antitargets. Nothing is written for a group without failures.
func WarnBadProbes(w io.Writer, probes *cnary.Array, p params.Params) error {
	mask := MaskBadProbes(probes, p)
	spread, _ := probes.Column(cnary.ColSpread)
	rmask, _ := probes.Column(cnary.ColRmask)

	var fgBad, bgBad []int
	var fgTotal, bgTotal int
	for i, gene := range probes.Gene {
		bg := cnary.IsBackground(gene)
		if bg {
			bgTotal++
		} else {
			fgTotal++
		}
		if !mask[i] {
			continue
		}
		if bg {
			bgBad = append(bgBad, i)
		} else {
			fgBad = append(fgBad, i)
		}
	}

	if len(fgBad) > 0 {
		pct := 100 * float64(len(fgBad)) / float64(fgTotal)
		if _, err := fmt.Fprintf(w, "*WARNING* %d targets (%.4f%%) failed filters:\n", len(fgBad), pct); err != nil {
			return err
		}
		labels := make([]string, len(fgBad))
		geneCols, labelCols := 0, 0
		for k, i := range fgBad {
			labels[k] = probes.Label(i)
			geneCols = max(geneCols, len(probes.Gene[i]))
			labelCols = max(labelCols, len(labels[k]))
		}
		lastGene := ""
		for k, i := range fgBad {
			gene := probes.Gene[i]
			if k > 0 && gene == lastGene {
				gene = dittoMark
			} else {
				lastGene = gene
			}
			line := fmt.Sprintf("  %-*s  %-*s  coverage=%.3f  spread=%.3f", geneCols, gene, labelCols, labels[k], probes.Log2[i], valueAt(spread, i))
			if rmask != nil {
				line += fmt.Sprintf("  rmask=%.3f", rmask[i])
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}

	if len(bgBad) > 0 {
		pct := 100 * float64(len(bgBad)) / float64(bgTotal)
		if _, err := fmt.Fprintf(w, "Antitargets: %d (%.4f%%) failed filters\n", len(bgBad), pct); err != nil {
			return err
		}
	}
	return nil
}

func valueAt(v []float64, i int) float64 {
	if v == nil {
		return 0
	}
	return v[i]
}
