package fix

import (
	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
)

// EdgeBias quantifies, for every bin, the expected change in coverage due
// to its edges: the loss of coverage near both ends of the bin, offset by
// the reads spilling over from neighbors closer than insertSize. It is
// used as a covariate key, not as an actual coverage change.
//
// Bins are grouped by chromosome in order of appearance; the result is
// aligned with the table's rows.
func EdgeBias(a *cnary.Array, insertSize int) []float64 {
	bias := make([]float64, a.Len())
	i := 0
	for i < a.Len() {
		j := i + 1
		for j < a.Len() && a.Chromosome[j] == a.Chromosome[i] {
			j++
		}
		chromEdgeBias(a.Start[i:j], a.End[i:j], float64(insertSize), bias[i:j])
		i = j
	}
	return bias
}

func chromEdgeBias(starts, ends []int, insert float64, out []float64) {
	for k := range out {
		out[k] = -edgeLoss(float64(ends[k]-starts[k]), insert)
	}
	for k := 1; k < len(out); k++ {
		gap := float64(starts[k] - ends[k-1])
		if gap >= insert {
			continue
		}
		gap = max(0, gap)
		// Reads from the left neighbor spill into this bin and vice versa.
		out[k] += edgeGain(float64(ends[k]-starts[k]), gap, insert)
		out[k-1] += edgeGain(float64(ends[k-1]-starts[k-1]), gap, insert)
	}
}

// edgeLoss is the proportional coverage lost at both edges of a bin of
// size t, i/2t, reduced by (i-t)^2/2it when the insert is wider than the
// bin.
func edgeLoss(t, i float64) float64 {
	if t <= 0 {
		return 0
	}
	loss := i / (2 * t)
	if t < i {
		loss -= (i - t) * (i - t) / (2 * i * t)
	}
	return loss
}

// edgeGain is the proportional coverage a bin of size t gains from a
// neighbor g bases away, (i-g)^2/4it, minus (i-t-g)^2/4it for the part
// that extends past the far side of the bin.
func edgeGain(t, g, i float64) float64 {
	if t <= 0 {
		return 0
	}
	gain := (i - g) * (i - g) / (4 * i * t)
	if t+g < i {
		gain -= (i - t - g) * (i - t - g) / (4 * i * t)
	}
	return gain
}
