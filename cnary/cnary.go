// Package cnary implements the bin table shared by every step of reference
// construction: an ordered set of genomic bins with a log2 coverage value,
// optional numeric annotation columns and a sample identifier.
//
// Tables are treated as values. Operations that change coverage return a new
// table and leave their receiver untouched.
package cnary

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
)

// Names of the fixed columns, in file order.
const (
	ColChromosome = "chromosome"
	ColStart      = "start"
	ColEnd        = "end"
	ColGene       = "gene"
	ColLog2       = "log2"
)

// Names of the optional numeric columns produced by this module.
const (
	ColDepth  = "depth"
	ColGC     = "gc"
	ColRmask  = "rmask"
	ColSpread = "spread"
	ColWeight = "weight"
)

// FixedColumns lists the columns every table carries.
var FixedColumns = []string{ColChromosome, ColStart, ColEnd, ColGene, ColLog2}

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrLength is returned when a column does not match the table length.
	ErrLength = errors.New("column length mismatch")
)

// Bin is a single row of a table.
type Bin struct {
	Chromosome string
	Start      int
	End        int
	Gene       string
	Log2       float64
}

// Array is a bin table.
type Array struct {
	SampleID string

	Chromosome []string
	Start      []int
	End        []int
	Gene       []string
	Log2       []float64

	extraNames []string
	extra      map[string][]float64
}

// New returns an empty table. Optional columns named in extra are declared
// up front, so they are listed by Columns even while the table has no rows.
func New(sampleID string, extra ...string) *Array {
	a := &Array{SampleID: sampleID, extra: make(map[string][]float64)}
	for _, name := range extra {
		if !a.Has(name) {
			a.extraNames = append(a.extraNames, name)
			a.extra[name] = []float64{}
		}
	}
	return a
}

// FromBins builds a table from rows. Every declared extra column is filled
// with zeros.
func FromBins(sampleID string, bins []Bin, extra ...string) *Array {
	a := New(sampleID, extra...)
	for _, b := range bins {
		a.Append(b)
	}
	for _, name := range a.extraNames {
		a.extra[name] = make([]float64, len(bins))
	}
	return a
}

// Append adds a row. Callers adding rows to a table with extra columns are
// responsible for extending those columns.
func (a *Array) Append(b Bin) {
	a.Chromosome = append(a.Chromosome, b.Chromosome)
	a.Start = append(a.Start, b.Start)
	a.End = append(a.End, b.End)
	a.Gene = append(a.Gene, b.Gene)
	a.Log2 = append(a.Log2, b.Log2)
}

// Len returns the number of bins.
func (a *Array) Len() int {
	return len(a.Chromosome)
}

// Bin returns row i.
func (a *Array) Bin(i int) Bin {
	return Bin{
		Chromosome: a.Chromosome[i],
		Start:      a.Start[i],
		End:        a.End[i],
		Gene:       a.Gene[i],
		Log2:       a.Log2[i],
	}
}

// Has reports whether the table carries the named column.
func (a *Array) Has(name string) bool {
	if slices.Contains(FixedColumns, name) {
		return true
	}
	_, ok := a.extra[name]
	return ok
}

// Columns returns all column names in order.
func (a *Array) Columns() []string {
	return append(slices.Clone(FixedColumns), a.extraNames...)
}

// ExtraColumns returns the names of the optional numeric columns in order.
func (a *Array) ExtraColumns() []string {
	return slices.Clone(a.extraNames)
}

// Column returns a numeric column by name: log2, start, end or any optional
// column. The returned slice must not be modified.
func (a *Array) Column(name string) ([]float64, error) {
	switch name {
	case ColLog2:
		return a.Log2, nil
	case ColStart, ColEnd:
		src := a.Start
		if name == ColEnd {
			src = a.End
		}
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out, nil
	}
	if v, ok := a.extra[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
}

// SetColumn sets or adds an optional numeric column in place.
func (a *Array) SetColumn(name string, values []float64) error {
	if slices.Contains(FixedColumns, name) {
		if name != ColLog2 {
			return fmt.Errorf("column %s is not numeric", name)
		}
		if len(values) != a.Len() {
			return fmt.Errorf("%w: %s has %d values for %d bins", ErrLength, name, len(values), a.Len())
		}
		a.Log2 = values
		return nil
	}
	if len(values) != a.Len() {
		return fmt.Errorf("%w: %s has %d values for %d bins", ErrLength, name, len(values), a.Len())
	}
	if _, ok := a.extra[name]; !ok {
		a.extraNames = append(a.extraNames, name)
	}
	a.extra[name] = values
	return nil
}

// Copy returns a deep copy of the table.
func (a *Array) Copy() *Array {
	c := &Array{
		SampleID:   a.SampleID,
		Chromosome: slices.Clone(a.Chromosome),
		Start:      slices.Clone(a.Start),
		End:        slices.Clone(a.End),
		Gene:       slices.Clone(a.Gene),
		Log2:       slices.Clone(a.Log2),
		extraNames: slices.Clone(a.extraNames),
		extra:      make(map[string][]float64, len(a.extra)),
	}
	for name, v := range a.extra {
		c.extra[name] = slices.Clone(v)
	}
	return c
}

// WithLog2 returns a copy of the table carrying new log2 values.
func (a *Array) WithLog2(log2 []float64) (*Array, error) {
	if len(log2) != a.Len() {
		return nil, fmt.Errorf("%w: %d log2 values for %d bins", ErrLength, len(log2), a.Len())
	}
	c := a.Copy()
	c.Log2 = slices.Clone(log2)
	return c, nil
}

// Select returns the rows where mask is true, in order.
func (a *Array) Select(mask []bool) *Array {
	out := New(a.SampleID, a.extraNames...)
	for i, keep := range mask {
		if !keep {
			continue
		}
		out.Append(a.Bin(i))
		for _, name := range a.extraNames {
			out.extra[name] = append(out.extra[name], a.extra[name][i])
		}
	}
	return out
}

// Concat returns the rows of a followed by the rows of b. Optional columns
// missing from one side are filled with zeros.
func Concat(sampleID string, a, b *Array) *Array {
	out := New(sampleID, a.extraNames...)
	for _, name := range b.extraNames {
		if !out.Has(name) {
			out.extraNames = append(out.extraNames, name)
			out.extra[name] = []float64{}
		}
	}
	for _, src := range []*Array{a, b} {
		for i := 0; i < src.Len(); i++ {
			out.Append(src.Bin(i))
		}
		for _, name := range out.extraNames {
			v, ok := src.extra[name]
			if !ok {
				v = make([]float64, src.Len())
			}
			out.extra[name] = append(out.extra[name], v...)
		}
	}
	return out
}

// SortByPosition sorts bins by chromosome, in order of first appearance,
// then by start and end.
func (a *Array) SortByPosition() *Array {
	rank := make(map[string]int)
	for _, chrom := range a.Chromosome {
		if _, ok := rank[chrom]; !ok {
			rank[chrom] = len(rank)
		}
	}
	order := make([]int, a.Len())
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int {
		if c := rank[a.Chromosome[i]] - rank[a.Chromosome[j]]; c != 0 {
			return c
		}
		if c := a.Start[i] - a.Start[j]; c != 0 {
			return c
		}
		return a.End[i] - a.End[j]
	})
	return a.reorder(order)
}

func (a *Array) reorder(order []int) *Array {
	out := New(a.SampleID, a.extraNames...)
	for _, i := range order {
		out.Append(a.Bin(i))
	}
	for _, name := range a.extraNames {
		v := make([]float64, len(order))
		for k, i := range order {
			v[k] = a.extra[name][i]
		}
		out.extra[name] = v
	}
	return out
}

// Label formats the coordinates of row i as chrom:start-end.
func (a *Array) Label(i int) string {
	return fmt.Sprintf("%s:%d-%d", a.Chromosome[i], a.Start[i], a.End[i])
}

// SameBins reports whether two tables hold identical chromosome, start,
// end and gene sequences.
func SameBins(a, b *Array) bool {
	return a.Len() == b.Len() &&
		slices.Equal(a.Chromosome, b.Chromosome) &&
		slices.Equal(a.Start, b.Start) &&
		slices.Equal(a.End, b.End) &&
		slices.Equal(a.Gene, b.Gene)
}

// IsBackground reports whether a gene name marks an antitarget bin.
func IsBackground(gene string) bool {
	return gene == params.BackgroundName
}

// SampleIDFromPath derives a sample identifier from a file name: the base
// name without ".gz" and without its coverage extension.
func SampleIDFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".gz")
	for _, ext := range multipartExts {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

var multipartExts = []string{
	".antitargetcoverage.cnn",
	".targetcoverage.cnn",
	".antitargetcoverage.npz",
	".targetcoverage.npz",
}
