// Package coverage computes the mean read depth of genomic bins from
// aligned reads and writes it as a bin table.
package coverage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/biogo/store/interval"
	"gonum.org/v1/gonum/stat"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/regions"
)

// Options select the reads that count towards depth.
type Options struct {
	// MinMapQ is the lowest mapping quality accepted.
	MinMapQ int
	// KeepDuplicates counts reads flagged as duplicates.
	KeepDuplicates bool
	// FastaPath is the genome used to decode CRAM input.
	FastaPath string
	Params    params.Params
}

// DefaultOptions returns the read filters used when none are given.
func DefaultOptions() Options {
	return Options{Params: params.Default()}
}

// RecordReader yields alignment records until io.EOF.
type RecordReader interface {
	Read() (*sam.Record, error)
}

type pipe struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (p *pipe) Close() error {
	if err := p.cmd.Wait(); err != nil {
		return err
	}
	return p.ReadCloser.Close()
}

// Reader is a BAM reader that also releases its underlying source.
type Reader struct {
	*bam.Reader
	src io.Closer
}

// Close closes the decoder and its source.
func (r *Reader) Close() error {
	err := r.Reader.Close()
	if cerr := r.src.Close(); err == nil {
		err = cerr
	}
	return err
}

// NewReader opens an alignment file. BAM is decoded directly; anything else,
// CRAM included, is piped through samtools with fasta as the reference.
func NewReader(path, fasta string) (*Reader, error) {
	if strings.EqualFold(filepath.Ext(path), ".bam") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		br, err := bam.NewReader(f, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &Reader{Reader: br, src: f}, nil
	}

	args := []string{"view", "-b", "-u", "-h"}
	if fasta != "" {
		args = append(args, "-T", fasta)
	}
	cmd := exec.Command("samtools", append(args, path)...)
	cmd.Stderr = os.Stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		out.Close()
		return nil, err
	}
	p := &pipe{ReadCloser: out, cmd: cmd}
	br, err := bam.NewReader(p, 0)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{Reader: br, src: p}, nil
}

// Pass reports whether a record counts towards depth.
func (o Options) Pass(r *sam.Record) bool {
	if r.Ref == nil || r.Pos < 0 {
		return false
	}
	if r.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary|sam.QCFail) != 0 {
		return false
	}
	if r.Flags&sam.Duplicate != 0 && !o.KeepDuplicates {
		return false
	}
	return int(r.MapQ) >= o.MinMapQ
}

// bin is a region stored in a per-chromosome interval tree.
type bin struct {
	idx        int
	start, end int
}

func (b bin) Overlap(r interval.IntRange) bool { return b.end > r.Start && b.start < r.End }
func (b bin) ID() uintptr                      { return uintptr(b.idx) }
func (b bin) Range() interval.IntRange         { return interval.IntRange{Start: b.start, End: b.end} }

// block is an aligned stretch of a read, used as a tree query.
type block struct{ start, end int }

func (q block) Overlap(r interval.IntRange) bool { return q.end > r.Start && q.start < r.End }

// buildTrees indexes the regions by chromosome. Empty regions are left out;
// they never overlap a read.
func buildTrees(regs []regions.Region) (map[string]*interval.IntTree, error) {
	trees := make(map[string]*interval.IntTree)
	for i, r := range regs {
		if r.End <= r.Start {
			continue
		}
		t, ok := trees[r.Chromosome]
		if !ok {
			t = &interval.IntTree{}
			trees[r.Chromosome] = t
		}
		if err := t.Insert(bin{idx: i, start: r.Start, end: r.End}, true); err != nil {
			return nil, fmt.Errorf("indexing %s: %w", r, err)
		}
	}
	for _, t := range trees {
		t.AdjustRanges()
	}
	return trees, nil
}

// credit adds the overlap of [start, end) to every bin it touches.
func credit(t *interval.IntTree, bases []float64, start, end int) {
	t.DoMatching(func(e interval.IntInterface) bool {
		b := e.(bin)
		if n := min(end, b.end) - max(start, b.start); n > 0 {
			bases[b.idx] += float64(n)
		}
		return false
	}, block{start: start, end: end})
}

// alignedBlocks returns the reference intervals covered by a read. Matches,
// mismatches and deletions count; insertions, clips and skipped regions do
// not.
func alignedBlocks(r *sam.Record) [][2]int {
	var blocks [][2]int
	pos := r.Pos
	for _, co := range r.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch, sam.CigarDeletion:
			if k := len(blocks); k > 0 && blocks[k-1][1] == pos {
				blocks[k-1][1] = pos + n
			} else {
				blocks = append(blocks, [2]int{pos, pos + n})
			}
			pos += n
		case sam.CigarSkipped:
			pos += n
		}
	}
	return blocks
}

// Depth returns the mean read depth of every region, in region order.
func Depth(rr RecordReader, regs []regions.Region, opts Options) ([]float64, error) {
	trees, err := buildTrees(regs)
	if err != nil {
		return nil, err
	}
	bases := make([]float64, len(regs))
	var (
		current string
		counted int
	)
	for {
		rec, err := rr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if !opts.Pass(rec) {
			continue
		}
		if name := rec.Ref.Name(); name != current {
			slog.Debug("Processing chromosome", "chromosome", name)
			current = name
		}
		t, ok := trees[rec.Ref.Name()]
		if !ok {
			continue
		}
		for _, b := range alignedBlocks(rec) {
			credit(t, bases, b[0], b[1])
		}
		counted++
	}
	slog.Debug("Counted reads", "reads", counted)

	for i, r := range regs {
		if size := r.End - r.Start; size > 0 {
			bases[i] /= float64(size)
		} else {
			bases[i] = 0
		}
	}
	return bases, nil
}

// Table turns region depths into a bin table with log2 and depth columns.
// Bins without coverage get the null log2 value.
func Table(sampleID string, regs []regions.Region, depth []float64, p params.Params) (*cnary.Array, error) {
	if len(depth) != len(regs) {
		return nil, fmt.Errorf("%w: %d depths for %d regions", cnary.ErrLength, len(depth), len(regs))
	}
	a := cnary.New(sampleID)
	for i, r := range regs {
		log2 := p.NullLog2Coverage
		if depth[i] > 0 {
			log2 = math.Log2(depth[i])
		}
		gene := r.Name
		if gene == "" {
			gene = regions.NoName
		}
		a.Append(cnary.Bin{Chromosome: r.Chromosome, Start: r.Start, End: r.End, Gene: gene, Log2: log2})
	}
	if err := a.SetColumn(cnary.ColDepth, slices.Clone(depth)); err != nil {
		return nil, err
	}
	return a, nil
}

// Calculate reads an alignment file and returns the coverage table of the
// regions in regionsPath.
func Calculate(alignPath, regionsPath string, opts Options) (*cnary.Array, error) {
	regs, err := regions.Parse(regionsPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Calculating coverage", "file", alignPath, "bins", len(regs))

	r, err := NewReader(alignPath, opts.FastaPath)
	if err != nil {
		return nil, err
	}
	depth, err := Depth(r, regs, opts)
	if cerr := r.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", alignPath, err)
	}

	if len(depth) > 0 {
		mean, sd := stat.MeanStdDev(depth, nil)
		slog.Info("Coverage summary", "bins", len(depth), "mean_depth", mean, "sd_depth", sd)
	}
	return Table(cnary.SampleIDFromPath(alignPath), regs, depth, opts.Params)
}
