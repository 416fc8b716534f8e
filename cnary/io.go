package cnary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/sbinet/npyio/npz"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/fileio"
)

// ErrFormat is returned for malformed table files.
var ErrFormat = errors.New("malformed table")

// Read loads a table from a tab-separated .cnn/.cnr file (optionally
// gzip-compressed) or from an .npz archive written by Write. The sample
// identifier is derived from the file name.
func Read(path string) (*Array, error) {
	if isNpz(path) {
		return readNpz(path)
	}
	f, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := ReadTSV(f, SampleIDFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Loaded table", "file", path, "bins", a.Len())
	return a, nil
}

// ReadTSV parses a tab-separated table with a header line.
func ReadTSV(r io.Reader, sampleID string) (*Array, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header []string
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			header = strings.Split(line, "\t")
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("%w: no header line", ErrFormat)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range []string{ColChromosome, ColStart, ColEnd, ColLog2} {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	geneIdx, hasGene := index[ColGene]

	var extraNames []string
	var extraIdx []int
	for i, name := range header {
		if !slices.Contains(FixedColumns, name) {
			extraNames = append(extraNames, name)
			extraIdx = append(extraIdx, i)
		}
	}

	a := New(sampleID, extraNames...)
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, expected %d", ErrFormat, lineNo, len(fields), len(header))
		}
		start, err := strconv.Atoi(fields[index[ColStart]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: start: %v", ErrFormat, lineNo, err)
		}
		end, err := strconv.Atoi(fields[index[ColEnd]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: end: %v", ErrFormat, lineNo, err)
		}
		log2, err := strconv.ParseFloat(fields[index[ColLog2]], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: log2: %v", ErrFormat, lineNo, err)
		}
		gene := "-"
		if hasGene {
			gene = fields[geneIdx]
		}
		a.Append(Bin{Chromosome: fields[index[ColChromosome]], Start: start, End: end, Gene: gene, Log2: log2})
		for k, name := range extraNames {
			v, err := strconv.ParseFloat(fields[extraIdx[k]], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s: %v", ErrFormat, lineNo, name, err)
			}
			a.extra[name] = append(a.extra[name], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

// Write stores a table as an .npz archive or, for any other extension, as a
// tab-separated file (gzip-compressed when the name ends in ".gz").
func Write(path string, a *Array) error {
	if isNpz(path) {
		return writeNpz(path, a)
	}
	f, err := fileio.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTSV(f, a); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// WriteTSV writes a table with a header line.
func WriteTSV(w io.Writer, a *Array) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(a.Columns(), "\t"))
	bw.WriteByte('\n')
	for i := 0; i < a.Len(); i++ {
		bw.WriteString(a.Chromosome[i])
		bw.WriteByte('\t')
		bw.WriteString(strconv.Itoa(a.Start[i]))
		bw.WriteByte('\t')
		bw.WriteString(strconv.Itoa(a.End[i]))
		bw.WriteByte('\t')
		bw.WriteString(a.Gene[i])
		bw.WriteByte('\t')
		bw.WriteString(formatFloat(a.Log2[i]))
		for _, name := range a.extraNames {
			bw.WriteByte('\t')
			bw.WriteString(formatFloat(a.extra[name][i]))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func isNpz(path string) bool {
	return strings.HasSuffix(path, ".npz")
}

// Keys of the npz layout. String columns are stored as newline-joined bytes.
const (
	npzSampleID = "sample_id"
	npzExtra    = "columns"
)

func joinBytes(v []string) []uint8 {
	return []uint8(strings.Join(v, "\n"))
}

func splitBytes(b []uint8, n int) ([]string, error) {
	if n == 0 {
		return []string{}, nil
	}
	v := strings.Split(string(b), "\n")
	if len(v) != n {
		return nil, fmt.Errorf("%w: %d names for %d bins", ErrFormat, len(v), n)
	}
	return v, nil
}

func writeNpz(path string, a *Array) error {
	out, err := npz.Create(path)
	if err != nil {
		return err
	}
	starts := make([]int64, a.Len())
	ends := make([]int64, a.Len())
	for i := range starts {
		starts[i] = int64(a.Start[i])
		ends[i] = int64(a.End[i])
	}
	entries := []struct {
		name string
		v    interface{}
	}{
		{npzSampleID, []uint8(a.SampleID)},
		{npzExtra, joinBytes(a.extraNames)},
		{ColChromosome, joinBytes(a.Chromosome)},
		{ColStart, starts},
		{ColEnd, ends},
		{ColGene, joinBytes(a.Gene)},
		{ColLog2, a.Log2},
	}
	for _, name := range a.extraNames {
		entries = append(entries, struct {
			name string
			v    interface{}
		}{name, a.extra[name]})
	}
	for _, e := range entries {
		if err := out.Write(e.name, e.v); err != nil {
			out.Close()
			return fmt.Errorf("unable to write %s to %s: %w", e.name, path, err)
		}
	}
	return out.Close()
}

func readNpz(path string) (*Array, error) {
	in, err := npz.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var sampleID, extra, chroms, genes []uint8
	var starts, ends []int64
	var log2 []float64
	for _, e := range []struct {
		name string
		ptr  interface{}
	}{
		{npzSampleID, &sampleID},
		{npzExtra, &extra},
		{ColChromosome, &chroms},
		{ColStart, &starts},
		{ColEnd, &ends},
		{ColGene, &genes},
		{ColLog2, &log2},
	} {
		if err := in.Read(e.name, e.ptr); err != nil {
			return nil, fmt.Errorf("unable to read %s from %s: %w", e.name, path, err)
		}
	}

	n := len(starts)
	if len(ends) != n || len(log2) != n {
		return nil, fmt.Errorf("%s: %w", path, ErrLength)
	}
	chromosome, err := splitBytes(chroms, n)
	if err != nil {
		return nil, fmt.Errorf("%s: chromosome: %w", path, err)
	}
	gene, err := splitBytes(genes, n)
	if err != nil {
		return nil, fmt.Errorf("%s: gene: %w", path, err)
	}
	var extraNames []string
	if len(extra) > 0 {
		extraNames = strings.Split(string(extra), "\n")
	}

	a := New(string(sampleID), extraNames...)
	for i := 0; i < n; i++ {
		a.Append(Bin{Chromosome: chromosome[i], Start: int(starts[i]), End: int(ends[i]), Gene: gene[i], Log2: log2[i]})
	}
	for _, name := range extraNames {
		var v []float64
		if err := in.Read(name, &v); err != nil {
			return nil, fmt.Errorf("unable to read %s from %s: %w", name, path, err)
		}
		if err := a.SetColumn(name, v); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return a, nil
}
