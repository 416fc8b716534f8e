// Package regions reads and writes genomic interval files: BED (plain or
// gzip-compressed) and Picard/GATK interval lists.
package regions

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/fileio"
)

// ErrFormat is returned for lines that cannot be parsed as intervals.
var ErrFormat = errors.New("malformed region")

// NoName is the name given to intervals without one.
const NoName = "-"

// Region is a 0-based, half-open genomic interval with a name.
type Region struct {
	Chromosome string
	Start      int
	End        int
	Name       string
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chromosome, r.Start, r.End)
}

// Parse reads all intervals from a file. Files ending in ".interval_list"
// (optionally ".gz") are read as Picard interval lists with 1-based closed
// coordinates; everything else is read as BED.
func Parse(path string) ([]Region, error) {
	f, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var regions []Region
	if strings.HasSuffix(strings.TrimSuffix(path, ".gz"), ".interval_list") {
		regions, err = ParseIntervalList(f)
	} else {
		regions, err = ParseBED(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return regions, nil
}

// ParseBED reads BED records. Header, comment, "track" and "browser"
// lines are skipped. Only the first four columns are used.
func ParseBED(r io.Reader) ([]Region, error) {
	var regions []Region
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") ||
			strings.HasPrefix(line, "browser") {
			continue
		}
		data := strings.Split(line, "\t")
		if len(data) < 3 {
			data = strings.Fields(line)
		}
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: line %d has fewer than 3 fields", ErrFormat, lineNo)
		}
		start, end, err := parseCoords(data[1], data[2])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, lineNo, err)
		}
		name := NoName
		if len(data) > 3 && data[3] != "" {
			name = data[3]
		}
		regions = append(regions, Region{Chromosome: data[0], Start: start, End: end, Name: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// ParseIntervalList reads a Picard interval list: "@" header lines, then
// chromosome, 1-based start, inclusive end, strand and name.
func ParseIntervalList(r io.Reader) ([]Region, error) {
	var regions []Region
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "@") {
			continue
		}
		data := strings.Split(line, "\t")
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: line %d has fewer than 3 fields", ErrFormat, lineNo)
		}
		start, end, err := parseCoords(data[1], data[2])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, lineNo, err)
		}
		name := NoName
		if len(data) > 4 && data[4] != "" {
			name = data[4]
		}
		regions = append(regions, Region{Chromosome: data[0], Start: start - 1, End: end, Name: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

func parseCoords(s, e string) (start, end int, err error) {
	if start, err = strconv.Atoi(s); err != nil {
		return 0, 0, err
	}
	if end, err = strconv.Atoi(e); err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("end %d before start %d", end, start)
	}
	return start, end, nil
}

// WriteBED writes regions as 4-column BED, or as 3-column BED when every
// region is unnamed.
func WriteBED(w io.Writer, regions []Region) error {
	named := false
	for _, r := range regions {
		if r.Name != "" {
			named = true
			break
		}
	}
	bw := bufio.NewWriter(w)
	for _, r := range regions {
		if named {
			fmt.Fprintf(bw, "%s\t%d\t%d\t%s\n", r.Chromosome, r.Start, r.End, r.Name)
		} else {
			fmt.Fprintf(bw, "%s\t%d\t%d\n", r.Chromosome, r.Start, r.End)
		}
	}
	return bw.Flush()
}

// WriteFile writes regions to a BED file, gzip-compressed when the name
// ends in ".gz".
func WriteFile(path string, regions []Region) error {
	f, err := fileio.Create(path)
	if err != nil {
		return err
	}
	if err := WriteBED(f, regions); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
