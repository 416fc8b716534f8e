// Package fasta gives random access to subsequences of an indexed FASTA
// genome.
package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/biogo/hts/fai"
)

// ErrNoSuchSequence is returned when a requested sequence is not in the
// genome index.
var ErrNoSuchSequence = errors.New("no such sequence")

// IndexPath returns the conventional index path for a FASTA file.
func IndexPath(path string) string {
	return path + ".fai"
}

// EnsureIndex returns the index of a FASTA file, building it and writing
// it next to the FASTA file when it does not exist yet. Calling it again
// reuses the written index. Failing to write the index is not an error;
// the index built in memory is returned.
func EnsureIndex(path string) (fai.Index, error) {
	idxPath := IndexPath(path)
	if f, err := os.Open(idxPath); err == nil {
		defer f.Close()
		idx, err := fai.ReadFrom(bufio.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", idxPath, err)
		}
		return idx, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	slog.Info("Indexing FASTA file", "file", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	idx, err := fai.NewIndex(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", path, err)
	}
	if err := writeIndex(idxPath, idx); err != nil {
		slog.Warn("Unable to write FASTA index", "file", idxPath, "error", err)
	}
	return idx, nil
}

func writeIndex(path string, idx fai.Index) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	if err := fai.WriteTo(w, idx); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

// Reader fetches subsequences from an indexed FASTA file. Fetch may be
// called from several goroutines at once.
type Reader struct {
	f    *os.File
	idx  fai.Index
	file *fai.File
}

// Open indexes the FASTA file if needed and opens it for random access.
func Open(path string) (*Reader, error) {
	idx, err := EnsureIndex(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{f: f, idx: idx, file: fai.NewFile(f, idx)}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Length returns the length of a sequence.
func (r *Reader) Length(chrom string) (int, bool) {
	rec, ok := r.idx[chrom]
	return rec.Length, ok
}

// Fetch returns the bases of chrom in the 0-based half-open range
// [start, end), case preserved. The range is clipped to the sequence.
func (r *Reader) Fetch(chrom string, start, end int) ([]byte, error) {
	rec, ok := r.idx[chrom]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchSequence, chrom)
	}
	start = max(0, min(start, rec.Length))
	end = max(start, min(end, rec.Length))
	if start == end {
		return []byte{}, nil
	}
	seq, err := r.file.SeqRange(chrom, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s:%d-%d: %w", chrom, start, end, err)
	}
	b, err := io.ReadAll(seq)
	if err != nil {
		return nil, fmt.Errorf("%s:%d-%d: %w", chrom, start, end, err)
	}
	return b, nil
}
