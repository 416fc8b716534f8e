// Package fileio opens and creates plain or gzip-compressed text files.
package fileio

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// IsGzip reports whether a path names a gzip-compressed file.
func IsGzip(path string) bool {
	return strings.HasSuffix(path, ".gz")
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() (err error) {
	for _, c := range r.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens a file for reading, transparently decompressing it when the
// name ends in ".gz".
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsGzip(path) {
		return f, nil
	}
	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
}

type writeCloser struct {
	io.Writer
	closers []io.Closer
	buf     *bufio.Writer
}

func (w *writeCloser) Close() (err error) {
	if w.buf != nil {
		err = w.buf.Flush()
	}
	for _, c := range w.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Create creates a file for writing, compressing it when the name ends in
// ".gz". Output is buffered; Close flushes it.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if IsGzip(path) {
		zw := gzip.NewWriter(f)
		buf := bufio.NewWriter(zw)
		return &writeCloser{Writer: buf, buf: buf, closers: []io.Closer{zw, f}}, nil
	}
	buf := bufio.NewWriter(f)
	return &writeCloser{Writer: buf, buf: buf, closers: []io.Closer{f}}, nil
}
