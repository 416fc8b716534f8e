package fileio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func roundTrip(t *testing.T, path string) []byte {
	t.Helper()
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, "chr1\t0\t100\n"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestPlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bed")
	if got := roundTrip(t, path); string(got) != "chr1\t0\t100\n" {
		t.Errorf("read back %q", got)
	}
}

func TestGzipRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bed.gz")
	if got := roundTrip(t, path); string(got) != "chr1\t0\t100\n" {
		t.Errorf("read back %q", got)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte{0x1f, 0x8b}) {
		t.Error("output is not gzip-compressed")
	}
}

func TestOpenNotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected an error opening a corrupt gzip file")
	}
}
