package cnary

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const sampleCnn = `chromosome	start	end	gene	log2	depth	gc
chr1	100	200	BRCA2	0.5	12.5	0.4
chr1	300	400	BRCA2	-0.25	8	0.6
chr1	500	900	Background	0	10	0.5
chrX	100	200	AR	-1	4	0.45
`

func mustReadTSV(t *testing.T, content string) *Array {
	t.Helper()
	a, err := ReadTSV(strings.NewReader(content), "sample")
	if err != nil {
		t.Fatalf("ReadTSV: %v", err)
	}
	return a
}

func TestReadTSV(t *testing.T) {
	a := mustReadTSV(t, sampleCnn)
	if a.Len() != 4 {
		t.Fatalf("expected 4 bins, got %d", a.Len())
	}
	if !slices.Equal(a.Columns(), []string{"chromosome", "start", "end", "gene", "log2", "depth", "gc"}) {
		t.Errorf("unexpected columns %v", a.Columns())
	}
	if b := a.Bin(1); b != (Bin{Chromosome: "chr1", Start: 300, End: 400, Gene: "BRCA2", Log2: -0.25}) {
		t.Errorf("unexpected bin %+v", b)
	}
	gc, err := a.Column(ColGC)
	if err != nil {
		t.Fatal(err)
	}
	if gc[3] != 0.45 {
		t.Errorf("expected gc 0.45, got %g", gc[3])
	}
	if a.Has(ColRmask) {
		t.Error("table should not have rmask")
	}
	if _, err := a.Column(ColRmask); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestReadTSV_Malformed(t *testing.T) {
	for _, content := range []string{
		"",
		"chromosome\tstart\tend\n",
		"chromosome\tstart\tend\tgene\tlog2\nchr1\tx\t10\tA\t0\n",
		"chromosome\tstart\tend\tgene\tlog2\nchr1\t1\t10\tA\n",
	} {
		if _, err := ReadTSV(strings.NewReader(content), "s"); err == nil {
			t.Errorf("expected an error for %q", content)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	a := mustReadTSV(t, sampleCnn)
	dir := t.TempDir()
	for _, name := range []string{"sample.cnn", "sample.cnn.gz", "sample.npz"} {
		path := filepath.Join(dir, name)
		if err := Write(path, a); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
		b, err := Read(path)
		if err != nil {
			t.Fatalf("Read %s: %v", name, err)
		}
		if !SameBins(a, b) || !slices.Equal(a.Log2, b.Log2) {
			t.Errorf("%s: bins differ after round trip", name)
		}
		if !slices.Equal(a.Columns(), b.Columns()) {
			t.Errorf("%s: columns %v, want %v", name, b.Columns(), a.Columns())
		}
		depth, _ := b.Column(ColDepth)
		if depth[0] != 12.5 {
			t.Errorf("%s: depth %g, want 12.5", name, depth[0])
		}
	}
}

func TestEmptyTableKeepsColumns(t *testing.T) {
	a := New("reference", ColGC, ColRmask, ColSpread)
	path := filepath.Join(t.TempDir(), "empty.cnn")
	if err := Write(path, a); err != nil {
		t.Fatal(err)
	}
	b, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Errorf("expected no bins, got %d", b.Len())
	}
	if !slices.Equal(b.Columns(), []string{"chromosome", "start", "end", "gene", "log2", "gc", "rmask", "spread"}) {
		t.Errorf("unexpected columns %v", b.Columns())
	}
}

func TestSelectConcatSort(t *testing.T) {
	a := mustReadTSV(t, sampleCnn)
	fg := a.Select([]bool{true, true, false, true})
	if fg.Len() != 3 || fg.Gene[2] != "AR" {
		t.Fatalf("unexpected selection %v", fg.Gene)
	}
	bg := a.Select([]bool{false, false, true, false})
	both := Concat("x", fg, bg)
	if both.Len() != 4 || both.Gene[3] != "Background" {
		t.Fatalf("unexpected concat %v", both.Gene)
	}
	sorted := both.SortByPosition()
	if !SameBins(sorted, a) {
		t.Errorf("sorted bins %v, want %v", sorted.Gene, a.Gene)
	}
	gc, _ := sorted.Column(ColGC)
	if gc[2] != 0.5 {
		t.Errorf("extra column not reordered with bins: %v", gc)
	}
}

func TestWithLog2DoesNotMutate(t *testing.T) {
	a := mustReadTSV(t, sampleCnn)
	b, err := a.WithLog2([]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if a.Log2[0] != 0.5 || b.Log2[0] != 1 {
		t.Errorf("WithLog2 changed the receiver or ignored the input")
	}
	if _, err := a.WithLog2([]float64{1}); !errors.Is(err, ErrLength) {
		t.Errorf("expected ErrLength, got %v", err)
	}
}

func TestLabel(t *testing.T) {
	a := mustReadTSV(t, sampleCnn)
	if got := a.Label(0); got != "chr1:100-200" {
		t.Errorf("Label = %q", got)
	}
}

func TestSampleIDFromPath(t *testing.T) {
	tests := map[string]string{
		"/data/S1.targetcoverage.cnn": "S1",
		"S2.antitargetcoverage.cnn":   "S2",
		"dir/S3.cnn.gz":               "S3",
		"targets.bed":                 "targets",
		"my.sample.cnr":               "my.sample",
		"plain":                       "plain",
		"S4.targetcoverage.npz":       "S4",
	}
	for path, want := range tests {
		if got := SampleIDFromPath(path); got != want {
			t.Errorf("SampleIDFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
