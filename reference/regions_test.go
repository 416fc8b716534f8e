package reference

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/regions"
)

func TestBed2Probes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my_targets.bed")
	if err := os.WriteFile(path, []byte("chr1\t10\t20\tBRCA1\nchr1\t30\t40\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := Bed2Probes(path)
	if err != nil {
		t.Fatal(err)
	}
	if a.SampleID != "my_targets" {
		t.Errorf("sample id = %q", a.SampleID)
	}
	if !slices.Equal(a.Columns(), []string{"chromosome", "start", "end", "gene", "log2", "gc", "rmask", "spread"}) {
		t.Errorf("columns = %v", a.Columns())
	}
	if !slices.Equal(a.Gene, []string{"BRCA1", regions.NoName}) {
		t.Errorf("genes = %v", a.Gene)
	}
	for _, col := range []string{cnary.ColLog2, cnary.ColGC, cnary.ColRmask, cnary.ColSpread} {
		v, _ := a.Column(col)
		if !slices.Equal(v, []float64{0, 0}) {
			t.Errorf("%s = %v, want zeros", col, v)
		}
	}
}

func TestReferenceToRegions(t *testing.T) {
	ref := cnary.FromBins("reference", []cnary.Bin{
		{Chromosome: "chr1", Start: 0, End: 100, Gene: "Background"},
		{Chromosome: "chr1", Start: 200, End: 300, Gene: "KRAS"},
	})

	targets, antitargets := ReferenceToRegions(ref, false)
	if got := slices.Collect(targets); !slices.Equal(got, []regions.Region{{"chr1", 200, 300, "KRAS"}}) {
		t.Errorf("targets = %v", got)
	}
	if got := slices.Collect(antitargets); !slices.Equal(got, []regions.Region{{"chr1", 0, 100, "Background"}}) {
		t.Errorf("antitargets = %v", got)
	}

	targets, antitargets = ReferenceToRegions(ref, true)
	if got := slices.Collect(targets); !slices.Equal(got, []regions.Region{{Chromosome: "chr1", Start: 200, End: 300}}) {
		t.Errorf("coordinate-only targets = %v", got)
	}
	if got := slices.Collect(antitargets); !slices.Equal(got, []regions.Region{{Chromosome: "chr1", Start: 0, End: 100}}) {
		t.Errorf("coordinate-only antitargets = %v", got)
	}
}

func TestFlatReference(t *testing.T) {
	dir := t.TempDir()
	tgt := filepath.Join(dir, "t.bed")
	anti := filepath.Join(dir, "a.bed")
	if err := os.WriteFile(tgt, []byte("chr1\t0\t8\tA\nchrX\t0\t8\tB\nchrY\t0\t8\tC\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(anti, []byte("chr1\t8\t16\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.Sex = cnary.Male
	ref, err := FlatReference(tgt, anti, opts)
	if err != nil {
		t.Fatal(err)
	}
	if ref.SampleID != "reference" {
		t.Errorf("sample id = %q", ref.SampleID)
	}
	if !slices.Equal(ref.Gene, []string{"A", "Background", "B", "C"}) {
		t.Errorf("genes = %v", ref.Gene)
	}
	if !slices.Equal(ref.Log2, []float64{0, 0, -1, -1}) {
		t.Errorf("log2 = %v", ref.Log2)
	}
}

func TestWriteRegions(t *testing.T) {
	ref := cnary.FromBins("reference", []cnary.Bin{
		{Chromosome: "chr1", Start: 0, End: 100, Gene: "Background"},
		{Chromosome: "chr1", Start: 200, End: 300, Gene: "KRAS"},
	})
	prefix := filepath.Join(t.TempDir(), "out")
	if err := WriteRegions(ref, prefix, false); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(prefix + ".target.bed")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "chr1\t200\t300\tKRAS\n" {
		t.Errorf("target bed = %q", got)
	}
	got, err = os.ReadFile(prefix + ".antitarget.bed")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "chr1\t0\t100\tBackground\n" {
		t.Errorf("antitarget bed = %q", got)
	}
}
