package coverage

import (
	"io"
	"math"
	"testing"

	"github.com/biogo/hts/sam"

	"github.com/CenterForMedicalGeneticsGhent/cnvref/cnary"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/internal/params"
	"github.com/CenterForMedicalGeneticsGhent/cnvref/regions"
)

type records struct {
	recs []*sam.Record
}

func (r *records) Read() (*sam.Record, error) {
	if len(r.recs) == 0 {
		return nil, io.EOF
	}
	rec := r.recs[0]
	r.recs = r.recs[1:]
	return rec, nil
}

func mustRef(t *testing.T, name string, length int) *sam.Reference {
	t.Helper()
	ref, err := sam.NewReference(name, "", "", length, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return ref
}

func read(ref *sam.Reference, pos int, mapq byte, flags sam.Flags, cigar ...sam.CigarOp) *sam.Record {
	return &sam.Record{Name: "r", Ref: ref, Pos: pos, MapQ: mapq, Flags: flags, Cigar: cigar}
}

func match(n int) sam.CigarOp {
	return sam.NewCigarOp(sam.CigarMatch, n)
}

func TestDepth(t *testing.T) {
	chr1 := mustRef(t, "chr1", 1000)
	chr2 := mustRef(t, "chr2", 1000)
	regs := []regions.Region{
		{Chromosome: "chr1", Start: 100, End: 200, Name: "A"},
		{Chromosome: "chr1", Start: 0, End: 100, Name: "B"},
		{Chromosome: "chr2", Start: 0, End: 50},
	}
	rr := &records{recs: []*sam.Record{
		read(chr1, 50, 60, 0, match(100)),
		read(chr1, 150, 60, 0, match(50)),
		read(chr1, 150, 60, sam.Duplicate, match(50)),
		read(chr1, 150, 60, sam.Secondary, match(50)),
		read(chr1, 150, 60, sam.QCFail, match(50)),
		read(chr1, 150, 0, 0, match(50)),
		read(chr2, 0, 60, 0, match(10), sam.NewCigarOp(sam.CigarInsertion, 5), match(10), sam.NewCigarOp(sam.CigarSkipped, 10), match(5)),
		read(nil, -1, 0, sam.Unmapped),
	}}
	opts := DefaultOptions()
	opts.MinMapQ = 1
	depth, err := Depth(rr, regs, opts)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 0.5, 0.5}
	for i := range want {
		if math.Abs(depth[i]-want[i]) > 1e-12 {
			t.Errorf("depth[%d] = %g, want %g", i, depth[i], want[i])
		}
	}
}

func TestDepthKeepDuplicates(t *testing.T) {
	chr1 := mustRef(t, "chr1", 1000)
	regs := []regions.Region{{Chromosome: "chr1", Start: 0, End: 10}}
	recs := func() *records {
		return &records{recs: []*sam.Record{
			read(chr1, 0, 60, 0, match(10)),
			read(chr1, 0, 60, sam.Duplicate, match(10)),
		}}
	}
	opts := DefaultOptions()
	d, err := Depth(recs(), regs, opts)
	if err != nil {
		t.Fatal(err)
	}
	if d[0] != 1 {
		t.Errorf("depth without duplicates = %g, want 1", d[0])
	}
	opts.KeepDuplicates = true
	d, err = Depth(recs(), regs, opts)
	if err != nil {
		t.Fatal(err)
	}
	if d[0] != 2 {
		t.Errorf("depth with duplicates = %g, want 2", d[0])
	}
}

func TestDepthOverlappingRegions(t *testing.T) {
	chr1 := mustRef(t, "chr1", 1000)
	regs := []regions.Region{
		{Chromosome: "chr1", Start: 0, End: 500},
		{Chromosome: "chr1", Start: 100, End: 110},
		{Chromosome: "chr1", Start: 400, End: 410},
		{Chromosome: "chr1", Start: 400, End: 410},
		{Chromosome: "chr1", Start: 405, End: 405},
		{Chromosome: "chr1", Start: 405, End: 420},
	}
	rr := &records{recs: []*sam.Record{read(chr1, 400, 60, 0, match(10))}}
	d, err := Depth(rr, regs, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{10.0 / 500, 0, 1, 1, 0, 5.0 / 15}
	for i := range want {
		if math.Abs(d[i]-want[i]) > 1e-12 {
			t.Errorf("depth[%d] = %g, want %g", i, d[i], want[i])
		}
	}
}

func TestAlignedBlocks(t *testing.T) {
	r := read(nil, 10, 0, 0,
		sam.NewCigarOp(sam.CigarSoftClipped, 3),
		match(5),
		sam.NewCigarOp(sam.CigarDeletion, 2),
		match(5),
		sam.NewCigarOp(sam.CigarSkipped, 100),
		match(4),
	)
	got := alignedBlocks(r)
	want := [][2]int{{10, 22}, {122, 126}}
	if len(got) != len(want) {
		t.Fatalf("blocks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTable(t *testing.T) {
	regs := []regions.Region{
		{Chromosome: "chr1", Start: 0, End: 10, Name: "A"},
		{Chromosome: "chr1", Start: 10, End: 20},
	}
	p := params.Default()
	a, err := Table("s1", regs, []float64{4, 0}, p)
	if err != nil {
		t.Fatal(err)
	}
	if a.Log2[0] != 2 || a.Log2[1] != p.NullLog2Coverage {
		t.Errorf("log2 = %v", a.Log2)
	}
	if a.Gene[1] != regions.NoName {
		t.Errorf("unnamed region gene = %q", a.Gene[1])
	}
	depth, err := a.Column(cnary.ColDepth)
	if err != nil {
		t.Fatal(err)
	}
	if depth[0] != 4 || depth[1] != 0 {
		t.Errorf("depth = %v", depth)
	}
	if _, err := Table("s1", regs, []float64{1}, p); err == nil {
		t.Error("expected a length error")
	}
}
