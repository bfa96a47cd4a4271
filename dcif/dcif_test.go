package dcif

import (
	"bytes"
	"testing"
)

// nodeGrid is a small set of node coordinates shared by the S5-style
// tests below, arranged so the linear test function has a well-defined
// value at every id used.
var nodeGrid = [][3]float64{
	{0, 0, 0},
	{1, 0, 0},
	{0.25, 0.25, 0.25}, // receptor, id 2 below
	{0, 1, 0},
	{0, 0, 1},
}

func coordLookup(t *testing.T) Coordinate {
	return func(id int64) (float64, float64, float64, bool) {
		if id < 0 || int(id) >= len(nodeGrid) {
			return 0, 0, 0, false
		}
		p := nodeGrid[id]
		return p[0], p[1], p[2], true
	}
}

// TestDcifRoundTrip exercises S5 from spec.md §8: write a header
// nnodes=5, nfringes=1, ndonors=4, ngrids=1 with fringe_id [2],
// donor_counts [4], donor_ids [0,1,3,4] and equal weights of 0.25,
// which make the linear function recover exactly at the receptor.
func TestDcifRoundTrip(t *testing.T) {
	// The four donors are the corners of the unit tetrahedron; their
	// equal-weight average is (0.25,0.25,0.25), the receptor's own
	// coordinate, so both the weight-sum and the linear recovery checks
	// hold.
	donorIDs := []int64{0, 1, 3, 4}
	weights := []float64{0.25, 0.25, 0.25, 0.25}

	f := &File{
		NNodes:       5,
		NFringes:     1,
		NDonors:      4,
		NGrids:       1,
		FringeIDs:    []int64{2},
		DonorCounts:  []int8{4},
		DonorIDs:     donorIDs,
		DonorWeights: weights,
		IBlank:       []int8{1, 1, -1, 1, 1},
		Grids:        []GridRange{{Start: 0, End: 5, IMesh: 1}},
	}

	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatal(err)
	}
	got, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.NNodes != 5 || got.NFringes != 1 || got.NDonors != 4 || got.NGrids != 1 {
		t.Fatalf("header mismatch: %+v", got)
	}
	if got.FringeIDs[0] != 2 {
		t.Fatalf("fringe id not round-tripped as 0-based: %v", got.FringeIDs)
	}
	if got.DonorIDs[0] != 0 || got.DonorIDs[1] != 1 || got.DonorIDs[2] != 3 || got.DonorIDs[3] != 4 {
		t.Fatalf("donor ids not round-tripped as 0-based: %v", got.DonorIDs)
	}
	if err := Check(got, coordLookup(t)); err != nil {
		t.Fatalf("checker failed on a consistent file: %v", err)
	}
}

func TestCheckCountsCatchesMismatch(t *testing.T) {
	f := &File{
		NNodes:   3,
		NFringes: 1,
		IBlank:   []int8{1, 1, 1}, // no -1 entries, but nfringes says 1
	}
	if err := CheckCounts(f); err == nil {
		t.Fatal("expected an Invariant error for mismatched -1 count")
	}
}

func TestCheckFringeIDsCatchesBadIndex(t *testing.T) {
	f := &File{
		NNodes:    2,
		FringeIDs: []int64{5},
		IBlank:    []int8{-1, 1},
	}
	if err := CheckFringeIDs(f); err == nil {
		t.Fatal("expected an Invariant error for an out-of-range fringe id")
	}
}

func TestPartVectorRoundTrip(t *testing.T) {
	p := &PartVector{NRanks: 3, NodeOwner: []int32{0, 1, 2, 1, 0}}
	var buf bytes.Buffer
	if err := WritePartVector(&buf, p, false); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPartVector(bytes.NewReader(buf.Bytes()), false)
	if err != nil {
		t.Fatal(err)
	}
	if got.NRanks != 3 {
		t.Fatalf("nranks mismatch: %d", got.NRanks)
	}
	for i, want := range p.NodeOwner {
		if got.NodeOwner[i] != want {
			t.Fatalf("node %d owner: got %d, want %d", i, got.NodeOwner[i], want)
		}
	}
}
