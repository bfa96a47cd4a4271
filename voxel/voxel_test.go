package voxel

import (
	"testing"

	"github.com/nasa/YOGA-sub004/adt"
	"github.com/nasa/YOGA-sub004/mesh"
)

func TestAddTransferNodeIsIdempotentByGlobalID(t *testing.T) {
	v := New(adt.Extent{Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}, 0)
	a := v.AddTransferNode(TransferNode{GlobalID: 3, X: 0.1})
	b := v.AddTransferNode(TransferNode{GlobalID: 3, X: 99})
	if a != b {
		t.Fatalf("adding global id 3 twice gave different local ids %d, %d", a, b)
	}
	if v.NodeCount() != 1 {
		t.Fatalf("got %d nodes, want 1", v.NodeCount())
	}
	if v.Node(a).X != 0.1 {
		t.Errorf("second AddTransferNode should not overwrite the first insert, got X=%v", v.Node(a).X)
	}
}

func TestAddTransferCellRewritesToLocalIDs(t *testing.T) {
	v := New(adt.Extent{Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}, 0)
	v.AddTransferNode(TransferNode{GlobalID: 100, X: 0, Y: 0, Z: 0})
	v.AddTransferNode(TransferNode{GlobalID: 101, X: 1, Y: 0, Z: 0})
	if err := v.AddTransferCell(mesh.Bar2, 0, 55, 0, []int64{100, 101}); err != nil {
		t.Fatal(err)
	}
	cells := v.CellsOfKind(mesh.Bar2)
	if len(cells) != 1 {
		t.Fatalf("got %d cells, want 1", len(cells))
	}
	if got := cells[0].LocalNodeIDs; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("local node ids not rewritten correctly: %v", got)
	}
}

// TestVoxelDonorTetra exercises S4 from spec.md §8: a voxel with one tet
// (0,0,0),(1,0,0),(0,1,0),(0,0,1) owned by rank 0, component A; a query
// point (0.1,0.1,0.1) tagged component B returns exactly one candidate
// with cell_id=tet, cell_owner=0, component=A.
func TestVoxelDonorTetra(t *testing.T) {
	const componentA, componentB = 0, 1
	const originCellID int64 = 42
	const originOwner = 0

	v := New(adt.Extent{Min: [3]float64{-10, -10, -10}, Max: [3]float64{10, 10, 10}}, 0)
	tetGlobalNodes := []int64{1, 2, 3, 4}
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, g := range tetGlobalNodes {
		v.AddTransferNode(TransferNode{GlobalID: g, X: coords[i][0], Y: coords[i][1], Z: coords[i][2], ComponentID: componentA, OwningRank: originOwner})
	}
	if err := v.AddTransferCell(mesh.Tetra4, componentA, originCellID, originOwner, tetGlobalNodes); err != nil {
		t.Fatal(err)
	}
	v.AddTransferNode(TransferNode{GlobalID: 999, X: 0.1, Y: 0.1, Z: 0.1, ComponentID: componentB, OwningRank: 0})

	receptors, err := FindDonors(v)
	if err != nil {
		t.Fatal(err)
	}
	if len(receptors) != 1 {
		t.Fatalf("got %d receptors, want 1", len(receptors))
	}
	r := receptors[0]
	if r.GlobalNodeID != 999 {
		t.Fatalf("receptor for wrong node: %d", r.GlobalNodeID)
	}
	if len(r.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(r.Candidates))
	}
	c := r.Candidates[0]
	if c.OriginCellID != originCellID || c.OriginOwningRank != originOwner || c.ComponentID != componentA || c.CellKind != mesh.Tetra4 {
		t.Fatalf("candidate mismatch: %+v", c)
	}
}

func TestFindDonorsSkipsNodesOutsideExtent(t *testing.T) {
	v := New(adt.Extent{Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}}, 0)
	tetGlobalNodes := []int64{1, 2, 3, 4}
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, g := range tetGlobalNodes {
		v.AddTransferNode(TransferNode{GlobalID: g, X: coords[i][0], Y: coords[i][1], Z: coords[i][2], ComponentID: 0})
	}
	if err := v.AddTransferCell(mesh.Tetra4, 0, 1, 0, tetGlobalNodes); err != nil {
		t.Fatal(err)
	}
	// This node sits outside the voxel extent entirely.
	v.AddTransferNode(TransferNode{GlobalID: 999, X: 50, Y: 50, Z: 50, ComponentID: 1})

	receptors, err := FindDonors(v)
	if err != nil {
		t.Fatal(err)
	}
	if len(receptors) != 0 {
		t.Fatalf("expected the out-of-extent node to be skipped, got %d receptors", len(receptors))
	}
}
