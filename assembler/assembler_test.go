package assembler

import (
	"testing"

	"github.com/nasa/YOGA-sub004/mesh"
	"github.com/nasa/YOGA-sub004/mp"
	"github.com/nasa/YOGA-sub004/postman"
	"github.com/nasa/YOGA-sub004/voxel"
)

// buildTetComponent constructs a single-rank, single-component mesh
// with one Tetra4 cell over the unit-tet corners, one wall-distance
// value per node.
func buildTetComponent(rank int) *ComponentMesh {
	m := mesh.New(rank)
	coords := [4][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	walls := []float64{0.1, 0.2, 0.3, 0.4}
	locals := make([]int, 4)
	for i, c := range coords {
		locals[i] = m.AddNode(mesh.NodeRecord{GlobalID: int64(100 + i), X: c[0], Y: c[1], Z: c[2], Owner: rank})
	}
	m.AddCell(mesh.CellRecord{GlobalID: 500, Kind: mesh.Tetra4, Nodes: locals, Owner: rank})
	return &ComponentMesh{ComponentID: 0, BodyName: "tet-body", Mesh: m, WallDistance: walls}
}

// buildReceptorComponent constructs a single node, with no cells of its
// own, belonging to a different component grid — the S4-style query
// point that should find the tet as a donor.
func buildReceptorComponent(rank int, globalID int64, point [3]float64) *ComponentMesh {
	m := mesh.New(rank)
	m.AddNode(mesh.NodeRecord{GlobalID: globalID, X: point[0], Y: point[1], Z: point[2], Owner: rank})
	return &ComponentMesh{ComponentID: 1, BodyName: "query-body", Mesh: m}
}

// TestAssemblerSingleRankPipeline runs spec.md §4.6's full pipeline on
// one rank: voxel plan, fragment exchange, parallel voxel processing,
// receptor distribution, owner resolution, DCIF emission (S4
// flavor — a query point inside a donor tet resolves and lands in the
// exported file's fringe).
func TestAssemblerSingleRankPipeline(t *testing.T) {
	transports := mp.NewLocalNetwork(1)
	g := mp.Bind(transports[0])

	server, err := postman.NewServer(0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer server.Stop()

	a := NewAssembler(g, server)
	if err := a.RegisterCallbacks(); err != nil {
		t.Fatalf("RegisterCallbacks: %v", err)
	}

	donorComp := buildTetComponent(0)
	queryComp := buildReceptorComponent(0, 200, [3]float64{0.1, 0.1, 0.1})
	components := []*ComponentMesh{donorComp, queryComp}

	if err := a.BuildPlan(components, 1); err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if err := a.ExchangeFragments(components); err != nil {
		t.Fatalf("ExchangeFragments: %v", err)
	}
	if err := a.ProcessOwnedVoxels(); err != nil {
		t.Fatalf("ProcessOwnedVoxels: %v", err)
	}

	resolved := a.Resolve(ReceptorComponentMap(components))
	if len(resolved) != 1 {
		t.Fatalf("expected exactly one resolved receptor, got %d", len(resolved))
	}
	r := resolved[0]
	if r.GlobalNodeID != 200 {
		t.Fatalf("resolved node id = %d, want 200", r.GlobalNodeID)
	}
	if r.Donor == nil {
		t.Fatal("expected a donor, got a hole")
	}
	if r.Donor.ComponentID != 0 || r.Donor.OriginCellID != 500 {
		t.Fatalf("donor = %+v, want component 0 / cell 500", r.Donor)
	}

	file, err := a.EmitDCIF(0, components, resolved)
	if err != nil {
		t.Fatalf("EmitDCIF: %v", err)
	}
	if file.NNodes != 201 {
		t.Fatalf("nnodes = %d, want 201", file.NNodes)
	}
	if len(file.FringeIDs) != 1 || file.FringeIDs[0] != 200 {
		t.Fatalf("fringe ids = %v, want [200]", file.FringeIDs)
	}
	if file.IBlank[200] != -1 {
		t.Fatalf("iblank[200] = %d, want -1", file.IBlank[200])
	}
	for _, id := range []int64{100, 101, 102, 103} {
		if file.IBlank[id] != 1 {
			t.Fatalf("iblank[%d] = %d, want 1 (normal donor node)", id, file.IBlank[id])
		}
	}
	if len(file.Grids) != 2 {
		t.Fatalf("expected 2 grid ranges, got %d", len(file.Grids))
	}
}

// TestResolveMarksHoleWhenOnlySameComponentCandidates verifies spec.md
// §4.6 step 5's requirement that a same-component hit is never a valid
// donor: a receptor whose only candidate shares its own component must
// resolve to a hole, not that candidate.
func TestResolveMarksHoleWhenOnlySameComponentCandidates(t *testing.T) {
	coll := NewDonorCollector()
	batch := []voxel.Receptor{
		{
			GlobalNodeID: 9,
			OwningRank:   0,
			Candidates: []voxel.CandidateDonor{
				{ComponentID: 3, OriginCellID: 1, InterpolatedWallDistance: 0.5},
			},
		},
	}
	coll.HandleReceptorBatch(packReceptorBatch(batch))

	resolved := coll.Resolve(map[int64]int{9: 3})
	if len(resolved) != 1 {
		t.Fatalf("expected one resolved entry, got %d", len(resolved))
	}
	if resolved[0].Donor != nil {
		t.Fatalf("expected a hole (no cross-component candidate), got donor %+v", resolved[0].Donor)
	}
}

// TestBestCandidateTieBreak verifies the (component_id, origin_owning_rank,
// origin_cell_id) lexicographic tie-break spec.md §4.6 step 5 specifies
// when two candidates report identical interpolated wall distance.
func TestBestCandidateTieBreak(t *testing.T) {
	candidates := []voxel.CandidateDonor{
		{ComponentID: 2, OriginOwningRank: 1, OriginCellID: 5, InterpolatedWallDistance: 1.0},
		{ComponentID: 1, OriginOwningRank: 9, OriginCellID: 1, InterpolatedWallDistance: 1.0},
	}
	best := bestCandidate(candidates, 0)
	if best == nil || best.ComponentID != 1 {
		t.Fatalf("expected the lower component id to win the tie, got %+v", best)
	}
}

// TestBuildDCIFRejectsReceptorWithoutDonor exercises the fatal
// Invariant spec.md §4.6 describes: a node marked iblank=-1 with no
// recorded donor ids must fail at DCIF-write time.
func TestBuildDCIFRejectsReceptorWithoutDonor(t *testing.T) {
	gathered := [][]nodeResult{
		{{GlobalID: 0, ComponentID: 0, IBlank: -1}},
	}
	if _, err := buildDCIF(gathered); err == nil {
		t.Fatal("expected an Invariant error for a receptor with no donor")
	}
}
