package voxel

import (
	"github.com/nasa/YOGA-sub004/adt"
	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/mesh"
)

// CandidateDonor is spec.md §3's Candidate Donor: component differs from
// the receptor's, and the point that requested it is geometrically
// contained in the donor cell.
type CandidateDonor struct {
	ComponentID              int
	OriginCellID             int64
	OriginOwningRank         int
	InterpolatedWallDistance float64
	CellKind                 mesh.CellKind
	DonorNodeGlobalIDs       []int64
	DonorWeights             []float64
}

// Receptor is spec.md §3's Receptor: a node needing interpolation, with
// every candidate donor found for it. FindDonors drops a receptor with
// zero candidates before it leaves this voxel (spec.md §3: "a receptor
// with zero candidates is dropped").
type Receptor struct {
	GlobalNodeID int64
	OwningRank   int
	WallDistance float64
	Candidates   []CandidateDonor
}

// FindDonors runs spec.md §4.5's per-voxel donor search: one ADT per
// component grid, then for every node a query against every other
// component's ADT, keeping hits whose shape-function weights place the
// point inside the donor cell. Receptors with no candidates are
// omitted from the result, matching spec.md §3's drop rule.
func FindDonors(v *WorkVoxel) ([]Receptor, error) {
	trees, err := buildComponentTrees(v)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, t := range trees {
			t.tree.Close()
		}
	}()

	var receptors []Receptor
	for _, n := range v.Nodes() {
		if !v.Extent.Contains(n.XYZ()) {
			// spec.md §4.5 edge policy: "nodes outside the voxel extent
			// are skipped."
			continue
		}
		var candidates []CandidateDonor
		for _, ct := range trees {
			if ct.componentID == n.ComponentID {
				continue
			}
			hits, err := ct.tree.QueryPoint(n.XYZ())
			if err != nil {
				return nil, err
			}
			for _, cellLocal := range hits {
				cell := ct.cells[cellLocal]
				nodeXYZ := make([][3]float64, len(cell.LocalNodeIDs))
				wallDist := make([]float64, len(cell.LocalNodeIDs))
				for i, nl := range cell.LocalNodeIDs {
					tn := v.Node(nl)
					nodeXYZ[i] = tn.XYZ()
					wallDist[i] = tn.WallDistance
				}
				weights := ShapeWeights(nodeXYZ, n.XYZ())
				if !ContainsWithWeights(weights, 1e-6) {
					continue
				}
				var interpWall float64
				donorGlobalIDs := make([]int64, len(cell.LocalNodeIDs))
				for i, w := range weights {
					interpWall += w * wallDist[i]
					donorGlobalIDs[i] = v.Node(cell.LocalNodeIDs[i]).GlobalID
				}
				candidates = append(candidates, CandidateDonor{
					ComponentID:              ct.componentID,
					OriginCellID:             cell.OriginCellID,
					OriginOwningRank:         cell.OriginOwningRank,
					InterpolatedWallDistance: interpWall,
					CellKind:                 cell.Kind,
					DonorNodeGlobalIDs:       donorGlobalIDs,
					DonorWeights:             weights,
				})
			}
		}
		if len(candidates) == 0 {
			continue
		}
		receptors = append(receptors, Receptor{
			GlobalNodeID: n.GlobalID,
			OwningRank:   n.OwningRank,
			WallDistance: n.WallDistance,
			Candidates:   candidates,
		})
	}
	return receptors, nil
}

type componentTree struct {
	componentID int
	tree        *adt.Tree
	cells       map[int]TransferCell // keyed by the id handed to tree.Insert
}

// buildComponentTrees partitions v's cells by component grid into one
// ADT per component (spec.md §4.5 step 1).
func buildComponentTrees(v *WorkVoxel) ([]*componentTree, error) {
	byComponent := make(map[int]map[int]TransferCell)
	for _, kind := range v.Kinds() {
		for _, c := range v.CellsOfKind(kind) {
			if byComponent[c.ComponentID] == nil {
				byComponent[c.ComponentID] = make(map[int]TransferCell)
			}
			id := len(byComponent[c.ComponentID])
			byComponent[c.ComponentID][id] = c
		}
	}
	var out []*componentTree
	for component, cells := range byComponent {
		tree, err := adt.NewTree()
		if err != nil {
			return nil, err
		}
		for id, c := range cells {
			if err := tree.Insert(id, v.CellBoundingBox(c)); err != nil {
				return nil, cmn.Wrap(cmn.ErrConfiguration, err, "insert cell into component ADT")
			}
		}
		out = append(out, &componentTree{componentID: component, tree: tree, cells: cells})
	}
	return out, nil
}
