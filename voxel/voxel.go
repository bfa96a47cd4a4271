// Package voxel implements spec.md §3/§4.5's Work Voxel (L4): a spatial
// box plus the portion of the mesh whose cells' bounding boxes overlap
// it, rebucketed from incoming fragments with nodes deduplicated by
// global id and renumbered into voxel-local ids.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package voxel

import (
	"math"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/nasa/YOGA-sub004/adt"
	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/mesh"
)

// TransferNode is spec.md §3's per-voxel node: a global id, coordinates,
// the component grid it belongs to, its owning rank (for routing the
// eventual receptor back), and its wall distance (interpolated onto
// donors, spec.md §4.5 step 2).
type TransferNode struct {
	GlobalID    int64
	X, Y, Z     float64
	ComponentID int
	OwningRank  int
	WallDistance float64
}

func (n TransferNode) XYZ() [3]float64 { return [3]float64{n.X, n.Y, n.Z} }

// TransferCell is spec.md §3's per-voxel cell: local node ids relative
// to the voxel's own node table (never pointers, per spec.md §9's
// "cyclic references as indices, not pointers"), plus enough of the
// origin cell's identity to build a CandidateDonor from a hit.
type TransferCell struct {
	Kind            mesh.CellKind
	LocalNodeIDs    []int
	ComponentID     int
	OriginCellID    int64
	OriginOwningRank int
}

// WorkVoxel is spec.md §3's Work Voxel: extent plus deduplicated
// transfer-nodes and per-kind transfer-cells. Per the Design Notes'
// "heterogeneous maps of cell-kind -> cells," cells are stored as one
// parallel slice per CellKind rather than a single polymorphic
// container, so a donor-finding pass over one kind stays cache-coherent.
type WorkVoxel struct {
	Extent adt.Extent

	nodes     []TransferNode
	nodeG2L   map[int64]int
	nodeCache *cuckoo.Filter

	cellsByKind map[mesh.CellKind][]TransferCell
}

// New builds an empty voxel over extent. capacityHint sizes the
// negative-cache cuckoo filter fronting the authoritative dedup map
// (spec.md §8 invariant 6): a global id the filter reports "definitely
// not present" skips the map lookup entirely, and any filter hit still
// falls through to the map, so the dedup invariant never depends on the
// filter's false-positive rate.
func New(extent adt.Extent, capacityHint uint) *WorkVoxel {
	if capacityHint == 0 {
		capacityHint = 1024
	}
	return &WorkVoxel{
		Extent:      extent,
		nodeG2L:     make(map[int64]int),
		nodeCache:   cuckoo.NewFilter(capacityHint),
		cellsByKind: make(map[mesh.CellKind][]TransferCell),
	}
}

func globalIDKey(id int64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(id >> (8 * i))
	}
	return b[:]
}

// AddTransferNode inserts n if its global id isn't already resident and
// returns its voxel-local id either way (spec.md §8 invariant 6:
// "adding the same transfer-node twice yields one entry").
func (v *WorkVoxel) AddTransferNode(n TransferNode) int {
	key := globalIDKey(n.GlobalID)
	if v.nodeCache.Lookup(key) {
		if local, ok := v.nodeG2L[n.GlobalID]; ok {
			return local
		}
	}
	local := len(v.nodes)
	v.nodes = append(v.nodes, n)
	v.nodeG2L[n.GlobalID] = local
	v.nodeCache.InsertUnique(key)
	return local
}

// LocalNodeID resolves a global node id to this voxel's local id, if
// it's resident (i.e. a matching AddTransferNode already ran).
func (v *WorkVoxel) LocalNodeID(global int64) (int, bool) {
	local, ok := v.nodeG2L[global]
	return local, ok
}

// AddTransferCell rewrites globalNodeIDs to this voxel's local
// numbering (spec.md §8 invariant 6: "adding a transfer-cell rewrites
// its node refs to local ids referring to those same entries") and
// appends the cell under its kind. Every referenced global id must
// already be resident via AddTransferNode; callers assemble a
// fragment's nodes before its cells for exactly this reason.
func (v *WorkVoxel) AddTransferCell(kind mesh.CellKind, componentID int, originCellID int64, originOwner int, globalNodeIDs []int64) error {
	locals := make([]int, len(globalNodeIDs))
	for i, g := range globalNodeIDs {
		local, ok := v.LocalNodeID(g)
		if !ok {
			return cmn.Raise(cmn.ErrInvariant, "voxel cell (origin %d) references global node %d not yet added to this voxel", originCellID, g)
		}
		locals[i] = local
	}
	v.cellsByKind[kind] = append(v.cellsByKind[kind], TransferCell{
		Kind: kind, LocalNodeIDs: locals, ComponentID: componentID,
		OriginCellID: originCellID, OriginOwningRank: originOwner,
	})
	return nil
}

func (v *WorkVoxel) Node(local int) TransferNode { return v.nodes[local] }
func (v *WorkVoxel) NodeCount() int              { return len(v.nodes) }

// Nodes returns every transfer-node currently resident, in insertion
// order (stable so repeated donor-finding passes over the same voxel
// agree on scan order).
func (v *WorkVoxel) Nodes() []TransferNode { return v.nodes }

// CellsOfKind returns the transfer-cells of one kind, for the per-kind
// iteration the Design Notes call for.
func (v *WorkVoxel) CellsOfKind(k mesh.CellKind) []TransferCell { return v.cellsByKind[k] }

// Kinds returns every cell kind with at least one resident cell.
func (v *WorkVoxel) Kinds() []mesh.CellKind {
	out := make([]mesh.CellKind, 0, len(v.cellsByKind))
	for k := range v.cellsByKind {
		out = append(out, k)
	}
	return out
}

// CellBoundingBox returns the axis-aligned extent of a transfer-cell's
// nodes, used to key it into a component's ADT (spec.md §4.5 step 1).
func (v *WorkVoxel) CellBoundingBox(c TransferCell) adt.Extent {
	e := adt.Extent{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, local := range c.LocalNodeIDs {
		p := v.nodes[local].XYZ()
		for ax := 0; ax < 3; ax++ {
			if p[ax] < e.Min[ax] {
				e.Min[ax] = p[ax]
			}
			if p[ax] > e.Max[ax] {
				e.Max[ax] = p[ax]
			}
		}
	}
	return e
}
