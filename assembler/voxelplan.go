package assembler

import (
	"math"

	"github.com/nasa/YOGA-sub004/adt"
	"github.com/nasa/YOGA-sub004/mp"
	"github.com/nasa/YOGA-sub004/msg"
)

// VoxelPlan is spec.md §4.6 step 1's "coarse spatial grid over the
// union domain": a uniform box subdivision with round-robin ownership,
// so every rank can compute, without communication, which rank owns
// any given voxel index.
type VoxelPlan struct {
	Origin   [3]float64
	CellSize [3]float64
	Dims     [3]int
	nRanks   int
}

// VoxelCount is the total number of voxels in the plan.
func (p *VoxelPlan) VoxelCount() int { return p.Dims[0] * p.Dims[1] * p.Dims[2] }

// Index linearizes a 3-D voxel coordinate.
func (p *VoxelPlan) Index(ix, iy, iz int) int {
	return (iz*p.Dims[1]+iy)*p.Dims[0] + ix
}

// Owner returns the rank a voxel is assigned to process (spec.md §4.6
// step 1: "each voxel knows which ranks own cells overlapping it" — the
// *processing* owner is a simple round-robin over voxel index, distinct
// from which ranks merely contribute cells to it).
func (p *VoxelPlan) Owner(voxelIndex int) int { return voxelIndex % p.nRanks }

// Extent returns a voxel's axis-aligned bounding box.
func (p *VoxelPlan) Extent(ix, iy, iz int) adt.Extent {
	min := [3]float64{
		p.Origin[0] + float64(ix)*p.CellSize[0],
		p.Origin[1] + float64(iy)*p.CellSize[1],
		p.Origin[2] + float64(iz)*p.CellSize[2],
	}
	max := [3]float64{min[0] + p.CellSize[0], min[1] + p.CellSize[1], min[2] + p.CellSize[2]}
	return adt.Extent{Min: min, Max: max}
}

// VoxelOf locates the voxel coordinate containing p, clamped to the
// grid's bounds (a point on the outer boundary belongs to the last
// voxel along that axis).
func (plan *VoxelPlan) VoxelOf(p [3]float64) (int, int, int) {
	coord := func(v, origin, size float64, dim int) int {
		i := int(math.Floor((v - origin) / size))
		if i < 0 {
			i = 0
		}
		if i >= dim {
			i = dim - 1
		}
		return i
	}
	ix := coord(p[0], plan.Origin[0], plan.CellSize[0], plan.Dims[0])
	iy := coord(p[1], plan.Origin[1], plan.CellSize[1], plan.Dims[1])
	iz := coord(p[2], plan.Origin[2], plan.CellSize[2], plan.Dims[2])
	return ix, iy, iz
}

type wireExtent struct{ Min, Max [3]float64 }

func packExtent(m *msg.Message, e wireExtent) {
	for _, v := range e.Min {
		m.PackFloat64(v)
	}
	for _, v := range e.Max {
		m.PackFloat64(v)
	}
}

func unpackExtent(m *msg.Message) (wireExtent, error) {
	var e wireExtent
	var err error
	for i := range e.Min {
		if e.Min[i], err = m.UnpackFloat64(); err != nil {
			return e, err
		}
	}
	for i := range e.Max {
		if e.Max[i], err = m.UnpackFloat64(); err != nil {
			return e, err
		}
	}
	return e, nil
}

// BuildVoxelPlan computes the union domain's bounding box across every
// rank (via an all-gather over the message-passing facade, spec.md
// §4.2) and lays voxelsPerAxis voxels along each dimension.
func BuildVoxelPlan(g *mp.Group, local adt.Extent, voxelsPerAxis int) (*VoxelPlan, error) {
	mine := wireExtent{Min: local.Min, Max: local.Max}
	all, err := mp.AllGather(g, mine, packExtent, unpackExtent)
	if err != nil {
		return nil, err
	}
	union := adt.Extent{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, e := range all {
		for ax := 0; ax < 3; ax++ {
			if e.Min[ax] < union.Min[ax] {
				union.Min[ax] = e.Min[ax]
			}
			if e.Max[ax] > union.Max[ax] {
				union.Max[ax] = e.Max[ax]
			}
		}
	}
	if voxelsPerAxis < 1 {
		voxelsPerAxis = 1
	}
	plan := &VoxelPlan{Origin: union.Min, Dims: [3]int{voxelsPerAxis, voxelsPerAxis, voxelsPerAxis}, nRanks: g.Size()}
	for ax := 0; ax < 3; ax++ {
		span := union.Max[ax] - union.Min[ax]
		if span <= 0 {
			span = 1
		}
		plan.CellSize[ax] = span / float64(voxelsPerAxis)
	}
	return plan, nil
}
