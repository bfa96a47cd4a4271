package assembler

import (
	"github.com/nasa/YOGA-sub004/mesh"
	"github.com/nasa/YOGA-sub004/msg"
	"github.com/nasa/YOGA-sub004/voxel"
)

// fragmentNode and fragmentCell are the wire shapes of spec.md §4.6 step
// 2's per-voxel fragments: every field a receiving rank needs to call
// voxel.WorkVoxel.AddTransferNode/AddTransferCell without any further
// lookups against the sender's mesh.
type fragmentNode struct {
	GlobalID     int64
	X, Y, Z      float64
	ComponentID  int32
	OwningRank   int32
	WallDistance float64
}

type fragmentCell struct {
	Kind             mesh.CellKind
	ComponentID      int32
	OriginCellID     int64
	OriginOwningRank int32
	NodeGlobalIDs    []int64
}

// fragment is everything one rank ships toward one voxel's owner.
type fragment struct {
	VoxelIndex int32
	Nodes      []fragmentNode
	Cells      []fragmentCell
}

func packFragmentNode(m *msg.Message, n fragmentNode) {
	m.PackInt64(n.GlobalID)
	m.PackFloat64(n.X)
	m.PackFloat64(n.Y)
	m.PackFloat64(n.Z)
	m.PackInt32(n.ComponentID)
	m.PackInt32(n.OwningRank)
	m.PackFloat64(n.WallDistance)
}

func unpackFragmentNode(m *msg.Message) (fragmentNode, error) {
	var n fragmentNode
	var err error
	if n.GlobalID, err = m.UnpackInt64(); err != nil {
		return n, err
	}
	if n.X, err = m.UnpackFloat64(); err != nil {
		return n, err
	}
	if n.Y, err = m.UnpackFloat64(); err != nil {
		return n, err
	}
	if n.Z, err = m.UnpackFloat64(); err != nil {
		return n, err
	}
	if n.ComponentID, err = m.UnpackInt32(); err != nil {
		return n, err
	}
	if n.OwningRank, err = m.UnpackInt32(); err != nil {
		return n, err
	}
	n.WallDistance, err = m.UnpackFloat64()
	return n, err
}

func packFragmentCell(m *msg.Message, c fragmentCell) {
	m.PackInt32(int32(c.Kind))
	m.PackInt32(c.ComponentID)
	m.PackInt64(c.OriginCellID)
	m.PackInt32(c.OriginOwningRank)
	m.PackInt64Slice(c.NodeGlobalIDs)
}

func unpackFragmentCell(m *msg.Message) (fragmentCell, error) {
	var c fragmentCell
	kind, err := m.UnpackInt32()
	if err != nil {
		return c, err
	}
	c.Kind = mesh.CellKind(kind)
	if c.ComponentID, err = m.UnpackInt32(); err != nil {
		return c, err
	}
	if c.OriginCellID, err = m.UnpackInt64(); err != nil {
		return c, err
	}
	if c.OriginOwningRank, err = m.UnpackInt32(); err != nil {
		return c, err
	}
	c.NodeGlobalIDs, err = m.UnpackInt64Slice()
	return c, err
}

func packFragment(f fragment) []byte {
	m := msg.New()
	m.PackInt32(f.VoxelIndex)
	msg.PackEach(m, f.Nodes, packFragmentNode)
	msg.PackEach(m, f.Cells, packFragmentCell)
	m.Finalize()
	return m.Bytes()
}

func unpackFragment(b []byte) (fragment, error) {
	var f fragment
	m := msg.FromBytes(b)
	voxelIndex, err := m.UnpackInt32()
	if err != nil {
		return f, err
	}
	f.VoxelIndex = voxelIndex
	if f.Nodes, err = msg.UnpackEach(m, unpackFragmentNode); err != nil {
		return f, err
	}
	f.Cells, err = msg.UnpackEach(m, unpackFragmentCell)
	return f, err
}

// applyToVoxel rebuckets a fragment's nodes and cells into v, exactly
// as spec.md §4.5 describes ("nodes are deduplicated by global id and
// renumbered into voxel-local ids; cells are rewritten against the new
// numbering").
func (f fragment) applyToVoxel(v *voxel.WorkVoxel) error {
	for _, n := range f.Nodes {
		v.AddTransferNode(voxel.TransferNode{
			GlobalID: n.GlobalID, X: n.X, Y: n.Y, Z: n.Z,
			ComponentID: int(n.ComponentID), OwningRank: int(n.OwningRank),
			WallDistance: n.WallDistance,
		})
	}
	for _, c := range f.Cells {
		if err := v.AddTransferCell(c.Kind, int(c.ComponentID), c.OriginCellID, int(c.OriginOwningRank), c.NodeGlobalIDs); err != nil {
			return err
		}
	}
	return nil
}
