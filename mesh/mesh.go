package mesh

import "github.com/nasa/YOGA-sub004/cmn"

// NodeRecord is the per-node data spec.md §3 requires: coordinates,
// global id, and owning rank.
type NodeRecord struct {
	GlobalID int64
	X, Y, Z  float64
	Owner    int
}

// CellRecord is the per-cell data spec.md §3 requires. Nodes holds
// *local* node ids into the owning Mesh's node table, in the cell's
// canonical node order.
type CellRecord struct {
	GlobalID int64
	Kind     CellKind
	Nodes    []int
	Owner    int
	BCTag    int
}

// Mesh is a distributed unstructured mesh partition: the nodes and cells
// resident on this rank, each either owned (authoritative) or a ghost
// (read-only replica held for stencil completeness), per spec.md §3.
type Mesh struct {
	rank int

	nodes   []NodeRecord
	cells   []CellRecord
	nodeG2L map[int64]int
	cellG2L map[int64]int
}

func New(rank int) *Mesh {
	return &Mesh{rank: rank, nodeG2L: make(map[int64]int), cellG2L: make(map[int64]int)}
}

func (m *Mesh) Rank() int { return m.rank }

// AddNode inserts n if its global id is not already resident and
// returns its local id either way — the same dedup-by-global-id
// idempotence spec.md §8 invariant 6 requires of work voxels, applied
// here to the mesh itself.
func (m *Mesh) AddNode(n NodeRecord) int {
	if local, ok := m.nodeG2L[n.GlobalID]; ok {
		return local
	}
	local := len(m.nodes)
	m.nodes = append(m.nodes, n)
	m.nodeG2L[n.GlobalID] = local
	return local
}

// AddCell inserts c, whose Nodes must already be local ids into this
// mesh's node table (callers resolve global node ids via AddNode before
// building the CellRecord). Returns the new cell's local id, or the
// existing one if this global cell id is already resident.
func (m *Mesh) AddCell(c CellRecord) int {
	if local, ok := m.cellG2L[c.GlobalID]; ok {
		return local
	}
	local := len(m.cells)
	m.cells = append(m.cells, c)
	m.cellG2L[c.GlobalID] = local
	return local
}

func (m *Mesh) NodeCount() int { return len(m.nodes) }
func (m *Mesh) CellCount() int { return len(m.cells) }

func (m *Mesh) Node(local int) NodeRecord { return m.nodes[local] }
func (m *Mesh) Cell(local int) CellRecord { return m.cells[local] }

func (m *Mesh) SetNodeOwner(local, owner int) { m.nodes[local].Owner = owner }
func (m *Mesh) SetCellOwner(local, owner int) { m.cells[local].Owner = owner }

func (m *Mesh) LocalNodeID(global int64) (int, bool) { local, ok := m.nodeG2L[global]; return local, ok }
func (m *Mesh) LocalCellID(global int64) (int, bool) { local, ok := m.cellG2L[global]; return local, ok }

func (m *Mesh) IsOwnedNode(local int) bool { return m.nodes[local].Owner == m.rank }
func (m *Mesh) IsOwnedCell(local int) bool { return m.cells[local].Owner == m.rank }

// OwnedNodes returns the local ids of nodes owned by this rank.
func (m *Mesh) OwnedNodes() []int {
	var out []int
	for i, n := range m.nodes {
		if n.Owner == m.rank {
			out = append(out, i)
		}
	}
	return out
}

// OwnedCells returns the local ids of cells owned by this rank.
func (m *Mesh) OwnedCells() []int {
	var out []int
	for i, c := range m.cells {
		if c.Owner == m.rank {
			out = append(out, i)
		}
	}
	return out
}

// NodeToCell builds, for every local node, the local ids of cells that
// reference it (grounded on original_source/t-infinity NodeToCell.build,
// used by MeshShuffle to decide which cells a changed node ownership
// drags along).
func (m *Mesh) NodeToCell() map[int][]int {
	out := make(map[int][]int, len(m.nodes))
	for c, cell := range m.cells {
		for _, n := range cell.Nodes {
			out[n] = append(out[n], c)
		}
	}
	return out
}

// Validate checks the residency invariants spec.md §3 states: every
// referenced node id is resident, and every owned entity's owner equals
// this rank's bookkeeping (an owner value can only be wrong if a caller
// mutated a CellRecord/NodeRecord's Owner field directly instead of
// through SetNodeOwner/SetCellOwner).
func (m *Mesh) Validate() error {
	for c, cell := range m.cells {
		for _, n := range cell.Nodes {
			if n < 0 || n >= len(m.nodes) {
				return cmn.Raise(cmn.ErrInvariant, "cell %d (global %d) references non-resident local node %d", c, cell.GlobalID, n)
			}
		}
	}
	for global, local := range m.nodeG2L {
		if m.nodes[local].GlobalID != global {
			return cmn.Raise(cmn.ErrInvariant, "node global-to-local map corrupted at global id %d", global)
		}
	}
	for global, local := range m.cellG2L {
		if m.cells[local].GlobalID != global {
			return cmn.Raise(cmn.ErrInvariant, "cell global-to-local map corrupted at global id %d", global)
		}
	}
	return nil
}
