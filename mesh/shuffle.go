package mesh

import (
	"math"

	"github.com/nasa/YOGA-sub004/mp"
	"github.com/nasa/YOGA-sub004/msg"
)

type wireNode struct {
	GlobalID int64
	X, Y, Z  float64
	Owner    int
}

func packWireNode(m *msg.Message, n wireNode) {
	m.PackInt64(n.GlobalID)
	m.PackFloat64(n.X)
	m.PackFloat64(n.Y)
	m.PackFloat64(n.Z)
	m.PackInt32(int32(n.Owner))
}

func unpackWireNode(m *msg.Message) (wireNode, error) {
	var n wireNode
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
	owner, err := m.UnpackInt32()
	n.Owner = int(owner)
	return n, err
}

type wireCell struct {
	GlobalID int64
	Kind     CellKind
	BCTag    int
	Owner    int
	Nodes    []wireNode
}

func packWireCell(m *msg.Message, c wireCell) {
	m.PackInt64(c.GlobalID)
	m.PackInt32(int32(c.Kind))
	m.PackInt32(int32(c.BCTag))
	m.PackInt32(int32(c.Owner))
	msg.PackEach(m, c.Nodes, packWireNode)
}

func unpackWireCell(m *msg.Message) (wireCell, error) {
	var c wireCell
	var err error
	if c.GlobalID, err = m.UnpackInt64(); err != nil {
		return c, err
	}
	kind, err := m.UnpackInt32()
	if err != nil {
		return c, err
	}
	c.Kind = CellKind(kind)
	bcTag, err := m.UnpackInt32()
	if err != nil {
		return c, err
	}
	c.BCTag = int(bcTag)
	owner, err := m.UnpackInt32()
	if err != nil {
		return c, err
	}
	c.Owner = int(owner)
	c.Nodes, err = msg.UnpackEach(m, unpackWireNode)
	return c, err
}

func packWireCells(m *msg.Message, s []wireCell) { msg.PackEach(m, s, packWireCell) }
func unpackWireCells(m *msg.Message) ([]wireCell, error) { return msg.UnpackEach(m, unpackWireCell) }

// ShuffleByNodeOwner implements spec.md §4.3's "shuffle by node owner":
// for every node this rank owns, every cell incident to it is routed to
// that node's new owner (original_source/t-infinity MeshShuffle.cpp's
// queueFragmentsToSendBasedOnNodes), carrying each referenced node's
// coordinates and new owner so the receiver can reconstruct without a
// second round trip. Per spec.md §8 invariant 5, the returned mesh's
// node owners equal newNodeOwners and each cell's owner equals the new
// owner of its minimum-global-id node.
func ShuffleByNodeOwner(g *mp.Group, m *Mesh, newNodeOwners []int) (*Mesh, error) {
	n2c := m.NodeToCell()
	perDest := make(map[int][]wireCell)
	sentToDest := make(map[int]map[int64]bool)

	for _, local := range m.OwnedNodes() {
		newOwner := newNodeOwners[local]
		for _, c := range n2c[local] {
			cell := m.Cell(c)
			if sentToDest[newOwner] == nil {
				sentToDest[newOwner] = make(map[int64]bool)
			}
			if sentToDest[newOwner][cell.GlobalID] {
				continue
			}
			sentToDest[newOwner][cell.GlobalID] = true

			wc := wireCell{GlobalID: cell.GlobalID, Kind: cell.Kind, BCTag: cell.BCTag, Owner: cell.Owner}
			for _, nlocal := range cell.Nodes {
				nd := m.Node(nlocal)
				wc.Nodes = append(wc.Nodes, wireNode{
					GlobalID: nd.GlobalID, X: nd.X, Y: nd.Y, Z: nd.Z,
					Owner: newNodeOwners[nlocal],
				})
			}
			perDest[newOwner] = append(perDest[newOwner], wc)
		}
	}

	recvd, err := mp.AllToAllMap(g, perDest, packWireCells, unpackWireCells)
	if err != nil {
		return nil, err
	}

	out := New(g.Rank())
	for _, cells := range recvd {
		for _, wc := range cells {
			localNodeIDs := make([]int, len(wc.Nodes))
			minGlobal := int64(math.MaxInt64)
			minOwner := -1
			for i, wn := range wc.Nodes {
				localNodeIDs[i] = out.AddNode(NodeRecord{
					GlobalID: wn.GlobalID, X: wn.X, Y: wn.Y, Z: wn.Z, Owner: wn.Owner,
				})
				if wn.GlobalID < minGlobal {
					minGlobal = wn.GlobalID
					minOwner = wn.Owner
				}
			}
			out.AddCell(CellRecord{
				GlobalID: wc.GlobalID, Kind: wc.Kind, Nodes: localNodeIDs,
				Owner: minOwner, BCTag: wc.BCTag,
			})
		}
	}
	return out, nil
}

// ShuffleByCellOwner routes each owned cell directly to its new owner
// (original_source MeshShuffle.cpp's queueFragmentsToSendBasedOnCells,
// minus the cell-to-cell neighbor expansion — that stencil-completeness
// step is ExtendCellSupport's job, kept separate so callers can shuffle
// without paying for halo growth they don't need yet).
func ShuffleByCellOwner(g *mp.Group, m *Mesh, newCellOwners []int) (*Mesh, error) {
	perDest := make(map[int][]wireCell)
	for _, local := range m.OwnedCells() {
		cell := m.Cell(local)
		wc := wireCell{GlobalID: cell.GlobalID, Kind: cell.Kind, BCTag: cell.BCTag, Owner: cell.Owner}
		for _, nlocal := range cell.Nodes {
			nd := m.Node(nlocal)
			wc.Nodes = append(wc.Nodes, wireNode{GlobalID: nd.GlobalID, X: nd.X, Y: nd.Y, Z: nd.Z, Owner: nd.Owner})
		}
		target := newCellOwners[local]
		perDest[target] = append(perDest[target], wc)
	}

	recvd, err := mp.AllToAllMap(g, perDest, packWireCells, unpackWireCells)
	if err != nil {
		return nil, err
	}
	out := New(g.Rank())
	for _, cells := range recvd {
		for _, wc := range cells {
			localNodeIDs := make([]int, len(wc.Nodes))
			for i, wn := range wc.Nodes {
				localNodeIDs[i] = out.AddNode(NodeRecord{GlobalID: wn.GlobalID, X: wn.X, Y: wn.Y, Z: wn.Z, Owner: wn.Owner})
			}
			out.AddCell(CellRecord{GlobalID: wc.GlobalID, Kind: wc.Kind, Nodes: localNodeIDs, Owner: g.Rank(), BCTag: wc.BCTag})
		}
	}
	return out, nil
}
