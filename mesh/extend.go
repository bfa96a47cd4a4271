package mesh

import "github.com/nasa/YOGA-sub004/mp"

// ExtendNodeSupport enlarges m's halo so every node owner receives, from
// every rank holding a copy of one of its nodes, the full set of cells
// that rank knows incident to it (spec.md §4.3's "extend node support"),
// grounded on
// original_source/t-infinity/src/t-infinity/MeshShuffle.cpp's
// queueFragmentsToAddNodeStencilSupport. Unlike ShuffleByNodeOwner, this
// does not reassign ownership — the returned mesh keeps m's own local
// numbering for its existing entities and adds newly received ones on
// top.
func ExtendNodeSupport(g *mp.Group, m *Mesh) (*Mesh, error) {
	n2c := m.NodeToCell()
	perDest := make(map[int][]wireCell)
	sentToDest := make(map[int]map[int64]bool)

	for local := 0; local < m.NodeCount(); local++ {
		target := m.Node(local).Owner
		for _, c := range n2c[local] {
			cell := m.Cell(c)
			if sentToDest[target] == nil {
				sentToDest[target] = make(map[int64]bool)
			}
			if sentToDest[target][cell.GlobalID] {
				continue
			}
			sentToDest[target][cell.GlobalID] = true
			perDest[target] = append(perDest[target], wireCellOf(m, cell))
		}
	}

	recvd, err := mp.AllToAllMap(g, perDest, packWireCells, unpackWireCells)
	if err != nil {
		return nil, err
	}
	return mergeHalo(g, m, recvd), nil
}

// ExtendCellSupport grows m's halo by, for every node, sending each cell
// incident to that node to the owner of every cell incident to it, so a
// cell's owner receives every cell that shares a node with it (the
// stencil completeness
// original_source/t-infinity/src/t-infinity/MeshShuffle.cpp's
// ensureCellSupport builds). Cells reached only through a second hop
// are not sent.
func ExtendCellSupport(g *mp.Group, m *Mesh) (*Mesh, error) {
	n2c := m.NodeToCell()
	perDest := make(map[int][]wireCell)
	sentToDest := make(map[int]map[int64]bool)

	for local := 0; local < m.NodeCount(); local++ {
		for _, c := range n2c[local] {
			for _, d := range n2c[local] {
				cell := m.Cell(d)
				target := m.Cell(c).Owner
				if sentToDest[target] == nil {
					sentToDest[target] = make(map[int64]bool)
				}
				if sentToDest[target][cell.GlobalID] {
					continue
				}
				sentToDest[target][cell.GlobalID] = true
				perDest[target] = append(perDest[target], wireCellOf(m, cell))
			}
		}
	}

	recvd, err := mp.AllToAllMap(g, perDest, packWireCells, unpackWireCells)
	if err != nil {
		return nil, err
	}
	return mergeHalo(g, m, recvd), nil
}

func wireCellOf(m *Mesh, cell CellRecord) wireCell {
	wc := wireCell{GlobalID: cell.GlobalID, Kind: cell.Kind, BCTag: cell.BCTag, Owner: cell.Owner}
	for _, nlocal := range cell.Nodes {
		nd := m.Node(nlocal)
		wc.Nodes = append(wc.Nodes, wireNode{GlobalID: nd.GlobalID, X: nd.X, Y: nd.Y, Z: nd.Z, Owner: nd.Owner})
	}
	return wc
}

// mergeHalo rebuilds a mesh that preserves m's own entities under their
// existing local ids (so callers holding onto local ids across the
// call see them stay valid) and layers the newly received halo cells on
// top, deduplicated by global id.
func mergeHalo(g *mp.Group, m *Mesh, recvd map[int][]wireCell) *Mesh {
	out := New(g.Rank())
	for i := 0; i < m.NodeCount(); i++ {
		out.AddNode(m.Node(i))
	}
	for i := 0; i < m.CellCount(); i++ {
		out.AddCell(m.Cell(i))
	}
	for _, cells := range recvd {
		for _, wc := range cells {
			localNodeIDs := make([]int, len(wc.Nodes))
			for i, wn := range wc.Nodes {
				localNodeIDs[i] = out.AddNode(NodeRecord{GlobalID: wn.GlobalID, X: wn.X, Y: wn.Y, Z: wn.Z, Owner: wn.Owner})
			}
			out.AddCell(CellRecord{GlobalID: wc.GlobalID, Kind: wc.Kind, Nodes: localNodeIDs, Owner: wc.Owner, BCTag: wc.BCTag})
		}
	}
	return out
}
