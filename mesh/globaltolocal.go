package mesh

// GlobalToLocalNodes and the rest of this file mirror
// original_source/t-infinity/src/t-infinity/GlobalToLocal.{h,cpp} one
// free function at a time, built on top of Mesh's own live maps rather
// than scanning linearly — callers that need a point-in-time snapshot
// (e.g. before a shuffle swaps node ids out from under them) should call
// these instead of reaching into Mesh's internals.

// GlobalToLocalNodes returns a fresh copy of the node global-id ->
// local-id map.
func GlobalToLocalNodes(m *Mesh) map[int64]int {
	out := make(map[int64]int, len(m.nodes))
	for g, l := range m.nodeG2L {
		out[g] = l
	}
	return out
}

// GlobalToLocalCells returns a fresh copy of the cell global-id ->
// local-id map.
func GlobalToLocalCells(m *Mesh) map[int64]int {
	out := make(map[int64]int, len(m.cells))
	for g, l := range m.cellG2L {
		out[g] = l
	}
	return out
}

// LocalToGlobalNodes returns local-id -> global-id, indexed by local id.
func LocalToGlobalNodes(m *Mesh) []int64 {
	out := make([]int64, len(m.nodes))
	for l, n := range m.nodes {
		out[l] = n.GlobalID
	}
	return out
}

// LocalToGlobalCells returns local-id -> global-id, indexed by local id.
func LocalToGlobalCells(m *Mesh) []int64 {
	out := make([]int64, len(m.cells))
	for l, c := range m.cells {
		out[l] = c.GlobalID
	}
	return out
}
