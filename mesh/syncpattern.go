package mesh

import (
	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/mp"
	"github.com/nasa/YOGA-sub004/msg"
)

// SyncPattern is the precomputed "who sends what to whom" descriptor
// spec.md §3 defines for ghost refresh: for every peer, the ordered
// local ids this rank sends (because it owns them and the peer holds
// them as ghosts) and the ordered local ids this rank receives into
// (its own ghost slots, in the order the owner will reply).
type SyncPattern struct {
	send map[int][]int
	recv map[int][]int
}

func packInt64Slice(m *msg.Message, v []int64) { m.PackInt64Slice(v) }
func unpackInt64Slice(m *msg.Message) ([]int64, error) { return m.UnpackInt64Slice() }

// buildSyncPattern announces, to each owning peer, the global ids this
// rank holds as ghosts of that peer, then resolves the replies each
// rank received as an owner into its own send list — the two-phase
// "announce what I own / what I need, peers compute the intersection"
// protocol of spec.md §4.3, collapsed to one round because every ghost
// already records its owning rank locally.
func buildSyncPattern(g *mp.Group, totalLocal int, ownerOf func(local int) int, globalOf func(local int) int64, resolve func(global int64) (int, bool)) (*SyncPattern, error) {
	rank := g.Rank()
	recv := make(map[int][]int)
	requestGlobals := make(map[int][]int64)
	for local := 0; local < totalLocal; local++ {
		owner := ownerOf(local)
		if owner == rank {
			continue
		}
		recv[owner] = append(recv[owner], local)
		requestGlobals[owner] = append(requestGlobals[owner], globalOf(local))
	}

	incoming, err := mp.AllToAllMap(g, requestGlobals, packInt64Slice, unpackInt64Slice)
	if err != nil {
		return nil, err
	}

	send := make(map[int][]int)
	for asker, globals := range incoming {
		locals := make([]int, len(globals))
		for i, global := range globals {
			local, ok := resolve(global)
			if !ok {
				return nil, cmn.Raise(cmn.ErrInvariant, "rank %d asked this rank for global id %d, which isn't resident here", asker, global)
			}
			locals[i] = local
		}
		send[asker] = locals
	}
	return &SyncPattern{send: send, recv: recv}, nil
}

// BuildNodeSyncPattern builds the ghost-refresh pattern for m's nodes.
func BuildNodeSyncPattern(g *mp.Group, m *Mesh) (*SyncPattern, error) {
	return buildSyncPattern(g, m.NodeCount(),
		func(local int) int { return m.nodes[local].Owner },
		func(local int) int64 { return m.nodes[local].GlobalID },
		m.LocalNodeID)
}

// BuildCellSyncPattern builds the ghost-refresh pattern for m's cells.
func BuildCellSyncPattern(g *mp.Group, m *Mesh) (*SyncPattern, error) {
	return buildSyncPattern(g, m.CellCount(),
		func(local int) int { return m.cells[local].Owner },
		func(local int) int64 { return m.cells[local].GlobalID },
		m.LocalCellID)
}

// Sync refreshes every ghost slot in values (indexed by local id) with
// its owner's current value, using a pattern built once per topology and
// reused across calls and payload types (spec.md §3, §4.3). Field
// values the owners held at the start of this call are what ghosts see
// afterward — there is no read-your-writes across two Sync calls
// (spec.md §5's ordering guarantee).
func Sync[T any](g *mp.Group, pattern *SyncPattern, values []T, pack func(*msg.Message, T), unpack func(*msg.Message) (T, error)) error {
	packSlice := func(m *msg.Message, s []T) { msg.PackEach(m, s, pack) }
	unpackSlice := func(m *msg.Message) ([]T, error) { return msg.UnpackEach(m, unpack) }

	perDest := make(map[int][]T, len(pattern.send))
	for peer, locals := range pattern.send {
		vals := make([]T, len(locals))
		for i, l := range locals {
			vals[i] = values[l]
		}
		perDest[peer] = vals
	}

	recvd, err := mp.AllToAllMap(g, perDest, packSlice, unpackSlice)
	if err != nil {
		return err
	}
	for peer, locals := range pattern.recv {
		vals, ok := recvd[peer]
		if !ok || len(vals) != len(locals) {
			return cmn.Raise(cmn.ErrInvariant, "sync: expected %d values from rank %d, got %d", len(locals), peer, len(vals))
		}
		for i, l := range locals {
			values[l] = vals[i]
		}
	}
	return nil
}
