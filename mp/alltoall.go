package mp

import (
	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/msg"
)

// AllToAllVector exchanges perDest[destRank] with every other rank and
// returns what this rank received, indexed by source rank (spec.md
// §4.2 "a vector-of-vectors indexed by destination rank").
func AllToAllVector[T any](g *Group, perDest [][]T, packItem func(*msg.Message, T), unpackItem func(*msg.Message) (T, error)) ([][]T, error) {
	if len(perDest) != g.Size() {
		return nil, cmn.Raise(cmn.ErrInvariant, "all-to-all perDest has %d entries, expected group size %d", len(perDest), g.Size())
	}
	raw := make([][]byte, g.Size())
	for r, items := range perDest {
		m := msg.New()
		msg.PackEach(m, items, packItem)
		m.Finalize()
		raw[r] = m.Bytes()
	}
	recvd, err := alltoallRaw(g.t, tagAllToAll, raw)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "all-to-all vector")
	}
	out := make([][]T, g.Size())
	for r, b := range recvd {
		items, err := msg.UnpackEach(msg.FromBytes(b), unpackItem)
		if err != nil {
			return nil, err
		}
		out[r] = items
	}
	return out, nil
}

// AllToAllMap exchanges a destination-rank-keyed map of packable payloads
// (spec.md §4.2: "the facade computes per-peer send counts, exchanges
// counts, then performs a single variable-length all-to-all"). Absent
// destinations receive nothing and are absent from the result map.
func AllToAllMap[T any](g *Group, perDest map[int]T, pack func(*msg.Message, T), unpack func(*msg.Message) (T, error)) (map[int]T, error) {
	raw := make([][]byte, g.Size())
	for r := 0; r < g.Size(); r++ {
		m := msg.New()
		v, present := perDest[r]
		m.PackBool(present)
		if present {
			pack(m, v)
		}
		m.Finalize()
		raw[r] = m.Bytes()
	}
	recvd, err := alltoallRaw(g.t, tagAllToAll, raw)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "all-to-all map")
	}
	out := make(map[int]T)
	for r, b := range recvd {
		m := msg.FromBytes(b)
		present, err := m.UnpackBool()
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		v, err := unpack(m)
		if err != nil {
			return nil, err
		}
		out[r] = v
	}
	return out, nil
}
