package mp

import (
	"sort"

	"github.com/nasa/YOGA-sub004/cmn"
)

// Group is the Process Group of spec.md §3: a communicator plus this
// rank's index and the group size, both fixed for the group's lifetime.
type Group struct {
	t Transport
}

// Bind creates a Group over an existing Transport (spec.md §3's
// lifecycle: "created by binding to an existing communicator").
func Bind(t Transport) *Group { return &Group{t: t} }

func (g *Group) Rank() int        { return g.t.Rank() }
func (g *Group) Size() int        { return g.t.Size() }
func (g *Group) Transport() Transport { return g.t }

// Destroy releases resources split groups acquired. Binding groups have
// nothing of their own to release; present for API symmetry with Split
// per spec.md §3 ("split-groups... must be explicitly destroyed").
func (g *Group) Destroy() {}

type splitKey struct {
	Color, Key, Rank int
}

// Split partitions ranks sharing the same color into a new Group, member
// ranks renumbered in ascending key order (ties broken by original
// rank), mirroring MPI_Comm_split. A rank passing a negative color is
// excluded and gets back (nil, nil).
func (g *Group) Split(color, key int) (*Group, error) {
	mine := splitKey{Color: color, Key: key, Rank: g.Rank()}
	buf := encodeSplitKey(mine)
	gathered, err := gatherRaw(g.t, tagSplit, 0, buf)
	if err != nil {
		return nil, err
	}
	bundle := encodeBundle(gathered)
	raw, err := broadcastRaw(g.t, tagSplit+1, 0, bundle)
	if err != nil {
		return nil, err
	}
	if color < 0 {
		return nil, nil
	}
	all := decodeBundle(raw)
	var members []splitKey
	for _, b := range all {
		k := decodeSplitKey(b)
		if k.Color == color {
			members = append(members, k)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Key != members[j].Key {
			return members[i].Key < members[j].Key
		}
		return members[i].Rank < members[j].Rank
	})
	idx := make([]int, len(members))
	myNewRank := -1
	for i, m := range members {
		idx[i] = m.Rank
		if m.Rank == g.Rank() {
			myNewRank = i
		}
	}
	if myNewRank < 0 {
		return nil, cmn.Raise(cmn.ErrInvariant, "rank %d missing from its own split group", g.Rank())
	}
	sub := &subGroupTransport{parent: g.t, members: idx, self: myNewRank}
	return Bind(sub), nil
}

func encodeSplitKey(k splitKey) []byte {
	b := make([]byte, 0, 12)
	b = appendUint32(b, uint32(int32(k.Color)))
	b = appendUint32(b, uint32(int32(k.Key)))
	b = appendUint32(b, uint32(int32(k.Rank)))
	return b
}

func decodeSplitKey(b []byte) splitKey {
	return splitKey{
		Color: int(int32(readUint32(b[0:4]))),
		Key:   int(int32(readUint32(b[4:8]))),
		Rank:  int(int32(readUint32(b[8:12]))),
	}
}
