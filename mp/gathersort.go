package mp

import (
	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/msg"
)

// GatherAndSort implements spec.md §4.2's "each rank contributes (values,
// global ids, stride); the root assembles the dense stride*(max_gid+1)
// result ordered by global id." When two ranks supply the same
// (stride*gid+i) slot, the later-arriving one overwrites; this
// implementation defines "later" as higher rank index, since ranks are
// visited in ascending order and whichever is visited last wins —
// callers are expected to supply disjoint ids (spec.md §4.2).
func GatherAndSort(g *Group, root int, values []float64, gids []int64, stride int) ([]float64, error) {
	if len(values) != len(gids)*stride {
		return nil, cmn.Raise(cmn.ErrInvariant, "GatherAndSort: %d values doesn't match %d ids at stride %d", len(values), len(gids), stride)
	}
	localMax := int64(-1)
	for _, id := range gids {
		if id > localMax {
			localMax = id
		}
	}
	globalMax, err := ParallelMaxInt64(g, localMax)
	if err != nil {
		return nil, err
	}

	type contribution struct {
		gids   []int64
		values []float64
	}
	pack := func(m *msg.Message, c contribution) {
		m.PackInt64Slice(c.gids)
		m.PackFloat64Slice(c.values)
	}
	unpack := func(m *msg.Message) (contribution, error) {
		var c contribution
		var err error
		c.gids, err = m.UnpackInt64Slice()
		if err != nil {
			return c, err
		}
		c.values, err = m.UnpackFloat64Slice()
		return c, err
	}
	gathered, err := Gather(g, root, contribution{gids: gids, values: values}, pack, unpack)
	if err != nil {
		return nil, err
	}
	if g.Rank() != root {
		return nil, nil
	}
	n, err := cmn.BigToInt(globalMax + 1)
	if err != nil {
		return nil, err
	}
	dense := make([]float64, n*stride)
	for _, c := range gathered {
		for i, id := range c.gids {
			idx, err := cmn.BigToInt(id)
			if err != nil {
				return nil, err
			}
			copy(dense[idx*stride:(idx+1)*stride], c.values[i*stride:(i+1)*stride])
		}
	}
	return dense, nil
}
