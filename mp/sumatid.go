package mp

import "github.com/nasa/YOGA-sub004/msg"

type idValue struct {
	ID    int64
	Value float64
}

func packIDValue(m *msg.Message, v idValue) {
	m.PackInt64(v.ID)
	m.PackFloat64(v.Value)
}

func unpackIDValue(m *msg.Message) (idValue, error) {
	var v idValue
	var err error
	v.ID, err = m.UnpackInt64()
	if err != nil {
		return v, err
	}
	v.Value, err = m.UnpackFloat64()
	return v, err
}

// SumAtId implements spec.md §4.2's SumAtId: given a map id->contribution
// on every rank and an ownerOf(id) function, each rank forwards its
// contributions to the owning rank, owners sum by id, and owners echo
// the summed value back to every rank that contributed — so the final
// value returned at id equals the sum of every contribution keyed to it,
// visible on every contributing rank.
func SumAtId(g *Group, contributions map[int64]float64, ownerOf func(id int64) int) (map[int64]float64, error) {
	size := g.Size()
	perDest := make([][]idValue, size)
	for id, v := range contributions {
		owner := ownerOf(id)
		perDest[owner] = append(perDest[owner], idValue{ID: id, Value: v})
	}
	recvd, err := AllToAllVector(g, perDest, packIDValue, unpackIDValue)
	if err != nil {
		return nil, err
	}

	sums := make(map[int64]float64)
	for _, items := range recvd {
		for _, iv := range items {
			sums[iv.ID] += iv.Value
		}
	}

	echoDest := make([][]idValue, size)
	for src, items := range recvd {
		seen := make(map[int64]bool, len(items))
		for _, iv := range items {
			if seen[iv.ID] {
				continue
			}
			seen[iv.ID] = true
			echoDest[src] = append(echoDest[src], idValue{ID: iv.ID, Value: sums[iv.ID]})
		}
	}
	echoed, err := AllToAllVector(g, echoDest, packIDValue, unpackIDValue)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]float64, len(contributions))
	for _, items := range echoed {
		for _, iv := range items {
			out[iv.ID] = iv.Value
		}
	}
	return out, nil
}
