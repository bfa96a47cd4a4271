package mp

import (
	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/msg"
)

func packValue[T any](v T, pack func(*msg.Message, T)) []byte {
	m := msg.New()
	pack(m, v)
	m.Finalize()
	return m.Bytes()
}

func unpackValue[T any](b []byte, unpack func(*msg.Message) (T, error)) (T, error) {
	m := msg.FromBytes(b)
	return unpack(m)
}

// Gather sends value from every rank to root; non-root callers get a nil
// slice back (spec.md §4.2 "gather-to-root").
func Gather[T any](g *Group, root int, value T, pack func(*msg.Message, T), unpack func(*msg.Message) (T, error)) ([]T, error) {
	data := packValue(value, pack)
	gathered, err := gatherRaw(g.t, tagGather, root, data)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "gather")
	}
	if g.Rank() != root {
		return nil, nil
	}
	out := make([]T, len(gathered))
	for i, b := range gathered {
		v, err := unpackValue(b, unpack)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// AllGather is Gather-to-root followed by Broadcast (spec.md §8 invariant 2).
func AllGather[T any](g *Group, value T, pack func(*msg.Message, T), unpack func(*msg.Message) (T, error)) ([]T, error) {
	data := packValue(value, pack)
	bundles, err := allGatherRaw(g.t, tagGather, data)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "all-gather")
	}
	out := make([]T, len(bundles))
	for i, b := range bundles {
		v, err := unpackValue(b, unpack)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Broadcast sends root's value to every rank and returns it everywhere.
func Broadcast[T any](g *Group, root int, value T, pack func(*msg.Message, T), unpack func(*msg.Message) (T, error)) (T, error) {
	data := packValue(value, pack)
	out, err := broadcastRaw(g.t, tagBroadcast, root, data)
	var zero T
	if err != nil {
		return zero, cmn.Wrap(cmn.ErrTransport, err, "broadcast")
	}
	return unpackValue(out, unpack)
}

// ScatterEqual splits values (known only on root, one entry per rank)
// so each rank receives its own (spec.md §4.2 "scatter, equal-length").
func ScatterEqual[T any](g *Group, root int, values []T, pack func(*msg.Message, T), unpack func(*msg.Message) (T, error)) (T, error) {
	var perRank [][]byte
	if g.Rank() == root {
		perRank = make([][]byte, len(values))
		for i, v := range values {
			perRank[i] = packValue(v, pack)
		}
	}
	data, err := scatterRaw(g.t, tagScatter, root, perRank)
	var zero T
	if err != nil {
		return zero, cmn.Wrap(cmn.ErrTransport, err, "scatter")
	}
	return unpackValue(data, unpack)
}

// ScatterVariable splits values (one, possibly differently-sized, slice
// per rank, known only on root) so each rank receives its own slice
// (spec.md §4.2 "scatter, variable-length").
func ScatterVariable[T any](g *Group, root int, values [][]T, packItem func(*msg.Message, T), unpackItem func(*msg.Message) (T, error)) ([]T, error) {
	var perRank [][]byte
	if g.Rank() == root {
		perRank = make([][]byte, len(values))
		for i, v := range values {
			m := msg.New()
			msg.PackEach(m, v, packItem)
			m.Finalize()
			perRank[i] = m.Bytes()
		}
	}
	data, err := scatterRaw(g.t, tagScatter, root, perRank)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "scatter-variable")
	}
	return msg.UnpackEach(msg.FromBytes(data), unpackItem)
}
