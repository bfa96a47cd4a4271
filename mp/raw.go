package mp

import (
	"golang.org/x/sync/errgroup"

	"github.com/nasa/YOGA-sub004/cmn"
)

// gatherRaw sends data from every rank to root, returning nil on
// non-root ranks and the per-rank payloads (in rank order) on root.
func gatherRaw(t Transport, tag int, root int, data []byte) ([][]byte, error) {
	if t.Rank() == root {
		out := make([][]byte, t.Size())
		out[root] = data
		for r := 0; r < t.Size(); r++ {
			if r == root {
				continue
			}
			b, err := t.Recv(r, tag)
			if err != nil {
				return nil, cmn.Wrap(cmn.ErrTransport, err, "gather recv")
			}
			out[r] = b
		}
		return out, nil
	}
	if err := t.Send(root, tag, data); err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "gather send")
	}
	return nil, nil
}

// broadcastRaw sends root's data to every other rank, and returns it.
func broadcastRaw(t Transport, tag int, root int, data []byte) ([]byte, error) {
	if t.Rank() == root {
		for r := 0; r < t.Size(); r++ {
			if r == root {
				continue
			}
			if err := t.Send(r, tag, data); err != nil {
				return nil, cmn.Wrap(cmn.ErrTransport, err, "broadcast send")
			}
		}
		return data, nil
	}
	b, err := t.Recv(root, tag)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "broadcast recv")
	}
	return b, nil
}

// allGatherRaw is gather-to-root followed by broadcast-of-the-bundle,
// which is exactly the symmetry spec.md §8 invariant 2 requires
// ("gather followed by broadcast equals all-gather").
func allGatherRaw(t Transport, tag int, data []byte) ([][]byte, error) {
	const root = 0
	gathered, err := gatherRaw(t, tag, root, data)
	if err != nil {
		return nil, err
	}
	bundle := encodeBundle(gathered)
	out, err := broadcastRaw(t, tag+1, root, bundle)
	if err != nil {
		return nil, err
	}
	return decodeBundle(out), nil
}

// scatterRaw splits perRankData (indexed by destination rank, known only
// on root) so each rank ends up with its own slice.
func scatterRaw(t Transport, tag int, root int, perRankData [][]byte) ([]byte, error) {
	if t.Rank() == root {
		for r := 0; r < t.Size(); r++ {
			if r == root {
				continue
			}
			if err := t.Send(r, tag, perRankData[r]); err != nil {
				return nil, cmn.Wrap(cmn.ErrTransport, err, "scatter send")
			}
		}
		return perRankData[root], nil
	}
	b, err := t.Recv(root, tag)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "scatter recv")
	}
	return b, nil
}

// alltoallRaw exchanges perPeerData[dest] with every other rank and
// returns what this rank received, indexed by source rank. Every peer's
// send and receive run in their own errgroup goroutine (spec.md §9's
// translation note on replacing hand-rolled thread pools): Wait waits
// for every goroutine and returns the first error. Nothing is
// cancelled on a failure, so a receive from a peer that never sends
// keeps the exchange blocked.
func alltoallRaw(t Transport, tag int, perPeerData [][]byte) ([][]byte, error) {
	size := t.Size()
	me := t.Rank()
	out := make([][]byte, size)
	out[me] = perPeerData[me]

	g := new(errgroup.Group)
	for r := 0; r < size; r++ {
		if r == me {
			continue
		}
		r := r
		g.Go(func() error {
			if err := t.Send(r, tag, perPeerData[r]); err != nil {
				return cmn.Wrap(cmn.ErrTransport, err, "all-to-all send")
			}
			return nil
		})
		g.Go(func() error {
			b, err := t.Recv(r, tag)
			if err != nil {
				return cmn.Wrap(cmn.ErrTransport, err, "all-to-all recv")
			}
			out[r] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeBundle/decodeBundle pack a [][]byte into one []byte ("int32
// N || per-item int64 length || bytes", the sequence-of-nested-buffers
// shape from spec.md §4.1) so gather's output can travel over a single
// broadcast call.
func encodeBundle(items [][]byte) []byte {
	// length-prefixed concatenation over raw bytes; this file does not
	// use msg.Message.
	total := 4
	for _, it := range items {
		total += 8 + len(it)
	}
	buf := make([]byte, 0, total)
	buf = appendUint32(buf, uint32(len(items)))
	for _, it := range items {
		buf = appendUint64(buf, uint64(len(it)))
		buf = append(buf, it...)
	}
	return buf
}

func decodeBundle(buf []byte) [][]byte {
	n := readUint32(buf)
	buf = buf[4:]
	out := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		l := readUint64(buf)
		buf = buf[8:]
		out = append(out, buf[:l])
		buf = buf[l:]
	}
	return out
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
func appendUint64(b []byte, v uint64) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}
func readUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func readUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
