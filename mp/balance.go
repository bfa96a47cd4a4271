package mp

import (
	"sort"

	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/msg"
)

// Balance redistributes an ordered sequence, currently scattered however
// the caller likes across the whole group, across the contiguous rank
// range [r0,r1) so each of those ranks' count differs by at most one, in
// global-index order (spec.md §4.2, §8 invariant 3). Implemented with a
// single all-to-all: every rank first learns the global prefix offset of
// its own local run (via an all-gather of counts, spec.md §8 invariant 2),
// then splits its run across whichever target ranks own the
// corresponding sub-range, and the all-to-all result is concatenated in
// ascending source-rank order — which is the same as ascending global
// index order, since both source rank and target rank walk the sequence
// left to right.
func Balance[T any](g *Group, data []T, r0, r1 int, pack func(*msg.Message, T), unpack func(*msg.Message) (T, error)) ([]T, error) {
	size := g.Size()
	if r0 < 0 || r1 > size || r0 >= r1 {
		return nil, cmn.Raise(cmn.ErrOutOfRange, "balance target range [%d,%d) is outside group of size %d", r0, r1, size)
	}
	counts, err := AllGather(g, int64(len(data)), packInt64, unpackInt64)
	if err != nil {
		return nil, err
	}
	var myStart int64
	var total int64
	for r, c := range counts {
		if r < g.Rank() {
			myStart += c
		}
		total += c
	}
	rangeSize := int64(r1 - r0)
	base := total / rangeSize
	rem := total % rangeSize
	targetStart := make([]int64, rangeSize+1)
	for j := int64(0); j < rangeSize; j++ {
		cnt := base
		if j < rem {
			cnt++
		}
		targetStart[j+1] = targetStart[j] + cnt
	}

	perDest := make([][]T, size)
	for i, v := range data {
		gi := myStart + int64(i)
		j := sort.Search(int(rangeSize), func(j int) bool { return targetStart[j+1] > gi })
		dest := r0 + j
		perDest[dest] = append(perDest[dest], v)
	}
	recvd, err := AllToAllVector(g, perDest, pack, unpack)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, items := range recvd {
		out = append(out, items...)
	}
	return out, nil
}
