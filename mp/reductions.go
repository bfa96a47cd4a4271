package mp

import "github.com/nasa/YOGA-sub004/msg"

// Reduce applies a caller-supplied associative binary operator across
// every rank's value and returns the combined result on every rank (an
// all-reduce): S1's "ParallelSum(1) on every rank returns 4" only makes
// sense if every rank sees the combined value, not just a root. Per
// spec.md §9's translation note, op is a plain closure carried through
// this call — never a package-level/global operator — so concurrent
// reductions across independent Groups are safe by construction.
func Reduce[T any](g *Group, value T, op func(a, b T) T, pack func(*msg.Message, T), unpack func(*msg.Message) (T, error)) (T, error) {
	values, err := AllGather(g, value, pack, unpack)
	var zero T
	if err != nil {
		return zero, err
	}
	acc := values[0]
	for _, v := range values[1:] {
		acc = op(acc, v)
	}
	return acc, nil
}

func packInt64(m *msg.Message, v int64) { m.PackInt64(v) }
func unpackInt64(m *msg.Message) (int64, error) { return m.UnpackInt64() }
func packFloat64(m *msg.Message, v float64) { m.PackFloat64(v) }
func unpackFloat64(m *msg.Message) (float64, error) { return m.UnpackFloat64() }
func packBool(m *msg.Message, v bool) { m.PackBool(v) }
func unpackBool(m *msg.Message) (bool, error) { return m.UnpackBool() }

// ParallelSumInt64 sums v across every rank, result visible everywhere (S1).
func ParallelSumInt64(g *Group, v int64) (int64, error) {
	return Reduce(g, v, func(a, b int64) int64 { return a + b }, packInt64, unpackInt64)
}

func ParallelMinInt64(g *Group, v int64) (int64, error) {
	return Reduce(g, v, func(a, b int64) int64 {
		if b < a {
			return b
		}
		return a
	}, packInt64, unpackInt64)
}

func ParallelMaxInt64(g *Group, v int64) (int64, error) {
	return Reduce(g, v, func(a, b int64) int64 {
		if b > a {
			return b
		}
		return a
	}, packInt64, unpackInt64)
}

func ParallelSumFloat64(g *Group, v float64) (float64, error) {
	return Reduce(g, v, func(a, b float64) float64 { return a + b }, packFloat64, unpackFloat64)
}

func ParallelOr(g *Group, v bool) (bool, error) {
	return Reduce(g, v, func(a, b bool) bool { return a || b }, packBool, unpackBool)
}

func ParallelAnd(g *Group, v bool) (bool, error) {
	return Reduce(g, v, func(a, b bool) bool { return a && b }, packBool, unpackBool)
}

// RankOfMaxResult is the (value, rank) pair ParallelRankOfMax returns.
type RankOfMaxResult struct {
	Value float64
	Rank  int
}

func packRankOfMax(m *msg.Message, v RankOfMaxResult) {
	m.PackFloat64(v.Value)
	m.PackInt32(int32(v.Rank))
}
func unpackRankOfMax(m *msg.Message) (RankOfMaxResult, error) {
	var v RankOfMaxResult
	val, err := m.UnpackFloat64()
	if err != nil {
		return v, err
	}
	r, err := m.UnpackInt32()
	if err != nil {
		return v, err
	}
	return RankOfMaxResult{Value: val, Rank: int(r)}, nil
}

// ParallelRankOfMax returns the value and rank of the global maximum,
// ties broken by lowest rank.
func ParallelRankOfMax(g *Group, v float64) (RankOfMaxResult, error) {
	mine := RankOfMaxResult{Value: v, Rank: g.Rank()}
	return Reduce(g, mine, func(a, b RankOfMaxResult) RankOfMaxResult {
		if b.Value > a.Value || (b.Value == a.Value && b.Rank < a.Rank) {
			return b
		}
		return a
	}, packRankOfMax, unpackRankOfMax)
}

// ElementalSum reduces same-length float64 slices element-by-element.
func ElementalSum(g *Group, v []float64) ([]float64, error) {
	return Reduce(g, v, func(a, b []float64) []float64 {
		out := make([]float64, len(a))
		for i := range a {
			out[i] = a[i] + b[i]
		}
		return out
	}, func(m *msg.Message, s []float64) { m.PackFloat64Slice(s) }, func(m *msg.Message) ([]float64, error) { return m.UnpackFloat64Slice() })
}

// ElementalMin reduces same-length float64 slices element-by-element.
func ElementalMin(g *Group, v []float64) ([]float64, error) {
	return Reduce(g, v, func(a, b []float64) []float64 {
		out := make([]float64, len(a))
		for i := range a {
			if b[i] < a[i] {
				out[i] = b[i]
			} else {
				out[i] = a[i]
			}
		}
		return out
	}, func(m *msg.Message, s []float64) { m.PackFloat64Slice(s) }, func(m *msg.Message) ([]float64, error) { return m.UnpackFloat64Slice() })
}

// ElementalMax reduces same-length float64 slices element-by-element.
func ElementalMax(g *Group, v []float64) ([]float64, error) {
	return Reduce(g, v, func(a, b []float64) []float64 {
		out := make([]float64, len(a))
		for i := range a {
			if b[i] > a[i] {
				out[i] = b[i]
			} else {
				out[i] = a[i]
			}
		}
		return out
	}, func(m *msg.Message, s []float64) { m.PackFloat64Slice(s) }, func(m *msg.Message) ([]float64, error) { return m.UnpackFloat64Slice() })
}

// ComplexSum reduces a slice of complex values stored as interleaved
// (real, imag) float64 pairs, avoiding a dependency on complex128 in the
// wire format.
func ComplexSum(g *Group, re, im []float64) (sre, sim []float64, err error) {
	sre, err = ElementalSum(g, re)
	if err != nil {
		return nil, nil, err
	}
	sim, err = ElementalSum(g, im)
	if err != nil {
		return nil, nil, err
	}
	return sre, sim, nil
}

// UnionOfSets reduces int64 sets by union.
func UnionOfSets(g *Group, v map[int64]struct{}) (map[int64]struct{}, error) {
	pack := func(m *msg.Message, s map[int64]struct{}) {
		ids := make([]int64, 0, len(s))
		for id := range s {
			ids = append(ids, id)
		}
		m.PackInt64Slice(ids)
	}
	unpack := func(m *msg.Message) (map[int64]struct{}, error) {
		ids, err := m.UnpackInt64Slice()
		if err != nil {
			return nil, err
		}
		out := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			out[id] = struct{}{}
		}
		return out, nil
	}
	return Reduce(g, v, func(a, b map[int64]struct{}) map[int64]struct{} {
		out := make(map[int64]struct{}, len(a)+len(b))
		for id := range a {
			out[id] = struct{}{}
		}
		for id := range b {
			out[id] = struct{}{}
		}
		return out
	}, pack, unpack)
}
