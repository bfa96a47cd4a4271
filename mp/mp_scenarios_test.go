package mp

import (
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/nasa/YOGA-sub004/msg"
)

// collectOnEachRank is runOnEachRank's ginkgo-flavored sibling: it drives
// the same collective in lockstep across every rank and hands the test
// the per-rank results instead of a *testing.T.
func collectOnEachRank(groups []*Group, fn func(g *Group) (any, error)) ([]any, []error) {
	results := make([]any, len(groups))
	errs := make([]error, len(groups))
	var wg sync.WaitGroup
	for i, g := range groups {
		i, g := i, g
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = fn(g)
		}()
	}
	wg.Wait()
	return results, errs
}

var _ = Describe("All-gather integer", func() {
	It("returns the sum on every rank (S1)", func() {
		groups := newTestGroups(4)
		results, errs := collectOnEachRank(groups, func(g *Group) (any, error) {
			return ParallelSumInt64(g, 1)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		for _, r := range results {
			Expect(r).To(Equal(int64(4)))
		}
	})
})

var _ = Describe("Broadcast vector", func() {
	It("delivers rank 0's vector to every rank (S2)", func() {
		groups := newTestGroups(3)
		want := []int64{0, 1, 2, 3, 4}
		pack := func(m *msg.Message, v []int64) { m.PackInt64Slice(v) }
		unpack := func(m *msg.Message) ([]int64, error) { return m.UnpackInt64Slice() }

		results, errs := collectOnEachRank(groups, func(g *Group) (any, error) {
			var mine []int64
			if g.Rank() == 0 {
				mine = want
			}
			return Broadcast(g, 0, mine, pack, unpack)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		for _, r := range results {
			Expect(r).To(Equal(want))
		}
	})
})

var _ = Describe("Exchange map", func() {
	It("keys the result by source rank (S3)", func() {
		groups := newTestGroups(2)
		pack := func(m *msg.Message, v []int64) { m.PackInt64Slice(v) }
		unpack := func(m *msg.Message) ([]int64, error) { return m.UnpackInt64Slice() }

		results, errs := collectOnEachRank(groups, func(g *Group) (any, error) {
			var perDest map[int][]int64
			if g.Rank() == 0 {
				perDest = map[int][]int64{1: {7, 8}}
			} else {
				perDest = map[int][]int64{0: {9}}
			}
			return AllToAllMap(g, perDest, pack, unpack)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(results[0]).To(Equal(map[int][]int64{1: {9}}))
		Expect(results[1]).To(Equal(map[int][]int64{0: {7, 8}}))
	})
})

var _ = Describe("Balance", func() {
	It("spreads inputs across the target range in global order (S6)", func() {
		groups := newTestGroups(3)
		input := []byte("abcdefg")
		pack := func(m *msg.Message, v byte) { m.PackUint8(v) }
		unpack := func(m *msg.Message) (byte, error) { return m.UnpackUint8() }

		results, errs := collectOnEachRank(groups, func(g *Group) (any, error) {
			var mine []byte
			if g.Rank() == 0 {
				mine = input
			}
			return Balance(g, mine, 0, 3, pack, unpack)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(results[0]).To(HaveLen(3))
		Expect(results[1]).To(HaveLen(2))
		Expect(results[2]).To(HaveLen(2))

		var flat []byte
		for _, r := range results {
			flat = append(flat, r.([]byte)...)
		}
		Expect(flat).To(Equal(input))
	})
})
