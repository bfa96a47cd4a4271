package mp

import (
	"sync"
	"testing"
)

func newTestGroups(size int) []*Group {
	transports := NewLocalNetwork(size)
	groups := make([]*Group, size)
	for i, t := range transports {
		groups[i] = Bind(t)
	}
	return groups
}

// runOnEachRank calls fn concurrently once per rank and fails the test if
// any rank returns an error. Collectives require every rank to call them
// in the same order (spec.md §5), so every fn must drive the same
// sequence of collective calls.
func runOnEachRank(t *testing.T, groups []*Group, fn func(g *Group) error) {
	t.Helper()
	var wg sync.WaitGroup
	errs := make([]error, len(groups))
	for i, g := range groups {
		i, g := i, g
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn(g)
		}()
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", i, err)
		}
	}
}

func TestSplitPartitionsByColor(t *testing.T) {
	groups := newTestGroups(4)
	colors := []int{0, 1, 0, 1}
	subSizes := make([]int, 4)
	runOnEachRank(t, groups, func(g *Group) error {
		sub, err := g.Split(colors[g.Rank()], g.Rank())
		if err != nil {
			return err
		}
		subSizes[g.Rank()] = sub.Size()
		return nil
	})
	for r, n := range subSizes {
		if n != 2 {
			t.Errorf("rank %d: sub-group size %d, want 2", r, n)
		}
	}
}

func TestSumAtIdSumsAllContributions(t *testing.T) {
	groups := newTestGroups(3)
	ownerOf := func(id int64) int { return int(id % 3) }
	contributionsByRank := []map[int64]float64{
		{0: 1, 3: 2},
		{0: 10, 1: 5},
		{3: 100},
	}
	results := make([]map[int64]float64, 3)
	runOnEachRank(t, groups, func(g *Group) error {
		got, err := SumAtId(g, contributionsByRank[g.Rank()], ownerOf)
		results[g.Rank()] = got
		return err
	})
	if results[0][0] != 11 {
		t.Errorf("id 0: got %v, want 11", results[0][0])
	}
	if results[0][3] != 102 || results[2][3] != 102 {
		t.Errorf("id 3: rank0=%v rank2=%v, want 102 on both", results[0][3], results[2][3])
	}
	if results[1][1] != 5 {
		t.Errorf("id 1: got %v, want 5", results[1][1])
	}
}

func TestGatherAndSortLaterRankWins(t *testing.T) {
	groups := newTestGroups(2)
	results := make([][]float64, 2)
	runOnEachRank(t, groups, func(g *Group) error {
		var values []float64
		var gids []int64
		if g.Rank() == 0 {
			values, gids = []float64{1, 1}, []int64{0, 1}
		} else {
			values, gids = []float64{2}, []int64{0}
		}
		dense, err := GatherAndSort(g, 0, values, gids, 1)
		results[g.Rank()] = dense
		return err
	})
	dense := results[0]
	if len(dense) != 2 {
		t.Fatalf("got %v, want 2 entries", dense)
	}
	if dense[0] != 2 {
		t.Errorf("id 0: got %v, want 2 (rank 1's contribution overwrites rank 0's)", dense[0])
	}
	if dense[1] != 1 {
		t.Errorf("id 1: got %v, want 1", dense[1])
	}
}
