package mesh

import (
	"sync"
	"testing"

	"github.com/nasa/YOGA-sub004/mp"
	"github.com/nasa/YOGA-sub004/msg"
)

func newTestGroups(size int) []*mp.Group {
	transports := mp.NewLocalNetwork(size)
	groups := make([]*mp.Group, size)
	for i, t := range transports {
		groups[i] = mp.Bind(t)
	}
	return groups
}

func runOnEachRank(t *testing.T, groups []*mp.Group, fn func(g *mp.Group) error) {
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

func TestAddNodeIsIdempotentByGlobalID(t *testing.T) {
	m := New(0)
	a := m.AddNode(NodeRecord{GlobalID: 7, X: 1, Owner: 0})
	b := m.AddNode(NodeRecord{GlobalID: 7, X: 999, Owner: 0})
	if a != b {
		t.Fatalf("adding global id 7 twice gave different local ids %d, %d", a, b)
	}
	if m.NodeCount() != 1 {
		t.Fatalf("got %d nodes, want 1", m.NodeCount())
	}
	if m.Node(a).X != 1 {
		t.Errorf("second AddNode should not overwrite the first insert, got X=%v", m.Node(a).X)
	}
}

func packFloat64(m *msg.Message, v float64) { m.PackFloat64(v) }
func unpackFloat64(m *msg.Message) (float64, error) { return m.UnpackFloat64() }

// TestSyncRefreshesGhostValues exercises spec.md §8 invariants 4
// (two successive syncs with no owner mutation agree) by building two
// ranks that each own one node and hold the other's as a ghost.
func TestSyncRefreshesGhostValues(t *testing.T) {
	groups := newTestGroups(2)
	results := make([][]float64, 2)

	runOnEachRank(t, groups, func(g *mp.Group) error {
		m := New(g.Rank())
		var values []float64
		if g.Rank() == 0 {
			local0 := m.AddNode(NodeRecord{GlobalID: 0, Owner: 0})
			local1 := m.AddNode(NodeRecord{GlobalID: 1, Owner: 1})
			values = make([]float64, m.NodeCount())
			values[local0] = 10
			values[local1] = -1 // stale ghost placeholder
		} else {
			local0 := m.AddNode(NodeRecord{GlobalID: 1, Owner: 1})
			local1 := m.AddNode(NodeRecord{GlobalID: 0, Owner: 0})
			values = make([]float64, m.NodeCount())
			values[local0] = 20
			values[local1] = -1
		}

		pattern, err := BuildNodeSyncPattern(g, m)
		if err != nil {
			return err
		}
		if err := Sync(g, pattern, values, packFloat64, unpackFloat64); err != nil {
			return err
		}
		firstSync := append([]float64(nil), values...)
		if err := Sync(g, pattern, values, packFloat64, unpackFloat64); err != nil {
			return err
		}
		for i := range values {
			if values[i] != firstSync[i] {
				t.Errorf("rank %d: second sync changed slot %d from %v to %v with no owner mutation", g.Rank(), i, firstSync[i], values[i])
			}
		}
		results[g.Rank()] = values
		return nil
	})

	if results[0][1] != 20 {
		t.Errorf("rank 0's ghost of node 1: got %v, want 20", results[0][1])
	}
	if results[1][1] != 10 {
		t.Errorf("rank 1's ghost of node 0: got %v, want 10", results[1][1])
	}
}

// TestShuffleByNodeOwnerMovesCells is spec.md §8 invariant 5: after
// shuffling, a cell's new owner equals the new owner of its
// minimum-global-id node, and every node's new owner equals the
// requested assignment.
func TestShuffleByNodeOwnerMovesCells(t *testing.T) {
	groups := newTestGroups(2)
	results := make([]*Mesh, 2)
	newOwners := make([][]int, 2)

	runOnEachRank(t, groups, func(g *mp.Group) error {
		m := New(g.Rank())
		if g.Rank() == 0 {
			n0 := m.AddNode(NodeRecord{GlobalID: 0, X: 0, Owner: 0})
			n1 := m.AddNode(NodeRecord{GlobalID: 1, X: 1, Owner: 0})
			m.AddCell(CellRecord{GlobalID: 100, Kind: Bar2, Nodes: []int{n0, n1}, Owner: 0})
			newOwners[0] = []int{1, 1}
		} else {
			newOwners[1] = []int{}
		}

		var assignment []int
		if g.Rank() == 0 {
			assignment = newOwners[0]
		}
		// both ranks must drive the same AllToAllMap; rank 1 has no
		// nodes/cells of its own in this scenario.
		shuffled, err := ShuffleByNodeOwner(g, m, assignment)
		if err != nil {
			return err
		}
		results[g.Rank()] = shuffled
		return nil
	})

	moved := results[1]
	if moved.NodeCount() != 2 || moved.CellCount() != 1 {
		t.Fatalf("rank 1 after shuffle: %d nodes, %d cells; want 2 nodes, 1 cell", moved.NodeCount(), moved.CellCount())
	}
	cell := moved.Cell(0)
	if cell.Owner != 1 {
		t.Errorf("shuffled cell owner: got %d, want 1", cell.Owner)
	}
	for i := 0; i < moved.NodeCount(); i++ {
		if moved.Node(i).Owner != 1 {
			t.Errorf("shuffled node %d owner: got %d, want 1", i, moved.Node(i).Owner)
		}
	}
	if results[0].NodeCount() != 0 || results[0].CellCount() != 0 {
		t.Errorf("rank 0 after shuffle should be empty, got %d nodes, %d cells", results[0].NodeCount(), results[0].CellCount())
	}
}
