package assembler

import (
	"sort"
	"sync"

	"github.com/nasa/YOGA-sub004/cmn/nlog"
	"github.com/nasa/YOGA-sub004/metrics"
	"github.com/nasa/YOGA-sub004/voxel"
)

// Resolved is one receptor's final answer after owner-side selection
// (spec.md §4.6 step 5): the best candidate donor, or none if the
// receptor arrived with zero candidates (which FindDonors never
// produces — voxel.FindDonors already drops zero-candidate receptors —
// but a receptor with candidates from only its own component can still
// resolve to none, since a same-component hit is never a valid donor).
type Resolved struct {
	GlobalNodeID int64
	WallDistance float64
	Donor        *voxel.CandidateDonor
}

// DonorCollector is the owning rank's half of spec.md §4.6 steps 4-5: a
// PostMan callback (registered against message_type = Receptors) that
// accumulates receptor batches from every rank, then resolves each
// receptor to its single best donor once all voxels have reported.
type DonorCollector struct {
	mu       sync.Mutex
	byNodeID map[int64]*voxel.Receptor
}

// NewDonorCollector returns an empty collector.
func NewDonorCollector() *DonorCollector {
	return &DonorCollector{byNodeID: make(map[int64]*voxel.Receptor)}
}

// HandleReceptorBatch is the Callback to register with a postman.Server
// for MsgReceptors; it merges one voxel's receptor findings for nodes
// this rank owns into the running accumulation. A node that lies
// exactly on a shared voxel face is inside both voxels' extents
// (adt.Extent.Contains is inclusive on both faces), so it can appear in
// more than one voxel's report; such duplicates are merged by unioning
// their candidate lists.
func (c *DonorCollector) HandleReceptorBatch(body []byte) {
	batch, err := unpackReceptorBatch(body)
	if err != nil {
		nlog.Errorf("donor collector: dropping malformed receptor batch: %v", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range batch {
		r := batch[i]
		existing, ok := c.byNodeID[r.GlobalNodeID]
		if !ok {
			c.byNodeID[r.GlobalNodeID] = &r
			continue
		}
		existing.Candidates = append(existing.Candidates, r.Candidates...)
	}
}

// Resolve runs spec.md §4.6 step 5 over every receptor accumulated so
// far: lowest interpolated wall distance among candidates from a
// different component grid than the receptor's own, ties broken by
// (component_id, origin_owning_rank, origin_cell_id).
func (c *DonorCollector) Resolve(receptorComponent map[int64]int) []Resolved {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int64, 0, len(c.byNodeID))
	for id := range c.byNodeID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Resolved, 0, len(ids))
	for _, id := range ids {
		r := c.byNodeID[id]
		own := receptorComponent[id]
		best := bestCandidate(r.Candidates, own)
		if best == nil {
			metrics.HolesEmitted.Inc()
		} else {
			metrics.ReceptorsEmitted.Inc()
		}
		out = append(out, Resolved{GlobalNodeID: id, WallDistance: r.WallDistance, Donor: best})
	}
	return out
}

func bestCandidate(candidates []voxel.CandidateDonor, ownComponent int) *voxel.CandidateDonor {
	var best *voxel.CandidateDonor
	for i := range candidates {
		c := &candidates[i]
		if c.ComponentID == ownComponent {
			continue
		}
		if best == nil || isBetterDonor(*c, *best) {
			best = c
		}
	}
	return best
}

func isBetterDonor(a, b voxel.CandidateDonor) bool {
	if a.InterpolatedWallDistance != b.InterpolatedWallDistance {
		return a.InterpolatedWallDistance < b.InterpolatedWallDistance
	}
	if a.ComponentID != b.ComponentID {
		return a.ComponentID < b.ComponentID
	}
	if a.OriginOwningRank != b.OriginOwningRank {
		return a.OriginOwningRank < b.OriginOwningRank
	}
	return a.OriginCellID < b.OriginCellID
}
