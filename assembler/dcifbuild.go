package assembler

import (
	"sort"

	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/dcif"
	"github.com/nasa/YOGA-sub004/msg"
)

// nodeResult is one owned node's final classification, gathered to the
// DCIF-writing rank: normal (IBlank=1), hole (IBlank=0, a receptor that
// never resolved to a donor), or receptor-with-donor (IBlank=-1, donor
// ids/weights populated).
type nodeResult struct {
	GlobalID       int64
	ComponentID    int32
	IBlank         int8
	DonorGlobalIDs []int64
	DonorWeights   []float64
}

func packNodeResult(m *msg.Message, r nodeResult) {
	m.PackInt64(r.GlobalID)
	m.PackInt32(r.ComponentID)
	m.PackInt32(int32(r.IBlank))
	m.PackInt64Slice(r.DonorGlobalIDs)
	m.PackFloat64Slice(r.DonorWeights)
}

func unpackNodeResult(m *msg.Message) (nodeResult, error) {
	var r nodeResult
	var err error
	if r.GlobalID, err = m.UnpackInt64(); err != nil {
		return r, err
	}
	if r.ComponentID, err = m.UnpackInt32(); err != nil {
		return r, err
	}
	iblank, err := m.UnpackInt32()
	if err != nil {
		return r, err
	}
	r.IBlank = int8(iblank)
	if r.DonorGlobalIDs, err = m.UnpackInt64Slice(); err != nil {
		return r, err
	}
	r.DonorWeights, err = m.UnpackFloat64Slice()
	return r, err
}

func packNodeResults(m *msg.Message, rs []nodeResult) { msg.PackEach(m, rs, packNodeResult) }
func unpackNodeResults(m *msg.Message) ([]nodeResult, error) {
	return msg.UnpackEach(m, unpackNodeResult)
}

// buildDCIF assembles spec.md §4.7's single global interchange file out
// of every rank's gathered node results. Component grids are assumed to
// own a contiguous block of global ids (a composite assembly invariant
// recorded in DESIGN.md), so the grid directory falls out of each
// component's observed global-id range.
func buildDCIF(gathered [][]nodeResult) (*dcif.File, error) {
	var all []nodeResult
	for _, rs := range gathered {
		all = append(all, rs...)
	}
	if len(all) == 0 {
		return nil, cmn.Raise(cmn.ErrInvariant, "dcif: no owned nodes reported by any rank")
	}

	var maxID int64
	for _, r := range all {
		if r.GlobalID > maxID {
			maxID = r.GlobalID
		}
	}
	nnodes := maxID + 1

	iblank := make([]int8, nnodes)
	for i := range iblank {
		iblank[i] = 1
	}
	componentRange := make(map[int32][2]int64)
	for _, r := range all {
		iblank[r.GlobalID] = r.IBlank
		rng, ok := componentRange[r.ComponentID]
		if !ok {
			componentRange[r.ComponentID] = [2]int64{r.GlobalID, r.GlobalID}
			continue
		}
		if r.GlobalID < rng[0] {
			rng[0] = r.GlobalID
		}
		if r.GlobalID > rng[1] {
			rng[1] = r.GlobalID
		}
		componentRange[r.ComponentID] = rng
	}

	sort.Slice(all, func(i, j int) bool { return all[i].GlobalID < all[j].GlobalID })

	var fringeIDs []int64
	var donorCounts []int8
	var donorIDs []int64
	var donorWeights []float64
	for _, r := range all {
		if r.IBlank != -1 {
			continue
		}
		if len(r.DonorGlobalIDs) == 0 {
			return nil, cmn.Raise(cmn.ErrInvariant, "dcif: node %d is marked receptor with no recorded donor", r.GlobalID)
		}
		fringeIDs = append(fringeIDs, r.GlobalID)
		donorCounts = append(donorCounts, int8(len(r.DonorGlobalIDs)))
		donorIDs = append(donorIDs, r.DonorGlobalIDs...)
		donorWeights = append(donorWeights, r.DonorWeights...)
	}

	components := make([]int32, 0, len(componentRange))
	for c := range componentRange {
		components = append(components, c)
	}
	sort.Slice(components, func(i, j int) bool { return componentRange[components[i]][0] < componentRange[components[j]][0] })
	grids := make([]dcif.GridRange, 0, len(components))
	for _, c := range components {
		rng := componentRange[c]
		grids = append(grids, dcif.GridRange{Start: rng[0], End: rng[1] + 1, IMesh: c + 1})
	}

	return &dcif.File{
		NNodes:       nnodes,
		NFringes:     int64(len(fringeIDs)),
		NDonors:      int64(len(donorIDs)),
		NGrids:       int32(len(grids)),
		FringeIDs:    fringeIDs,
		DonorCounts:  donorCounts,
		DonorIDs:     donorIDs,
		DonorWeights: donorWeights,
		IBlank:       iblank,
		Grids:        grids,
	}, nil
}
