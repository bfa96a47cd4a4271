package dcif

import (
	"math"

	"github.com/nasa/YOGA-sub004/cmn"
)

// Coordinate looks up the (x,y,z) of a 0-based node id, for the
// linear-function recovery check.
type Coordinate func(nodeID int64) (x, y, z float64, ok bool)

// LinearTestFunction is spec.md §4.7/§8's fixed test function used to
// confirm donor weights recover a linear field to within tolerance.
func LinearTestFunction(x, y, z float64) float64 {
	return 2.3*x + 9.2*y + 3.9*z + 1.2
}

// CheckCounts verifies spec.md §4.7's "the number of -1 entries in
// iblank equals nfringes."
func CheckCounts(f *File) error {
	var negOnes int64
	for _, b := range f.IBlank {
		if b == IBlankReceptor {
			negOnes++
		}
	}
	if negOnes != f.NFringes {
		return cmn.Raise(cmn.ErrInvariant, "dcif: %d entries of -1 in iblank, but nfringes=%d", negOnes, f.NFringes)
	}
	return nil
}

// CheckFringeIDs verifies spec.md §4.7's "every fringe_id is a legal
// node index and is marked -1 in iblank."
func CheckFringeIDs(f *File) error {
	for _, id := range f.FringeIDs {
		if id < 0 || id >= f.NNodes {
			return cmn.Raise(cmn.ErrInvariant, "dcif: fringe id %d is not a legal node index (nnodes=%d)", id, f.NNodes)
		}
		if f.IBlank[id] != IBlankReceptor {
			return cmn.Raise(cmn.ErrInvariant, "dcif: fringe id %d has iblank=%d, want -1", id, f.IBlank[id])
		}
	}
	return nil
}

// CheckLinearRecovery verifies spec.md §4.7/§8's linear-function
// recovery property: for every receptor, interpolating
// LinearTestFunction through its donors' coordinates and weights agrees
// with the function evaluated at the receptor's own coordinates to
// within 1e-4, and the weights themselves sum to 1 within 1e-6.
func CheckLinearRecovery(f *File, coordOf Coordinate) error {
	donorOffset := 0
	for i, fringeID := range f.FringeIDs {
		count := int(f.DonorCounts[i])
		if donorOffset+count > len(f.DonorIDs) {
			return cmn.Raise(cmn.ErrInvariant, "dcif: donor arrays truncated before fringe index %d", i)
		}
		ids := f.DonorIDs[donorOffset : donorOffset+count]
		weights := f.DonorWeights[donorOffset : donorOffset+count]
		donorOffset += count

		rx, ry, rz, ok := coordOf(fringeID)
		if !ok {
			return cmn.Raise(cmn.ErrNotFound, "dcif: no coordinate for fringe id %d", fringeID)
		}

		var weightSum, interp float64
		for j, did := range ids {
			dx, dy, dz, ok := coordOf(did)
			if !ok {
				return cmn.Raise(cmn.ErrNotFound, "dcif: no coordinate for donor id %d", did)
			}
			weightSum += weights[j]
			interp += weights[j] * LinearTestFunction(dx, dy, dz)
		}
		if math.Abs(weightSum-1) > 1e-6 {
			return cmn.Raise(cmn.ErrInvariant, "dcif: fringe %d donor weights sum to %.9f, want 1", fringeID, weightSum)
		}
		actual := LinearTestFunction(rx, ry, rz)
		if math.Abs(interp-actual) > 1e-4 {
			return cmn.Raise(cmn.ErrInvariant, "dcif: fringe %d linear recovery error %.9f exceeds 1e-4", fringeID, math.Abs(interp-actual))
		}
	}
	if donorOffset != len(f.DonorIDs) {
		return cmn.Raise(cmn.ErrInvariant, "dcif: %d donor entries unaccounted for by any fringe's donor count", len(f.DonorIDs)-donorOffset)
	}
	return nil
}

// Check runs every checker contract spec.md §4.7 names, in order.
func Check(f *File, coordOf Coordinate) error {
	if err := CheckCounts(f); err != nil {
		return err
	}
	if err := CheckFringeIDs(f); err != nil {
		return err
	}
	return CheckLinearRecovery(f, coordOf)
}
