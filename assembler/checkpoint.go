package assembler

import (
	"io"

	"github.com/tinylib/msgp/msgp"

	"github.com/nasa/YOGA-sub004/cmn"
)

// WriteCheckpoint persists a voxel plan so a restarted run can skip
// rebuilding it from a fresh all-gather (SPEC_FULL §4.6 supplement).
// Only msgp's Writer primitives are used directly here; no generated
// Marshaler/Unmarshaler, since this repository runs no code generation.
func WriteCheckpoint(w io.Writer, p *VoxelPlan) error {
	mw := msgp.NewWriter(w)
	if err := mw.WriteArrayHeader(3); err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: origin header")
	}
	for _, v := range p.Origin {
		if err := mw.WriteFloat64(v); err != nil {
			return cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: origin")
		}
	}
	if err := mw.WriteArrayHeader(3); err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: cell size header")
	}
	for _, v := range p.CellSize {
		if err := mw.WriteFloat64(v); err != nil {
			return cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: cell size")
		}
	}
	if err := mw.WriteArrayHeader(3); err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: dims header")
	}
	for _, v := range p.Dims {
		if err := mw.WriteInt64(int64(v)); err != nil {
			return cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: dims")
		}
	}
	if err := mw.WriteInt64(int64(p.nRanks)); err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: nranks")
	}
	return mw.Flush()
}

// ReadCheckpoint restores a voxel plan written by WriteCheckpoint.
func ReadCheckpoint(r io.Reader) (*VoxelPlan, error) {
	mr := msgp.NewReader(r)
	p := &VoxelPlan{}

	n, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: origin header")
	}
	if n != 3 {
		return nil, cmn.Raise(cmn.ErrConfiguration, "checkpoint: origin header has %d elements, want 3", n)
	}
	for i := range p.Origin {
		if p.Origin[i], err = mr.ReadFloat64(); err != nil {
			return nil, cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: origin")
		}
	}

	if n, err = mr.ReadArrayHeader(); err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: cell size header")
	}
	if n != 3 {
		return nil, cmn.Raise(cmn.ErrConfiguration, "checkpoint: cell size header has %d elements, want 3", n)
	}
	for i := range p.CellSize {
		if p.CellSize[i], err = mr.ReadFloat64(); err != nil {
			return nil, cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: cell size")
		}
	}

	if n, err = mr.ReadArrayHeader(); err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: dims header")
	}
	if n != 3 {
		return nil, cmn.Raise(cmn.ErrConfiguration, "checkpoint: dims header has %d elements, want 3", n)
	}
	for i := range p.Dims {
		v, err := mr.ReadInt64()
		if err != nil {
			return nil, cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: dims")
		}
		p.Dims[i] = int(v)
	}

	nRanks, err := mr.ReadInt64()
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "checkpoint: nranks")
	}
	p.nRanks = int(nRanks)
	return p, nil
}
