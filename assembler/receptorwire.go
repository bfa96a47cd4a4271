package assembler

import (
	"github.com/nasa/YOGA-sub004/mesh"
	"github.com/nasa/YOGA-sub004/msg"
	"github.com/nasa/YOGA-sub004/voxel"
)

// packReceptorBatch/unpackReceptorBatch are the wire shape PostMan
// carries for message_type = Receptors (spec.md §4.6 step 4): every
// receptor this voxel found whose owning rank is the batch's target,
// candidates included so the owner can run step 5 without a round trip.
func packReceptorBatch(receptors []voxel.Receptor) []byte {
	m := msg.New()
	msg.PackEach(m, receptors, packReceptor)
	m.Finalize()
	return m.Bytes()
}

func unpackReceptorBatch(b []byte) ([]voxel.Receptor, error) {
	m := msg.FromBytes(b)
	return msg.UnpackEach(m, unpackReceptor)
}

func packReceptor(m *msg.Message, r voxel.Receptor) {
	m.PackInt64(r.GlobalNodeID)
	m.PackInt32(int32(r.OwningRank))
	m.PackFloat64(r.WallDistance)
	msg.PackEach(m, r.Candidates, packCandidate)
}

func unpackReceptor(m *msg.Message) (voxel.Receptor, error) {
	var r voxel.Receptor
	var err error
	if r.GlobalNodeID, err = m.UnpackInt64(); err != nil {
		return r, err
	}
	owner, err := m.UnpackInt32()
	if err != nil {
		return r, err
	}
	r.OwningRank = int(owner)
	if r.WallDistance, err = m.UnpackFloat64(); err != nil {
		return r, err
	}
	r.Candidates, err = msg.UnpackEach(m, unpackCandidate)
	return r, err
}

func packCandidate(m *msg.Message, c voxel.CandidateDonor) {
	m.PackInt32(int32(c.ComponentID))
	m.PackInt64(c.OriginCellID)
	m.PackInt32(int32(c.OriginOwningRank))
	m.PackFloat64(c.InterpolatedWallDistance)
	m.PackInt32(int32(c.CellKind))
	m.PackInt64Slice(c.DonorNodeGlobalIDs)
	m.PackFloat64Slice(c.DonorWeights)
}

func unpackCandidate(m *msg.Message) (voxel.CandidateDonor, error) {
	var c voxel.CandidateDonor
	component, err := m.UnpackInt32()
	if err != nil {
		return c, err
	}
	c.ComponentID = int(component)
	if c.OriginCellID, err = m.UnpackInt64(); err != nil {
		return c, err
	}
	owner, err := m.UnpackInt32()
	if err != nil {
		return c, err
	}
	c.OriginOwningRank = int(owner)
	if c.InterpolatedWallDistance, err = m.UnpackFloat64(); err != nil {
		return c, err
	}
	kind, err := m.UnpackInt32()
	if err != nil {
		return c, err
	}
	c.CellKind = mesh.CellKind(kind)
	if c.DonorNodeGlobalIDs, err = m.UnpackInt64Slice(); err != nil {
		return c, err
	}
	c.DonorWeights, err = m.UnpackFloat64Slice()
	return c, err
}
