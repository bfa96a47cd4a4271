package dcif

import (
	"encoding/binary"
	"io"

	"github.com/nasa/YOGA-sub004/cmn"
)

// PartVector is spec.md §6's external partition-assignment file: one
// owning rank per node, used to seed an initial mesh partition before
// the first repartition pass (SPEC_FULL §3).
type PartVector struct {
	NRanks    int32
	NodeOwner []int32 // Fortran-indexed rank on disk (rank+1); 0-based here
}

// WritePartVector serializes p little-endian, or byte-swapped if swap
// is set (spec.md §6: "an optional swap flag at the caller requests
// explicit byte-swap for big-endian producers/consumers").
func WritePartVector(w io.Writer, p *PartVector, swap bool) error {
	order := pickOrder(swap)
	buf := make([]byte, 4+8+4*len(p.NodeOwner))
	order.PutUint32(buf[0:4], uint32(p.NRanks))
	order.PutUint64(buf[4:12], uint64(len(p.NodeOwner)))
	for i, owner := range p.NodeOwner {
		order.PutUint32(buf[12+4*i:16+4*i], uint32(owner+1))
	}
	if _, err := w.Write(buf); err != nil {
		return cmn.Wrap(cmn.ErrConfiguration, err, "write partvector")
	}
	return nil
}

// ReadPartVector parses a PartVector file, converting Fortran-indexed
// ranks back to 0-based.
func ReadPartVector(r io.Reader, swap bool) (*PartVector, error) {
	order := pickOrder(swap)
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "read partvector")
	}
	if len(raw) < 12 {
		return nil, cmn.Raise(cmn.ErrOutOfRange, "partvector: file too short for header (%d bytes)", len(raw))
	}
	nranks := int32(order.Uint32(raw[0:4]))
	nnodes := order.Uint64(raw[4:12])
	nnodesInt, err := cmn.BigToInt(int64(nnodes))
	if err != nil {
		return nil, err
	}
	want := 12 + 4*nnodesInt
	if len(raw) < want {
		return nil, cmn.Raise(cmn.ErrOutOfRange, "partvector: expected %d bytes, got %d", want, len(raw))
	}
	owners := make([]int32, nnodesInt)
	for i := range owners {
		owners[i] = int32(order.Uint32(raw[12+4*i:16+4*i])) - 1
	}
	return &PartVector{NRanks: nranks, NodeOwner: owners}, nil
}

func pickOrder(swap bool) binary.ByteOrder {
	if swap {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
