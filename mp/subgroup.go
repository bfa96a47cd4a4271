package mp

import (
	"context"

	"github.com/nasa/YOGA-sub004/cmn"
)

// subGroupTransport is the Transport a split Group communicates over: it
// delegates to the parent Transport, translating the subgroup's own
// rank numbering to the parent's. Barrier can't delegate to the parent's
// Barrier (that would force every parent rank to participate, not just
// this subgroup's members), so it implements a small manual rendezvous
// over the parent transport using a tag reserved for subgroup barriers.
type subGroupTransport struct {
	parent  Transport
	members []int // parent rank for each local rank, ascending key order
	self    int   // this process's local rank within the subgroup
}

func (s *subGroupTransport) Rank() int { return s.self }
func (s *subGroupTransport) Size() int { return len(s.members) }

func (s *subGroupTransport) Send(dest, tag int, data []byte) error {
	return s.parent.Send(s.members[dest], tag, data)
}

func (s *subGroupTransport) Recv(src, tag int) ([]byte, error) {
	return s.parent.Recv(s.members[src], tag)
}

func (s *subGroupTransport) ProbeSize(src, tag int) (int, error) {
	return s.parent.ProbeSize(s.members[src], tag)
}

func (s *subGroupTransport) ISend(dest, tag int, data []byte) (Future, error) {
	return s.parent.ISend(s.members[dest], tag, data)
}

func (s *subGroupTransport) IRecv(src, tag int) (Future, error) {
	return s.parent.IRecv(s.members[src], tag)
}

func (s *subGroupTransport) Barrier(ctx context.Context) error {
	const root = 0
	if s.self == root {
		for r := 1; r < len(s.members); r++ {
			if _, err := s.Recv(r, tagSubBarrier); err != nil {
				return cmn.Wrap(cmn.ErrTransport, err, "subgroup barrier arrive")
			}
		}
		for r := 1; r < len(s.members); r++ {
			if err := s.Send(r, tagSubBarrier+1, nil); err != nil {
				return cmn.Wrap(cmn.ErrTransport, err, "subgroup barrier release")
			}
		}
		return nil
	}
	if err := s.Send(root, tagSubBarrier, nil); err != nil {
		return cmn.Wrap(cmn.ErrTransport, err, "subgroup barrier arrive")
	}
	if _, err := s.Recv(root, tagSubBarrier+1); err != nil {
		return cmn.Wrap(cmn.ErrTransport, err, "subgroup barrier release")
	}
	return nil
}
