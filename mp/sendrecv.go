package mp

import (
	"context"
	"time"

	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/cmn/nlog"
)

// Send blocks until data has been sent to dest on tag. Errors from the
// transport are re-raised as ErrTransport per spec.md §4.2.
func Send(g *Group, dest, tag int, data []byte) error {
	if err := g.t.Send(dest, tag, data); err != nil {
		return cmn.Wrap(cmn.ErrTransport, err, "send")
	}
	return nil
}

// Recv blocks for a message of known tag from src.
func Recv(g *Group, src, tag int) ([]byte, error) {
	b, err := g.t.Recv(src, tag)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "recv")
	}
	return b, nil
}

// RecvUnknownLength probes src/tag to size the receive before reading,
// for an ordered sequence of unknown length (spec.md §4.2).
func RecvUnknownLength(g *Group, src, tag int) ([]byte, error) {
	if _, err := g.t.ProbeSize(src, tag); err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "probe")
	}
	return Recv(g, src, tag)
}

// SendAsync returns a Handle for a non-blocking send. data must not be a
// caller-owned temporary the caller intends to keep mutating: the
// facade takes joint ownership until the Handle reports complete
// (spec.md §3). A nil data slice is refused with ErrUseAfterFree; any
// non-nil slice, including an empty one or a literal the caller keeps
// no reference to, is accepted.
func SendAsync(g *Group, dest, tag int, data []byte) (*Handle, error) {
	if data == nil {
		return nil, cmn.Raise(cmn.ErrUseAfterFree, "non-blocking send bound to a nil/temporary buffer")
	}
	f, err := g.t.ISend(dest, tag, data)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "isend")
	}
	return &Handle{future: f, owned: data}, nil
}

// RecvAsync returns a Handle whose Wait()/WaitFor() yields the received bytes.
func RecvAsync(g *Group, src, tag int) (*Handle, error) {
	f, err := g.t.IRecv(src, tag)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "irecv")
	}
	return &Handle{future: f}, nil
}

// Barrier blocks until every rank in the group has called it.
func Barrier(g *Group) error {
	if err := g.t.Barrier(context.Background()); err != nil {
		return cmn.Wrap(cmn.ErrTransport, err, "barrier")
	}
	return nil
}

// BarrierAsync returns a Handle completing once every rank has arrived.
func BarrierAsync(g *Group) *Handle {
	done := make(chan struct{})
	var ferr error
	go func() {
		ferr = g.t.Barrier(context.Background())
		close(done)
	}()
	return &Handle{future: &barrierFuture{done: done, errp: &ferr}}
}

type barrierFuture struct {
	done chan struct{}
	errp *error
}

func (f *barrierFuture) Poll() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
func (f *barrierFuture) Wait() ([]byte, error) {
	<-f.done
	return nil, *f.errp
}
func (f *barrierFuture) WaitFor(ctx context.Context) (bool, []byte, error) {
	select {
	case <-f.done:
		return true, nil, *f.errp
	case <-ctx.Done():
		return false, nil, nil
	}
}

// AbortIfAnyRankDoesNotPhoneHomeInTime starts a non-blocking barrier and
// aborts the group (spec.md §5) if it hasn't completed within timeout —
// the only facade operation that tears down the group on timeout.
func AbortIfAnyRankDoesNotPhoneHomeInTime(g *Group, timeout time.Duration) error {
	h := BarrierAsync(g)
	completed, _, _ := h.WaitFor(timeout)
	if !completed {
		err := cmn.Raise(cmn.ErrTransport, "rank %d: not every rank phoned home within %s, aborting group", g.Rank(), timeout)
		nlog.Abort(err)
		return err
	}
	return nil
}
