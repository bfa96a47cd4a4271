package mp

import (
	"context"
	"time"
)

// Handle is the Completion Handle of spec.md §3: Pending -> Completed,
// shared by the facade and the operation's initiator. It wraps a
// Transport Future; SendAsync, the call site that builds a send Handle,
// refuses a nil buffer with ErrUseAfterFree.
type Handle struct {
	future Future
	owned  []byte // retained so the payload outlives the send, per spec.md §3
}

// Poll is a non-blocking test for completion.
func (h *Handle) Poll() bool { return h.future.Poll() }

// Wait blocks until the operation completes.
func (h *Handle) Wait() ([]byte, error) { return h.future.Wait() }

// WaitFor blocks until complete or the duration elapses, at 5ms
// granularity per spec.md §5, returning whether it completed.
func (h *Handle) WaitFor(d time.Duration) (completed bool, data []byte, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if !waitForPoll(ctx, h.future.Poll) {
		return false, nil, nil
	}
	data, err = h.future.Wait()
	return true, data, err
}
