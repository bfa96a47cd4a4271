package postman

import (
	"sync"
	"time"
)

// MailBox is spec.md §4.4's "registered callback that stores frames by
// type in FIFO queues"; callers block on arrival with Wait, a polling
// loop with a fixed sleep rather than a condition variable, matching spec.md §5's
// "polling loops sleep 10us between attempts to avoid CPU saturation."
type MailBox struct {
	mu     sync.Mutex
	queues map[int32][][]byte
}

// NewMailBox creates an empty mailbox.
func NewMailBox() *MailBox {
	return &MailBox{queues: make(map[int32][][]byte)}
}

// HandlerFor returns the Callback a Server should registerCallback
// against msgType to route frames of that type into this mailbox.
func (mb *MailBox) HandlerFor(msgType int32) Callback {
	return func(body []byte) {
		mb.mu.Lock()
		mb.queues[msgType] = append(mb.queues[msgType], body)
		mb.mu.Unlock()
	}
}

// Wait blocks until at least one frame of msgType has arrived, then
// pops and returns the oldest one (FIFO per spec.md §5's ordering
// guarantee for a single (source, target, type) tuple).
func (mb *MailBox) Wait(msgType int32) []byte {
	for {
		mb.mu.Lock()
		q := mb.queues[msgType]
		if len(q) > 0 {
			head := q[0]
			mb.queues[msgType] = q[1:]
			mb.mu.Unlock()
			return head
		}
		mb.mu.Unlock()
		time.Sleep(10 * time.Microsecond)
	}
}

// TryPop returns the oldest queued frame of msgType without blocking,
// and whether one was available.
func (mb *MailBox) TryPop(msgType int32) ([]byte, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	q := mb.queues[msgType]
	if len(q) == 0 {
		return nil, false
	}
	mb.queues[msgType] = q[1:]
	return q[0], true
}
