package mp

import (
	"context"
	"sync"

	"github.com/nasa/YOGA-sub004/cmn"
)

type windowOp uint8

const (
	windowOpLock windowOp = iota
	windowOpUnlock
	windowOpGet
	windowOpPut
)

type windowRequest struct {
	op     windowOp
	offset int
	length int
	data   []byte
}

func packWindowRequest(buf []byte, r windowRequest) []byte {
	buf = appendUint32(buf, uint32(r.op))
	buf = appendUint32(buf, uint32(r.offset))
	buf = appendUint32(buf, uint32(r.length))
	buf = appendUint32(buf, uint32(len(r.data)))
	return append(buf, r.data...)
}

func unpackWindowRequest(b []byte) windowRequest {
	op := readUint32(b[0:4])
	offset := readUint32(b[4:8])
	length := readUint32(b[8:12])
	n := readUint32(b[12:16])
	data := b[16 : 16+n]
	return windowRequest{op: windowOp(op), offset: int(offset), length: int(length), data: append([]byte(nil), data...)}
}

// Window exposes a rank-local byte buffer for one-sided get/put access by
// peers, guarded by an explicit per-target lock (spec.md §6's "one-sided
// get/put with window lock"). A window owner must run Serve in a
// goroutine for the lifetime of the window; remote callers pair every
// Lock with an Unlock.
type Window struct {
	g     *Group
	local []byte
	mu    sync.RWMutex

	lockMu   sync.Mutex
	lockCond *sync.Cond
	lockHeld bool
}

func NewWindow(g *Group, local []byte) *Window {
	w := &Window{g: g, local: local}
	w.lockCond = sync.NewCond(&w.lockMu)
	return w
}

// Serve answers lock/unlock/get/put requests from every other rank in the
// group until ctx is cancelled. It must run concurrently with any Lock,
// Get, Put, or Unlock call this rank's peers make against this window.
func (w *Window) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, w.g.Size())
	for peer := 0; peer < w.g.Size(); peer++ {
		if peer == w.g.Rank() {
			continue
		}
		peer := peer
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.serveOne(ctx, peer); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Window) serveOne(ctx context.Context, peer int) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		raw, err := Recv(w.g, peer, tagWindow)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		req := unpackWindowRequest(raw)
		var reply []byte
		switch req.op {
		case windowOpLock:
			w.lockMu.Lock()
			for w.lockHeld {
				w.lockCond.Wait()
			}
			w.lockHeld = true
			w.lockMu.Unlock()
			reply = []byte{1}
		case windowOpUnlock:
			w.lockMu.Lock()
			w.lockHeld = false
			w.lockCond.Signal()
			w.lockMu.Unlock()
			reply = []byte{1}
		case windowOpGet:
			w.mu.RLock()
			reply = append([]byte(nil), w.local[req.offset:req.offset+req.length]...)
			w.mu.RUnlock()
		case windowOpPut:
			w.mu.Lock()
			copy(w.local[req.offset:], req.data)
			w.mu.Unlock()
			reply = []byte{1}
		}
		if err := Send(w.g, peer, tagWindow+1, reply); err != nil {
			return err
		}
	}
}

func (w *Window) call(target int, req windowRequest) ([]byte, error) {
	if err := Send(w.g, target, tagWindow, packWindowRequest(nil, req)); err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "window request")
	}
	return Recv(w.g, target, tagWindow+1)
}

// Lock acquires exclusive access to target's window. target must be
// running Serve.
func (w *Window) Lock(target int) error {
	_, err := w.call(target, windowRequest{op: windowOpLock})
	return err
}

// Unlock releases a lock acquired with Lock.
func (w *Window) Unlock(target int) error {
	_, err := w.call(target, windowRequest{op: windowOpUnlock})
	return err
}

// Get reads length bytes from target's window at offset. The caller must
// hold target's lock.
func (w *Window) Get(target, offset, length int) ([]byte, error) {
	return w.call(target, windowRequest{op: windowOpGet, offset: offset, length: length})
}

// Put writes data into target's window at offset. The caller must hold
// target's lock.
func (w *Window) Put(target, offset int, data []byte) error {
	_, err := w.call(target, windowRequest{op: windowOpPut, offset: offset, data: data})
	return err
}
