package postman

import (
	"context"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/nasa/YOGA-sub004/metrics"
)

// Callback handles one delivered frame's body. Per spec.md §4.4,
// callbacks for frames from peers run on the server thread and must be
// quick — heavy work belongs behind a MailBox and an application thread
// instead. A Push to this rank runs the callback on the pushing goroutine.
type Callback func(body []byte)

const pollInterval = 10 * time.Microsecond

// outboxItem is one queued send, addressed to a destination rank.
type outboxItem struct {
	dest int
	f    frame
}

// Server is the per-rank cooperative TCP router of spec.md §4.4: one
// goroutine alternates draining inbound frames and sending one queued
// outbound frame, so the sockets are only ever touched from that one
// place (spec.md §5's single-writer invariant). The callback table is
// guarded by mu; a Push to this rank reads it and runs the callback on
// the caller's goroutine.
type Server struct {
	rank  int
	peers []string // host:port for every rank, including this one

	ln   *net.TCPListener
	port int

	mu        sync.Mutex
	callbacks map[int32]Callback
	started   bool

	outMu  sync.Mutex
	outbox []outboxItem

	running chan struct{}
	done    chan struct{}
}

// NewServer binds an OS-assigned TCP port on 127.0.0.1 with
// SO_REUSEADDR (SPEC_FULL §4.4: "a rank that restarts quickly can
// rebind its port immediately").
func NewServer(rank int) (*Server, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrConfiguration, err, "bind postman listener")
	}
	tln, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, cmn.Raise(cmn.ErrConfiguration, "postman listener is not a *net.TCPListener")
	}
	port := tln.Addr().(*net.TCPAddr).Port
	return &Server{
		rank:      rank,
		ln:        tln,
		port:      port,
		callbacks: make(map[int32]Callback),
	}, nil
}

// Port is the OS-assigned port this server bound, for the one-time
// gather spec.md §4.4 describes ("every rank knows every peer's port").
func (s *Server) Port() int { return s.port }

// SetPeers records every rank's "host:port" address, derived from the
// gathered port list (postman.GatherPorts) plus a shared host (loopback
// in tests, the cluster's interconnect hostname map in a real run).
func (s *Server) SetPeers(peers []string) { s.peers = peers }

// RegisterCallback binds msgType to fn. Must be called before Start
// (spec.md §4.4).
func (s *Server) RegisterCallback(msgType int32, fn Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return cmn.Raise(cmn.ErrConfiguration, "postman: RegisterCallback(%d) called after Start", msgType)
	}
	s.callbacks[msgType] = fn
	return nil
}

// Start begins the server's drain/send loop. expectedTypes lists every
// message type this rank's run will receive; Start fails with
// Configuration if any of them has no registered callback (spec.md
// §4.4: "Calling start() with any expected type unbound fails with
// Configuration").
func (s *Server) Start(expectedTypes []int32) error {
	s.mu.Lock()
	for _, t := range expectedTypes {
		if _, ok := s.callbacks[t]; !ok {
			s.mu.Unlock()
			return cmn.Raise(cmn.ErrConfiguration, "postman: Start called with message type %d unbound", t)
		}
	}
	s.started = true
	s.mu.Unlock()

	s.running = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop()
	return nil
}

// Stop sets the running flag false; the server thread observes it
// between poll cycles and exits. In-flight inbound frames are dropped
// without callback; the outbox is discarded (spec.md §4.4).
func (s *Server) Stop() {
	if s.running == nil {
		return
	}
	select {
	case <-s.running:
		// already stopped
	default:
		close(s.running)
	}
	<-s.done
	s.ln.Close()
}

func (s *Server) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.running:
			return
		default:
		}
		s.drainOne()
		s.sendOne()
	}
}

// drainOne accepts at most one pending inbound connection (bounded by a
// short deadline so the loop keeps alternating with sends) and
// dispatches its frame.
func (s *Server) drainOne() {
	s.ln.SetDeadline(time.Now().Add(pollInterval))
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	f, err := readFrame(conn)
	if err != nil {
		return
	}
	s.dispatch(f)
}

func (s *Server) dispatch(f frame) {
	metrics.FramesReceived.WithLabelValues(strconv.Itoa(int(f.messageType))).Inc()
	if f.forwardFlag {
		// Re-queue addressed to forward_rank without invoking any
		// callback: a routing shortcut, not a delivery.
		s.enqueue(outboxItem{dest: int(f.forwardRank), f: frame{messageType: f.messageType, body: f.body}})
		return
	}
	s.mu.Lock()
	cb := s.callbacks[f.messageType]
	s.mu.Unlock()
	if cb != nil {
		cb(f.body)
	}
}

// sendOne sends the oldest queued outbound frame, if any, over a fresh
// per-message connection (open, send, close), then releases it.
func (s *Server) sendOne() {
	s.outMu.Lock()
	if len(s.outbox) == 0 {
		s.outMu.Unlock()
		return
	}
	item := s.outbox[0]
	s.outbox = s.outbox[1:]
	s.outMu.Unlock()

	conn, err := net.DialTimeout("tcp", s.peers[item.dest], 2*time.Second)
	if err != nil {
		return
	}
	defer conn.Close()
	if err := writeFrame(conn, item.f); err != nil {
		return
	}
	metrics.FramesSent.WithLabelValues(strconv.Itoa(int(item.f.messageType))).Inc()
}

func (s *Server) enqueue(item outboxItem) {
	s.outMu.Lock()
	s.outbox = append(s.outbox, item)
	s.outMu.Unlock()
}

// Push enqueues an outbound frame for target; if target is this rank,
// the frame is delivered synchronously via the registered callback
// instead of round-tripping through the socket (spec.md §4.4).
func (s *Server) Push(target int, msgType int32, body []byte) {
	if target == s.rank {
		s.mu.Lock()
		cb := s.callbacks[msgType]
		s.mu.Unlock()
		if cb != nil {
			cb(body)
		}
		return
	}
	s.enqueue(outboxItem{dest: target, f: frame{messageType: msgType, body: body}})
}

// PushForward enqueues a frame that asks target to forward the body on
// to finalRank once received, without target running any callback for
// it (spec.md §4.4's request/reply routing shortcut).
func (s *Server) PushForward(target int, finalRank int, msgType int32, body []byte) {
	s.enqueue(outboxItem{dest: target, f: frame{forwardFlag: true, forwardRank: int32(finalRank), messageType: msgType, body: body}})
}
