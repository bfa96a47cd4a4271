// Package mp is the message-passing facade (spec.md §4.2, L1): process
// groups, point-to-point send/recv, non-blocking operations, collectives,
// reductions, all-to-all, balance, and SumAtId. It is built against a
// small Transport interface so the facade never depends on a specific
// wire transport — per spec.md §6, an implementation need only provide
// the stated operations with the stated ordering/completion semantics.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mp

import "context"

// Transport is the group-oriented message transport spec.md §6 assumes:
// init/finalize is the caller's responsibility (construct/discard), rank
// and size are fixed for the transport's lifetime, send/recv move raw
// bytes tagged by an integer channel, and Barrier is a cooperative
// rendezvous across every rank bound to this transport.
type Transport interface {
	Rank() int
	Size() int

	// Send blocks until data has been handed to the transport for dest/tag.
	Send(dest, tag int, data []byte) error
	// Recv blocks until a message for src/tag is available and returns it.
	Recv(src, tag int) ([]byte, error)
	// ProbeSize blocks until a message for src/tag is available and
	// reports its size without consuming it, so a caller can size a
	// receive buffer for an unknown-length sequence (spec.md §4.2).
	ProbeSize(src, tag int) (int, error)

	// ISend/IRecv are the non-blocking primitives; both return a Future
	// that the caller polls, waits, or waits-for with a duration.
	ISend(dest, tag int, data []byte) (Future, error)
	IRecv(src, tag int) (Future, error)

	// Barrier blocks until every rank bound to this transport has called it.
	Barrier(ctx context.Context) error
}

// Future is the wire-level analogue of the spec's Completion Handle
// (spec.md §3): Pending -> Completed, polled, waited, or waited-for.
type Future interface {
	Poll() bool
	Wait() ([]byte, error)
	WaitFor(ctx context.Context) (ok bool, data []byte, err error)
}
