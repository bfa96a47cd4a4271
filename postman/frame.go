// Package postman is the async message router spec.md §4.4 calls
// PostMan (L3a): a per-rank cooperative TCP server with typed
// callbacks, decoupling logical traffic (voxel fragments, receptor
// batches) from the collective message-passing facade in mp/.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package postman

import (
	"encoding/binary"
	"io"

	"github.com/nasa/YOGA-sub004/cmn"
)

// frame is spec.md §4.4's wire layout:
//
//	uint8  forward_flag
//	int32  forward_rank        (used only if forward_flag is set)
//	int32  message_type
//	uint64 body_length
//	byte[body_length] body
type frame struct {
	forwardFlag bool
	forwardRank int32
	messageType int32
	body        []byte
}

func writeFrame(w io.Writer, f frame) error {
	hdr := make([]byte, 1+4+4+8)
	if f.forwardFlag {
		hdr[0] = 1
	}
	binary.LittleEndian.PutUint32(hdr[1:5], uint32(f.forwardRank))
	binary.LittleEndian.PutUint32(hdr[5:9], uint32(f.messageType))
	binary.LittleEndian.PutUint64(hdr[9:17], uint64(len(f.body)))
	if _, err := w.Write(hdr); err != nil {
		return cmn.Wrap(cmn.ErrTransport, err, "write frame header")
	}
	if len(f.body) > 0 {
		if _, err := w.Write(f.body); err != nil {
			return cmn.Wrap(cmn.ErrTransport, err, "write frame body")
		}
	}
	return nil
}

func readFrame(r io.Reader) (frame, error) {
	hdr := make([]byte, 1+4+4+8)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return frame{}, cmn.Wrap(cmn.ErrTransport, err, "read frame header")
	}
	f := frame{
		forwardFlag: hdr[0] != 0,
		forwardRank: int32(binary.LittleEndian.Uint32(hdr[1:5])),
		messageType: int32(binary.LittleEndian.Uint32(hdr[5:9])),
	}
	bodyLen := binary.LittleEndian.Uint64(hdr[9:17])
	n, err := cmn.BigToInt(int64(bodyLen))
	if err != nil {
		return frame{}, err
	}
	if n > 0 {
		f.body = make([]byte, n)
		if _, err := io.ReadFull(r, f.body); err != nil {
			return frame{}, cmn.Wrap(cmn.ErrTransport, err, "read frame body")
		}
	}
	return f, nil
}
