// Package msg implements the append-only serialization buffer (spec.md
// §4.1, L0): pack/unpack of primitives, strings, ordered sequences,
// maps, sets, nested buffers, and caller-supplied user types, with a
// monotonically-advancing read cursor.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package msg

import (
	"encoding/binary"
	"math"

	"github.com/nasa/YOGA-sub004/cmn"
	"github.com/pierrec/lz4/v3"
)

// byteOrder is host endianness for the purposes of this format: every
// rank in a run shares architecture, so we fix little-endian throughout
// rather than detect native order (spec.md §4.1 "host endianness").
var byteOrder = binary.LittleEndian

// Message is the append-only byte sequence described in spec.md §3.
// Writes never invalidate earlier offsets; the read cursor advances
// monotonically; reading past the written length fails with ErrOutOfRange.
type Message struct {
	buf    []byte
	cursor int
}

// New creates an empty Message ready for packing.
func New() *Message { return &Message{} }

// FromBytes wraps an external buffer for reading; cursor starts at zero.
func FromBytes(b []byte) *Message {
	return &Message{buf: b}
}

// Finalize rewinds the read cursor to the start, per spec.md §3's
// lifecycle ("finalized (cursor -> 0) before being read").
func (m *Message) Finalize() { m.cursor = 0 }

// Size is the number of bytes written so far.
func (m *Message) Size() int { return len(m.buf) }

// Bytes returns the underlying buffer. Callers must not mutate it while
// a non-blocking send jointly owns the Message (spec.md §3).
func (m *Message) Bytes() []byte { return m.buf }

func (m *Message) appendRaw(b []byte) { m.buf = append(m.buf, b...) }

func (m *Message) readRaw(n int) ([]byte, error) {
	if m.cursor+n > len(m.buf) {
		return nil, cmn.Raise(cmn.ErrOutOfRange, "read of %d bytes at offset %d exceeds written length %d", n, m.cursor, len(m.buf))
	}
	b := m.buf[m.cursor : m.cursor+n]
	m.cursor += n
	return b, nil
}

// ---- primitives ----

func (m *Message) PackInt32(v int32) { m.packUint32(uint32(v)) }
func (m *Message) PackInt64(v int64) { m.packUint64(uint64(v)) }
func (m *Message) PackUint8(v uint8) { m.appendRaw([]byte{v}) }
func (m *Message) PackFloat64(v float64) {
	m.packUint64(math.Float64bits(v))
}
func (m *Message) PackBool(v bool) {
	if v {
		m.PackUint8(1)
	} else {
		m.PackUint8(0)
	}
}

func (m *Message) packUint32(v uint32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	m.appendRaw(b[:])
}
func (m *Message) packUint64(v uint64) {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	m.appendRaw(b[:])
}

func (m *Message) UnpackInt32() (int32, error) {
	v, err := m.unpackUint32()
	return int32(v), err
}
func (m *Message) UnpackInt64() (int64, error) {
	v, err := m.unpackUint64()
	return int64(v), err
}
func (m *Message) UnpackUint8() (uint8, error) {
	b, err := m.readRaw(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}
func (m *Message) UnpackFloat64() (float64, error) {
	v, err := m.unpackUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}
func (m *Message) UnpackBool() (bool, error) {
	v, err := m.UnpackUint8()
	return v != 0, err
}

func (m *Message) unpackUint32() (uint32, error) {
	b, err := m.readRaw(4)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b), nil
}
func (m *Message) unpackUint64() (uint64, error) {
	b, err := m.readRaw(8)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b), nil
}

// ---- strings ----

// PackString writes "size_t length || length bytes" per spec.md §4.1.
func (m *Message) PackString(s string) {
	m.packUint64(uint64(len(s)))
	m.appendRaw([]byte(s))
}

func (m *Message) UnpackString() (string, error) {
	n, err := m.unpackUint64()
	if err != nil {
		return "", err
	}
	ni, err := cmn.BigToInt(int64(n))
	if err != nil {
		return "", err
	}
	b, err := m.readRaw(ni)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ---- ordered sequences of trivially-copyable scalars ----

// PackInt64Slice writes "int32 N || N*8 bytes" per spec.md §4.1's
// trivially-copyable-element layout.
func (m *Message) PackInt64Slice(v []int64) {
	m.PackInt32(int32(len(v)))
	for _, x := range v {
		m.PackInt64(x)
	}
}

func (m *Message) UnpackInt64Slice() ([]int64, error) {
	n, err := m.UnpackInt32()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, n)
	for i := int32(0); i < n; i++ {
		x, err := m.UnpackInt64()
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func (m *Message) PackInt32Slice(v []int32) {
	m.PackInt32(int32(len(v)))
	for _, x := range v {
		m.PackInt32(x)
	}
}

func (m *Message) UnpackInt32Slice() ([]int32, error) {
	n, err := m.UnpackInt32()
	if err != nil {
		return nil, err
	}
	out := make([]int32, 0, n)
	for i := int32(0); i < n; i++ {
		x, err := m.UnpackInt32()
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func (m *Message) PackFloat64Slice(v []float64) {
	m.PackInt32(int32(len(v)))
	for _, x := range v {
		m.PackFloat64(x)
	}
}

func (m *Message) UnpackFloat64Slice() ([]float64, error) {
	n, err := m.UnpackInt32()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, n)
	for i := int32(0); i < n; i++ {
		x, err := m.UnpackFloat64()
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// PackEach/UnpackEach support non-trivially-copyable element sequences —
// "serialized one by one after the count" per spec.md §4.1 — via a
// caller-supplied (pack, unpack) pair, the Go analogue of the C++
// template's user-type overload.
func PackEach[T any](m *Message, items []T, pack func(*Message, T)) {
	m.PackInt32(int32(len(items)))
	for _, it := range items {
		pack(m, it)
	}
}

func UnpackEach[T any](m *Message, unpack func(*Message) (T, error)) ([]T, error) {
	n, err := m.UnpackInt32()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := int32(0); i < n; i++ {
		v, err := unpack(m)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ---- maps and sets ----

// PackMap writes a map as the corresponding sequence, "elements packed
// pairwise" per spec.md §4.1. Iteration order is whatever Go gives us;
// callers that need order-independent equality compare as sets of pairs.
func PackMap[K comparable, V any](m *Message, items map[K]V, packKey func(*Message, K), packVal func(*Message, V)) {
	m.PackInt32(int32(len(items)))
	for k, v := range items {
		packKey(m, k)
		packVal(m, v)
	}
}

func UnpackMap[K comparable, V any](m *Message, unpackKey func(*Message) (K, error), unpackVal func(*Message) (V, error)) (map[K]V, error) {
	n, err := m.UnpackInt32()
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, n)
	for i := int32(0); i < n; i++ {
		k, err := unpackKey(m)
		if err != nil {
			return nil, err
		}
		v, err := unpackVal(m)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// ---- nested buffers ----

// PackMessage writes "size_t length || length bytes" of a nested buffer.
func (m *Message) PackMessage(nested *Message) {
	m.packUint64(uint64(len(nested.buf)))
	m.appendRaw(nested.buf)
}

func (m *Message) UnpackMessage() (*Message, error) {
	n, err := m.unpackUint64()
	if err != nil {
		return nil, err
	}
	ni, err := cmn.BigToInt(int64(n))
	if err != nil {
		return nil, err
	}
	b, err := m.readRaw(ni)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return FromBytes(cp), nil
}

// PackCompressed writes a nested buffer through lz4, for the bulk
// one-sided messaging path (SPEC_FULL §4.1). The voxel-fragment and
// receptor-batch encoders do not call it; they pack uncompressed.
func (m *Message) PackCompressed(nested *Message) error {
	bound := lz4.CompressBlockBound(len(nested.buf))
	dst := make([]byte, bound)
	var c lz4.Compressor
	n, err := c.CompressBlock(nested.buf, dst)
	if err != nil {
		return cmn.Wrap(cmn.ErrTransport, err, "lz4 compress")
	}
	if n == 0 {
		// incompressible: lz4 reports 0 when the block didn't shrink.
		// Fall back to storing it uncompressed with a sentinel length of 0.
		m.packUint64(uint64(len(nested.buf)))
		m.packUint64(0)
		m.appendRaw(nested.buf)
		return nil
	}
	m.packUint64(uint64(len(nested.buf)))
	m.packUint64(uint64(n))
	m.appendRaw(dst[:n])
	return nil
}

func (m *Message) UnpackCompressed() (*Message, error) {
	rawLen, err := m.unpackUint64()
	if err != nil {
		return nil, err
	}
	compLen, err := m.unpackUint64()
	if err != nil {
		return nil, err
	}
	rawN, err := cmn.BigToInt(int64(rawLen))
	if err != nil {
		return nil, err
	}
	if compLen == 0 {
		b, err := m.readRaw(rawN)
		if err != nil {
			return nil, err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return FromBytes(cp), nil
	}
	compN, err := cmn.BigToInt(int64(compLen))
	if err != nil {
		return nil, err
	}
	src, err := m.readRaw(compN)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, rawN)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrTransport, err, "lz4 decompress")
	}
	if n != rawN {
		return nil, cmn.Raise(cmn.ErrOutOfRange, "lz4 decompressed %d bytes, expected %d", n, rawN)
	}
	return FromBytes(dst), nil
}
