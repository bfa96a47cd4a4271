package msg

import (
	"reflect"
	"testing"

	"github.com/nasa/YOGA-sub004/cmn"
)

func TestRoundTripPrimitives(t *testing.T) {
	m := New()
	m.PackInt32(-7)
	m.PackInt64(1 << 40)
	m.PackFloat64(3.25)
	m.PackBool(true)
	m.PackString("hello voxel")
	m.Finalize()

	if v, err := m.UnpackInt32(); err != nil || v != -7 {
		t.Fatalf("int32 round-trip: got %d, %v", v, err)
	}
	if v, err := m.UnpackInt64(); err != nil || v != 1<<40 {
		t.Fatalf("int64 round-trip: got %d, %v", v, err)
	}
	if v, err := m.UnpackFloat64(); err != nil || v != 3.25 {
		t.Fatalf("float64 round-trip: got %v, %v", v, err)
	}
	if v, err := m.UnpackBool(); err != nil || v != true {
		t.Fatalf("bool round-trip: got %v, %v", v, err)
	}
	if v, err := m.UnpackString(); err != nil || v != "hello voxel" {
		t.Fatalf("string round-trip: got %q, %v", v, err)
	}
}

func TestRoundTripSequencePreservesOrder(t *testing.T) {
	in := []int64{5, 4, 3, 2, 1, 0}
	m := New()
	m.PackInt64Slice(in)
	m.Finalize()
	out, err := m.UnpackInt64Slice()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("order not preserved: in=%v out=%v", in, out)
	}
}

func TestUnpackPastEndIsOutOfRange(t *testing.T) {
	m := New()
	m.PackInt32(1)
	m.Finalize()
	if _, err := m.UnpackInt32(); err != nil {
		t.Fatal(err)
	}
	_, err := m.UnpackInt32()
	if err == nil {
		t.Fatal("expected OutOfRange, got nil")
	}
	if cmn.KindOf(err) != cmn.ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestNestedMessageRoundTrip(t *testing.T) {
	inner := New()
	inner.PackString("nested")
	inner.Finalize()

	outer := New()
	outer.PackMessage(inner)
	outer.Finalize()

	got, err := outer.UnpackMessage()
	if err != nil {
		t.Fatal(err)
	}
	s, err := got.UnpackString()
	if err != nil || s != "nested" {
		t.Fatalf("got %q, %v", s, err)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	inner := New()
	for i := 0; i < 1000; i++ {
		inner.PackInt64(int64(i % 7))
	}
	inner.Finalize()

	outer := New()
	if err := outer.PackCompressed(inner); err != nil {
		t.Fatal(err)
	}
	outer.Finalize()

	got, err := outer.UnpackCompressed()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		v, err := got.UnpackInt64()
		if err != nil || v != int64(i%7) {
			t.Fatalf("i=%d got %d, %v", i, v, err)
		}
	}
}

func TestMapRoundTrip(t *testing.T) {
	in := map[int32][]int64{1: {7, 8}, 2: {9}}
	m := New()
	PackMap(m, in, (*Message).PackInt32, func(mm *Message, v []int64) { mm.PackInt64Slice(v) })
	m.Finalize()
	out, err := UnpackMap(m, (*Message).UnpackInt32, (*Message).UnpackInt64Slice)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("map round-trip mismatch: in=%v out=%v", in, out)
	}
}
