package cmn

import "math"

// BigToInt32 narrows a wider integer to int32, matching
// MessagePasser::bigToInt from original_source/MessagePasser/MessagePasser/MessagePasser.h:
// it fails with ErrOutOfRange rather than silently truncating.
func BigToInt32(v int64) (int32, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, Raise(ErrOutOfRange, "value %d does not fit in int32", v)
	}
	return int32(v), nil
}

// BigToInt narrows v to the platform int, used wherever a count read off
// the wire (always int64 on disk, per spec.md §4.1/§4.7) is handed to an
// API that wants a slice length.
func BigToInt(v int64) (int, error) {
	if v < 0 {
		return 0, Raise(ErrOutOfRange, "negative count %d", v)
	}
	if int64(int(v)) != v {
		return 0, Raise(ErrOutOfRange, "count %d does not fit in a native int", v)
	}
	return int(v), nil
}
