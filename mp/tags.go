package mp

// Internal tag channels the facade reserves for itself, so a caller's
// own point-to-point tags (spec.md §4.2) never collide with collective
// traffic. Real MPI would use a separate communicator per collective;
// LocalNetwork only has tags; using a disjoint range for facade-internal
// traffic gets the same isolation without a second Transport type.
const (
	tagUser       = 0 // caller point-to-point send/recv starts here
	tagGather     = 1 << 20
	tagBroadcast  = 2 << 20
	tagScatter    = 3 << 20
	tagAllToAll   = 4 << 20
	tagReduce     = 5 << 20
	tagBalance    = 6 << 20
	tagGatherSort = 7 << 20
	tagSumAtID    = 8 << 20
	tagSplit      = 9 << 20
	tagSubBarrier = 10 << 20
	tagWindow     = 11 << 20 // window request; tagWindow+1 carries the reply
)
