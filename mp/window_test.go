package mp

import (
	"context"
	"testing"
)

// TestWindowGetPutRoundTrip exercises the one-sided get/put contract:
// the owner's Serve loop answers lock/put/get/unlock requests issued by
// a peer holding only a client-side Window handle. Serve has no
// mid-request cancellation (spec.md §5: PostMan-family servers support
// only cooperative stop, not per-message cancel), so this test does not
// wait for it to exit — the goroutine is reclaimed when the test binary
// exits.
func TestWindowGetPutRoundTrip(t *testing.T) {
	groups := newTestGroups(2)
	owner := NewWindow(groups[1], make([]byte, 8))
	client := NewWindow(groups[0], nil)

	go owner.Serve(context.Background())

	if err := client.Lock(1); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := client.Put(1, 2, []byte("hi")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := client.Get(1, 2, 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hi" {
		t.Errorf("Get: got %q, want %q", got, "hi")
	}
	if err := client.Unlock(1); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}
