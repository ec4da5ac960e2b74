package tracking

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

type fakeSession struct {
	got    []any
	fail   bool
	closed bool
}

func (f *fakeSession) send(v any) error {
	if f.fail {
		return errors.New("write failed")
	}
	f.got = append(f.got, v)
	return nil
}

func (f *fakeSession) close() { f.closed = true }

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func roomCount(h *Hub) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func TestJoinReplaysBeforeSubscribing(t *testing.T) {
	h := newTestHub()
	s := &fakeSession{}

	err := h.Join("m1", s, func() error {
		return s.send("history")
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Publish("m1", func() (any, error) { return "live", nil }); err != nil {
		t.Fatal(err)
	}

	if len(s.got) != 2 || s.got[0] != "history" || s.got[1] != "live" {
		t.Fatalf("expected [history live], got %v", s.got)
	}
}

func TestJoinReplayFailureDoesNotSubscribe(t *testing.T) {
	h := newTestHub()
	s := &fakeSession{}

	err := h.Join("m1", s, func() error { return errors.New("boom") })
	if err == nil {
		t.Fatal("expected replay error")
	}
	if h.Subscribers("m1") != 0 {
		t.Fatal("failed replay must not subscribe the session")
	}
}

func TestPublishFansOut(t *testing.T) {
	h := newTestHub()
	a := &fakeSession{}
	b := &fakeSession{}
	h.Join("m1", a, func() error { return nil })
	h.Join("m1", b, func() error { return nil })

	other := &fakeSession{}
	h.Join("m2", other, func() error { return nil })

	if err := h.Publish("m1", func() (any, error) { return "pos", nil }); err != nil {
		t.Fatal(err)
	}

	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("both m1 subscribers should receive, got %d and %d", len(a.got), len(b.got))
	}
	if len(other.got) != 0 {
		t.Fatal("m2 subscriber must not receive m1 broadcasts")
	}
}

func TestPublishPrepareFailureBroadcastsNothing(t *testing.T) {
	h := newTestHub()
	s := &fakeSession{}
	h.Join("m1", s, func() error { return nil })

	err := h.Publish("m1", func() (any, error) { return nil, errors.New("persist failed") })
	if err == nil {
		t.Fatal("expected prepare error")
	}
	if len(s.got) != 0 {
		t.Fatal("nothing may be broadcast when prepare fails")
	}
}

func TestPublishDropsFailedSession(t *testing.T) {
	h := newTestHub()
	good := &fakeSession{}
	bad := &fakeSession{fail: true}
	h.Join("m1", good, func() error { return nil })
	h.Join("m1", bad, func() error { return nil })

	if err := h.Publish("m1", func() (any, error) { return "pos", nil }); err != nil {
		t.Fatal(err)
	}

	if !bad.closed {
		t.Fatal("failed session should be closed")
	}
	if h.Subscribers("m1") != 1 {
		t.Fatalf("expected 1 remaining subscriber, got %d", h.Subscribers("m1"))
	}
	if len(good.got) != 1 {
		t.Fatal("healthy session should still receive the broadcast")
	}
}

func TestLeaveAll(t *testing.T) {
	h := newTestHub()
	s := &fakeSession{}
	h.Join("m1", s, func() error { return nil })
	h.Join("m2", s, func() error { return nil })

	h.LeaveAll(s)

	if h.Subscribers("m1") != 0 || h.Subscribers("m2") != 0 {
		t.Fatal("LeaveAll should remove the session from every room")
	}
}

func TestPublishWithoutSubscribersLeavesNoRoom(t *testing.T) {
	h := newTestHub()

	for i := 0; i < 1000; i++ {
		_ = h.Publish(fmt.Sprintf("m%d", i), func() (any, error) {
			return nil, errors.New("no such match")
		})
	}
	if n := roomCount(h); n != 0 {
		t.Fatalf("failed publishes must not retain rooms, got %d", n)
	}

	if err := h.Publish("m1", func() (any, error) { return "pos", nil }); err != nil {
		t.Fatal(err)
	}
	if n := roomCount(h); n != 0 {
		t.Fatalf("publish with no subscribers must not retain a room, got %d", n)
	}
}

func TestEmptiedRoomsAreRemoved(t *testing.T) {
	h := newTestHub()
	s := &fakeSession{}

	h.Join("m1", s, func() error { return nil })
	h.Leave("m1", s)
	if n := roomCount(h); n != 0 {
		t.Fatalf("leave of last session must remove the room, got %d", n)
	}

	h.Join("m2", s, func() error { return nil })
	h.LeaveAll(s)
	if n := roomCount(h); n != 0 {
		t.Fatalf("LeaveAll must remove emptied rooms, got %d", n)
	}

	_ = h.Join("m3", s, func() error { return errors.New("replay failed") })
	if n := roomCount(h); n != 0 {
		t.Fatalf("failed replay must not retain a room, got %d", n)
	}

	bad := &fakeSession{fail: true}
	h.Join("m4", bad, func() error { return nil })
	if err := h.Publish("m4", func() (any, error) { return "pos", nil }); err != nil {
		t.Fatal(err)
	}
	if n := roomCount(h); n != 0 {
		t.Fatalf("dropping the last subscriber must remove the room, got %d", n)
	}
}

func TestLeaveSingleRoom(t *testing.T) {
	h := newTestHub()
	s := &fakeSession{}
	h.Join("m1", s, func() error { return nil })
	h.Join("m2", s, func() error { return nil })

	h.Leave("m1", s)

	if h.Subscribers("m1") != 0 {
		t.Fatal("session should have left m1")
	}
	if h.Subscribers("m2") != 1 {
		t.Fatal("session should still be in m2")
	}
}
