package tracking

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"freight-service/internal/matches"
	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
)

type fakeRelayService struct {
	authErr      error
	history      []LocationSample
	sample       *LocationSample
	recordErr    error
	completed    bool
	statusResult bool
	statusErr    error
	last         *LocationSample
}

func (f *fakeRelayService) AuthorizeObserver(ctx context.Context, claims *jwt.Claims, matchID string) (*matches.Match, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &matches.Match{ID: matchID}, nil
}

func (f *fakeRelayService) History(ctx context.Context, claims *jwt.Claims, matchID string) ([]LocationSample, error) {
	return f.history, nil
}

func (f *fakeRelayService) RecordSample(ctx context.Context, claims *jwt.Claims, req UpdateRequest) (*LocationSample, bool, error) {
	if f.recordErr != nil {
		return nil, false, f.recordErr
	}
	return f.sample, f.completed, nil
}

func (f *fakeRelayService) UpdateDeliveryStatus(ctx context.Context, claims *jwt.Claims, matchID, status string) (bool, error) {
	return f.statusResult, f.statusErr
}

func (f *fakeRelayService) LastKnown(ctx context.Context, claims *jwt.Claims, matchID string) (*LocationSample, error) {
	return f.last, nil
}

func newTestHandler(svc relayService) (*Handler, *Hub) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewHandler(hub, svc, time.Second), hub
}

func driverClaims() *jwt.Claims {
	return &jwt.Claims{UserID: "u1", Username: "driver_01", Role: jwt.RoleDriver}
}

func eventOf(t *testing.T, v any) string {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("message is not an event map: %v", v)
	}
	e, _ := m["event"].(string)
	return e
}

func TestJoinRepliesHistoryThenSubscribes(t *testing.T) {
	svc := &fakeRelayService{history: []LocationSample{{ID: "s1", MatchID: "m1"}}}
	h, hub := newTestHandler(svc)
	sess := &fakeSession{}

	h.dispatch(context.Background(), driverClaims(), sess, inbound{Event: "join_tracking", MatchID: "m1"})

	if len(sess.got) != 2 {
		t.Fatalf("expected joined_tracking and location_history, got %v", sess.got)
	}
	if eventOf(t, sess.got[0]) != "joined_tracking" || eventOf(t, sess.got[1]) != "location_history" {
		t.Fatalf("unexpected reply order: %v", sess.got)
	}
	if hub.Subscribers("m1") != 1 {
		t.Fatal("session should be subscribed after joining")
	}
}

func TestJoinDeniedRepliesErrorWithoutSubscribing(t *testing.T) {
	svc := &fakeRelayService{authErr: apperr.Authorization("match does not involve your carrier")}
	h, hub := newTestHandler(svc)
	sess := &fakeSession{}

	h.dispatch(context.Background(), driverClaims(), sess, inbound{Event: "join_tracking", MatchID: "m1"})

	if len(sess.got) != 1 || eventOf(t, sess.got[0]) != "error" {
		t.Fatalf("expected a single error reply, got %v", sess.got)
	}
	if hub.Subscribers("m1") != 0 {
		t.Fatal("denied caller must not be subscribed")
	}
	if roomCount(hub) != 0 {
		t.Fatal("denied join must not retain a room")
	}
}

func TestUpdateLocationBroadcastsToRoom(t *testing.T) {
	svc := &fakeRelayService{sample: &LocationSample{ID: "s1", MatchID: "m1"}}
	h, hub := newTestHandler(svc)

	observer := &fakeSession{}
	hub.Join("m1", observer, func() error { return nil })

	sender := &fakeSession{}
	h.dispatch(context.Background(), driverClaims(), sender, inbound{
		Event: "update_location", MatchID: "m1", Latitude: 51.9, Longitude: 4.5,
	})

	if len(observer.got) != 1 || eventOf(t, observer.got[0]) != "location_updated" {
		t.Fatalf("observer should receive the broadcast, got %v", observer.got)
	}
	if len(sender.got) != 1 || eventOf(t, sender.got[0]) != "location_update_success" {
		t.Fatalf("sender should receive the ack, got %v", sender.got)
	}
}

func TestUpdateLocationFailureBroadcastsNothing(t *testing.T) {
	svc := &fakeRelayService{recordErr: apperr.InvalidTransition("match is not in progress")}
	h, hub := newTestHandler(svc)

	observer := &fakeSession{}
	hub.Join("m1", observer, func() error { return nil })

	sender := &fakeSession{}
	h.dispatch(context.Background(), driverClaims(), sender, inbound{
		Event: "update_location", MatchID: "m1", Latitude: 51.9, Longitude: 4.5,
	})

	if len(observer.got) != 0 {
		t.Fatalf("rejected sample must not be broadcast, got %v", observer.got)
	}
	if len(sender.got) != 1 || eventOf(t, sender.got[0]) != "error" {
		t.Fatalf("sender should receive an error reply, got %v", sender.got)
	}
}

func TestStatusUpdateBroadcastsOnlyOnChange(t *testing.T) {
	svc := &fakeRelayService{statusResult: false}
	h, hub := newTestHandler(svc)

	observer := &fakeSession{}
	hub.Join("m1", observer, func() error { return nil })

	sender := &fakeSession{}
	h.dispatch(context.Background(), driverClaims(), sender, inbound{
		Event: "delivery_status_update", MatchID: "m1", Status: SampleStatusPickup,
	})

	if len(observer.got) != 0 {
		t.Fatalf("no state change, observers must hear nothing, got %v", observer.got)
	}
	if len(sender.got) != 1 || eventOf(t, sender.got[0]) != "status_update_success" {
		t.Fatalf("sender should still be acknowledged, got %v", sender.got)
	}

	svc.statusResult = true
	h.dispatch(context.Background(), driverClaims(), sender, inbound{
		Event: "delivery_status_update", MatchID: "m1", Status: SampleStatusDelivered,
	})

	if len(observer.got) != 1 || eventOf(t, observer.got[0]) != "delivery_status_changed" {
		t.Fatalf("delivered signal should broadcast the change, got %v", observer.got)
	}
}

func TestMissingMatchIDRejected(t *testing.T) {
	h, _ := newTestHandler(&fakeRelayService{})
	sess := &fakeSession{}

	h.dispatch(context.Background(), driverClaims(), sess, inbound{Event: "join_tracking"})

	if len(sess.got) != 1 || eventOf(t, sess.got[0]) != "error" {
		t.Fatalf("expected an error reply, got %v", sess.got)
	}
}

func TestUnknownEventRejected(t *testing.T) {
	h, _ := newTestHandler(&fakeRelayService{})
	sess := &fakeSession{}

	h.dispatch(context.Background(), driverClaims(), sess, inbound{Event: "teleport", MatchID: "m1"})

	if len(sess.got) != 1 || eventOf(t, sess.got[0]) != "error" {
		t.Fatalf("expected an error reply, got %v", sess.got)
	}
}
