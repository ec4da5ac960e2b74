package matching

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func tol(id, origin, dest, ctype string, count int, departure time.Time) Tolerance {
	return Tolerance{ID: id, Origin: origin, Destination: dest, ContainerType: ctype,
		ContainerCount: count, DepartureTime: departure}
}

func req(id, origin, dest, ctype string, count int, pickup time.Time) Request {
	return Request{ID: id, Origin: origin, Destination: dest, ContainerType: ctype,
		ContainerCount: count, PickupTime: pickup}
}

func TestCompatibleExactRoute(t *testing.T) {
	a := tol("t1", "rotterdam", "hamburg", "40ft", 5, t0)
	if !Compatible(a, req("r1", "rotterdam", "hamburg", "40ft", 3, t0.Add(time.Hour))) {
		t.Fatal("expected compatible")
	}
	if Compatible(a, req("r2", "rotterdam", "bremen", "40ft", 3, t0.Add(time.Hour))) {
		t.Fatal("different destination must not match")
	}
	if Compatible(a, req("r3", "antwerp", "hamburg", "40ft", 3, t0.Add(time.Hour))) {
		t.Fatal("different origin must not match")
	}
}

func TestCompatibleContainerType(t *testing.T) {
	a := tol("t1", "rotterdam", "hamburg", "40ft", 5, t0)
	if Compatible(a, req("r1", "rotterdam", "hamburg", "20ft", 3, t0.Add(time.Hour))) {
		t.Fatal("container type mismatch must not match")
	}
}

func TestCompatibleCapacity(t *testing.T) {
	a := tol("t1", "rotterdam", "hamburg", "40ft", 2, t0)
	if Compatible(a, req("r1", "rotterdam", "hamburg", "40ft", 3, t0.Add(time.Hour))) {
		t.Fatal("request larger than offer must not match")
	}
	if !Compatible(a, req("r2", "rotterdam", "hamburg", "40ft", 2, t0.Add(time.Hour))) {
		t.Fatal("exact capacity must match")
	}
}

func TestCompatibleDepartureBeforePickup(t *testing.T) {
	a := tol("t1", "rotterdam", "hamburg", "40ft", 5, t0)
	if !Compatible(a, req("r1", "rotterdam", "hamburg", "40ft", 1, t0)) {
		t.Fatal("equal departure and pickup must match")
	}
	if Compatible(a, req("r2", "rotterdam", "hamburg", "40ft", 1, t0.Add(-time.Minute))) {
		t.Fatal("departure after pickup must not match")
	}
}

func TestPlanFirstFitOrder(t *testing.T) {
	tolerances := []Tolerance{
		tol("t1", "rotterdam", "hamburg", "40ft", 5, t0),
		tol("t2", "rotterdam", "hamburg", "40ft", 5, t0),
	}
	requests := []Request{
		req("r1", "rotterdam", "hamburg", "40ft", 1, t0.Add(time.Hour)),
		req("r2", "rotterdam", "hamburg", "40ft", 1, t0.Add(time.Hour)),
	}

	pairs := Plan(tolerances, requests, nil)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0] != (Pair{"t1", "r1"}) || pairs[1] != (Pair{"t2", "r2"}) {
		t.Fatalf("first-fit order violated: %v", pairs)
	}
}

func TestPlanRequestBoundOnce(t *testing.T) {
	tolerances := []Tolerance{
		tol("t1", "rotterdam", "hamburg", "40ft", 5, t0),
		tol("t2", "rotterdam", "hamburg", "40ft", 5, t0),
	}
	requests := []Request{
		req("r1", "rotterdam", "hamburg", "40ft", 1, t0.Add(time.Hour)),
	}

	pairs := Plan(tolerances, requests, nil)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0] != (Pair{"t1", "r1"}) {
		t.Fatalf("unexpected pair %v", pairs[0])
	}
}

func TestPlanSkipsActivePairs(t *testing.T) {
	tolerances := []Tolerance{tol("t1", "rotterdam", "hamburg", "40ft", 5, t0)}
	requests := []Request{
		req("r1", "rotterdam", "hamburg", "40ft", 1, t0.Add(time.Hour)),
		req("r2", "rotterdam", "hamburg", "40ft", 1, t0.Add(time.Hour)),
	}
	active := map[Pair]bool{{"t1", "r1"}: true}

	pairs := Plan(tolerances, requests, active)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0] != (Pair{"t1", "r2"}) {
		t.Fatalf("expected t1/r2, got %v", pairs[0])
	}
}

func TestPlanNoCompatiblePairs(t *testing.T) {
	tolerances := []Tolerance{tol("t1", "rotterdam", "hamburg", "40ft", 5, t0)}
	requests := []Request{req("r1", "antwerp", "bremen", "20ft", 1, t0.Add(time.Hour))}

	if pairs := Plan(tolerances, requests, nil); len(pairs) != 0 {
		t.Fatalf("expected no pairs, got %v", pairs)
	}
}

func TestPlanLargerRequestFallsThrough(t *testing.T) {
	tolerances := []Tolerance{tol("t1", "rotterdam", "hamburg", "40ft", 2, t0)}
	requests := []Request{
		req("r1", "rotterdam", "hamburg", "40ft", 3, t0.Add(time.Hour)),
		req("r2", "rotterdam", "hamburg", "40ft", 2, t0.Add(time.Hour)),
	}

	pairs := Plan(tolerances, requests, nil)
	if len(pairs) != 1 || pairs[0] != (Pair{"t1", "r2"}) {
		t.Fatalf("expected t1/r2, got %v", pairs)
	}
}
