package matching

import "time"

// Tolerance is the slice of an open capacity offer the planner needs.
type Tolerance struct {
	ID             string
	Origin         string
	Destination    string
	ContainerType  string
	ContainerCount int
	DepartureTime  time.Time
}

// Request is the slice of a pending delivery request the planner needs.
type Request struct {
	ID             string
	Origin         string
	Destination    string
	ContainerType  string
	ContainerCount int
	PickupTime     time.Time
}

// Pair is a proposed tolerance/request binding.
type Pair struct {
	ToleranceID string
	RequestID   string
}

// Compatible reports whether a tolerance can serve a request: exact route
// equality, same container type, sufficient capacity, and the offer departing
// no later than the requested pickup.
func Compatible(t Tolerance, r Request) bool {
	return t.Origin == r.Origin &&
		t.Destination == r.Destination &&
		t.ContainerType == r.ContainerType &&
		t.ContainerCount >= r.ContainerCount &&
		!t.DepartureTime.After(r.PickupTime)
}

// Plan pairs tolerances with requests first-fit: each tolerance binds to the
// first compatible request in creation order, and neither side is considered
// again within the pass. Pairs already holding an active match are skipped.
// No compatible pair is a normal empty result.
func Plan(tolerances []Tolerance, requests []Request, active map[Pair]bool) []Pair {
	var pairs []Pair
	taken := make(map[string]bool, len(requests))

	for _, t := range tolerances {
		for _, r := range requests {
			if taken[r.ID] {
				continue
			}
			if !Compatible(t, r) {
				continue
			}
			p := Pair{ToleranceID: t.ID, RequestID: r.ID}
			if active[p] {
				continue
			}
			pairs = append(pairs, p)
			taken[r.ID] = true
			break
		}
	}
	return pairs
}
