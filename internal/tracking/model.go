package tracking

import "time"

// Location sample status values. A delivered sample completes the match as a
// side effect.
const (
	SampleStatusPickup    = "pickup"
	SampleStatusInTransit = "in_transit"
	SampleStatusDelivered = "delivered"
)

// LocationSample is one timestamped position point on a match's path.
// Samples are append-only and read back ordered by RecordedAt.
type LocationSample struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"match_id"`
	DriverID   string    `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// UpdateRequest is the body for POST /api/location/update and the payload of
// the update_location event.
type UpdateRequest struct {
	MatchID   string  `json:"match_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Status    string  `json:"status"`
	Notes     string  `json:"notes"`
}

// inbound is the envelope for every client-to-server relay event.
type inbound struct {
	Event     string  `json:"event"`
	MatchID   string  `json:"match_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Status    string  `json:"status"`
	Notes     string  `json:"notes"`
}

func validSampleStatus(s string) bool {
	switch s {
	case SampleStatusPickup, SampleStatusInTransit, SampleStatusDelivered:
		return true
	}
	return false
}
