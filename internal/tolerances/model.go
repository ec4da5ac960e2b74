package tolerances

import "time"

// Tolerance status values.
const (
	StatusAvailable = "available"
	StatusMatched   = "matched"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Tolerance is a carrier-published offer of spare transport capacity on a
// route and time window. Route, window and container fields are immutable
// after creation; only status changes.
type Tolerance struct {
	ID                  string    `json:"id"`
	CarrierID           string    `json:"carrier_id"`
	Origin              string    `json:"origin"`
	Destination         string    `json:"destination"`
	DepartureTime       time.Time `json:"departure_time"`
	ArrivalTime         time.Time `json:"arrival_time"`
	ContainerType       string    `json:"container_type"`
	ContainerCount      int       `json:"container_count"`
	IsEmptyRun          bool      `json:"is_empty_run"`
	Price               *int64    `json:"price,omitempty"`
	SpecialRequirements string    `json:"special_requirements,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CreateRequest is the body for POST /api/tolerances.
type CreateRequest struct {
	Origin              string    `json:"origin"`
	Destination         string    `json:"destination"`
	DepartureTime       time.Time `json:"departure_time"`
	ArrivalTime         time.Time `json:"arrival_time"`
	ContainerType       string    `json:"container_type"`
	ContainerCount      int       `json:"container_count"`
	IsEmptyRun          bool      `json:"is_empty_run"`
	Price               *int64    `json:"price"`
	SpecialRequirements string    `json:"special_requirements"`
}
