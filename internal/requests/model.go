package requests

import "time"

// Delivery request status values.
const (
	StatusPending   = "pending"
	StatusMatched   = "matched"
	StatusInTransit = "in_transit"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// CargoDetails is a structured bag of cargo attributes (weight, description,
// handling notes). Stored as JSONB, not an opaque string.
type CargoDetails map[string]string

// DeliveryRequest is a carrier-published need for transport of cargo on a
// route and time window.
type DeliveryRequest struct {
	ID                  string       `json:"id"`
	CarrierID           string       `json:"carrier_id"`
	Origin              string       `json:"origin"`
	Destination         string       `json:"destination"`
	PickupTime          time.Time    `json:"pickup_time"`
	DeliveryTime        time.Time    `json:"delivery_time"`
	ContainerType       string       `json:"container_type"`
	ContainerCount      int          `json:"container_count"`
	CargoDetails        CargoDetails `json:"cargo_details"`
	Budget              *int64       `json:"budget,omitempty"`
	SpecialRequirements string       `json:"special_requirements,omitempty"`
	Status              string       `json:"status"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// CreateRequest is the body for POST /api/delivery-requests.
type CreateRequest struct {
	Origin              string       `json:"origin"`
	Destination         string       `json:"destination"`
	PickupTime          time.Time    `json:"pickup_time"`
	DeliveryTime        time.Time    `json:"delivery_time"`
	ContainerType       string       `json:"container_type"`
	ContainerCount      int          `json:"container_count"`
	CargoDetails        CargoDetails `json:"cargo_details"`
	Budget              *int64       `json:"budget"`
	SpecialRequirements string       `json:"special_requirements"`
}
