package matches

import "time"

// Match status values.
const (
	StatusProposed   = "proposed"
	StatusAccepted   = "accepted"
	StatusRejected   = "rejected"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Match pairs one tolerance with one delivery request, optionally bound to a
// driver once a carrier assigns one.
type Match struct {
	ID                string     `json:"id"`
	ToleranceID       string     `json:"tolerance_id"`
	DeliveryRequestID string     `json:"delivery_request_id"`
	DriverID          *string    `json:"driver_id,omitempty"`
	Status            string     `json:"status"`
	Price             *int64     `json:"price,omitempty"`
	RejectionReason   *string    `json:"rejection_reason,omitempty"`
	ProposedAt        time.Time  `json:"proposed_at"`
	AcceptedAt        *time.Time `json:"accepted_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// RejectRequest is the body for POST /api/matches/{id}/reject. The reason may
// be empty but the field is part of the contract.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// AssignRequest is the body for POST /api/matches/{id}/assign.
type AssignRequest struct {
	DriverID string `json:"driver_id"`
}
