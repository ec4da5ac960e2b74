package events

// RequestCreatedEvent is published to request.created when a carrier posts a
// new delivery request. The matching consumer reacts to it.
type RequestCreatedEvent struct {
	RequestID   string `json:"request_id"`
	CarrierID   string `json:"carrier_id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	CreatedAt   string `json:"created_at"`
}

// MatchProposedEvent is published to match.proposed per match the matcher creates.
type MatchProposedEvent struct {
	MatchID     string `json:"match_id"`
	ToleranceID string `json:"tolerance_id"`
	RequestID   string `json:"request_id"`
	ProposedAt  string `json:"proposed_at"`
}

// MatchAcceptedEvent is published to match.accepted.
type MatchAcceptedEvent struct {
	MatchID    string `json:"match_id"`
	AcceptedBy string `json:"accepted_by"`
	AcceptedAt string `json:"accepted_at"`
}

// MatchRejectedEvent is published to match.rejected.
type MatchRejectedEvent struct {
	MatchID string `json:"match_id"`
	Reason  string `json:"reason"`
}

// DeliveryCompletedEvent is published to delivery.completed.
type DeliveryCompletedEvent struct {
	MatchID     string `json:"match_id"`
	ToleranceID string `json:"tolerance_id"`
	RequestID   string `json:"request_id"`
	DriverID    string `json:"driver_id"`
	CompletedAt string `json:"completed_at"`
}
