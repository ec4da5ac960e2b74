package drivers

import "time"

// Driver status values.
const (
	StatusAvailable = "available"
	StatusBusy      = "busy"
	StatusOffline   = "offline"
)

// Driver is a driver profile. It belongs to exactly one carrier and carries
// an optional last-known position.
type Driver struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	CarrierID     string     `json:"carrier_id"`
	LicenseNumber string     `json:"license_number"`
	VehicleType   string     `json:"vehicle_type,omitempty"`
	VehicleNumber string     `json:"vehicle_number,omitempty"`
	Status        string     `json:"status"`
	CurrentLat    *float64   `json:"current_lat,omitempty"`
	CurrentLng    *float64   `json:"current_lng,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// StatusUpdate is the body for PATCH /api/drivers/{id}/status.
type StatusUpdate struct {
	Status string `json:"status"`
}

// LocationUpdate is the body for PATCH /api/drivers/{id}/location.
type LocationUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
