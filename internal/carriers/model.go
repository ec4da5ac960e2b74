package carriers

import "time"

// Carrier is a transport company profile owned by one user account.
type Carrier struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	CompanyName     string    `json:"company_name"`
	BusinessLicense string    `json:"business_license,omitempty"`
	ContactPerson   string    `json:"contact_person"`
	Address         string    `json:"address,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}
