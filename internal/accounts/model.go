package accounts

import (
	"time"

	"freight-service/pkg/jwt"
)

// User is an account in the system. A carrier or driver account owns exactly
// one matching profile row; admin accounts own neither.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         jwt.Role  `json:"role"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the body for POST /register. Role-specific fields are
// required for the matching role and ignored otherwise.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`

	// Carrier profile fields.
	CompanyName     string `json:"company_name"`
	BusinessLicense string `json:"business_license"`
	ContactPerson   string `json:"contact_person"`
	Address         string `json:"address"`

	// Driver profile fields.
	CarrierID     string `json:"carrier_id"`
	LicenseNumber string `json:"license_number"`
	VehicleType   string `json:"vehicle_type"`
	VehicleNumber string `json:"vehicle_number"`
}

// LoginRequest is the body for POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}
