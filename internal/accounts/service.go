package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"freight-service/pkg/apperr"
	"freight-service/pkg/db"
	"freight-service/pkg/jwt"
	"freight-service/pkg/validation"
)

// Service contains account business logic.
type Service struct {
	db *db.DB
}

// NewService creates an account service backed by the given database.
func NewService(database *db.DB) *Service {
	return &Service{db: database}
}

// Register creates a user plus its role profile in one transaction and
// returns a JWT.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	role, err := jwt.ParseRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if err != nil {
		return nil, apperr.Validation("role must be admin, carrier or driver")
	}
	if !validation.ValidateUsername(req.Username) {
		return nil, apperr.Validation("invalid username")
	}
	if !validation.ValidateEmail(req.Email) {
		return nil, apperr.Validation("invalid email")
	}
	if !validation.ValidatePassword(req.Password) {
		return nil, apperr.Validation("password must be 6-100 characters")
	}
	if !validation.ValidateName(req.FullName) {
		return nil, apperr.Validation("full_name is required")
	}

	var exists bool
	_ = s.db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username=$1 OR email=$2)",
		req.Username, req.Email).Scan(&exists)
	if exists {
		return nil, apperr.Conflict("username or email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	userID := uuid.New().String()
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id,username,email,password_hash,role,full_name,phone)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			userID, req.Username, req.Email, string(hash), role, req.FullName, req.Phone)
		if err != nil {
			return apperr.Wrap(err, apperr.KindInternal, "insert user")
		}

		switch role {
		case jwt.RoleCarrier:
			if !validation.ValidateName(req.CompanyName) || !validation.ValidateName(req.ContactPerson) {
				return apperr.Validation("company_name and contact_person are required for carriers")
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO carriers (id,user_id,company_name,business_license,contact_person,address,phone,email)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				uuid.New().String(), userID, req.CompanyName, req.BusinessLicense,
				req.ContactPerson, req.Address, req.Phone, req.Email)
		case jwt.RoleDriver:
			if req.CarrierID == "" || req.LicenseNumber == "" {
				return apperr.Validation("carrier_id and license_number are required for drivers")
			}
			var carrierExists bool
			if scanErr := tx.QueryRow(ctx,
				"SELECT EXISTS(SELECT 1 FROM carriers WHERE id=$1 AND is_active)",
				req.CarrierID).Scan(&carrierExists); scanErr != nil || !carrierExists {
				return apperr.Validation("unknown carrier_id")
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO drivers (id,user_id,carrier_id,license_number,vehicle_type,vehicle_number)
				 VALUES ($1,$2,$3,$4,$5,$6)`,
				uuid.New().String(), userID, req.CarrierID,
				req.LicenseNumber, req.VehicleType, req.VehicleNumber)
		case jwt.RoleAdmin:
			// no profile row
		}
		if err != nil {
			return apperr.Wrap(err, apperr.KindInternal, "insert profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := jwt.Generate(userID, req.Username, role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResponse{
		Token: token,
		User: &User{
			ID: userID, Username: req.Username, Email: req.Email,
			Role: role, FullName: req.FullName, Phone: req.Phone, IsActive: true,
		},
	}, nil
}

// Login authenticates an account and returns a JWT.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var u User
	var hash string
	var role string
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id,username,email,password_hash,role,full_name,COALESCE(phone,''),is_active,created_at
		 FROM users WHERE username=$1`, req.Username).
		Scan(&u.ID, &u.Username, &u.Email, &hash, &role, &u.FullName, &u.Phone, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, apperr.Authentication("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return nil, apperr.Authentication("invalid credentials")
	}
	if !u.IsActive {
		return nil, apperr.Authentication("account is disabled")
	}
	u.Role, err = jwt.ParseRole(role)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	token, err := jwt.Generate(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResponse{Token: token, User: &u}, nil
}

// GetByID fetches an account by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	var role string
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id,username,email,role,full_name,COALESCE(phone,''),is_active,created_at
		 FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &role, &u.FullName, &u.Phone, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	u.Role, _ = jwt.ParseRole(role)
	return &u, nil
}
