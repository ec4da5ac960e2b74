package carriers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
)

// Service contains carrier profile logic.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a carrier service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// GetByID fetches a carrier. Carriers may read their own profile; admins may
// read any.
func (s *Service) GetByID(ctx context.Context, claims *jwt.Claims, id string) (*Carrier, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch claims.Role {
	case jwt.RoleAdmin:
		return c, nil
	case jwt.RoleCarrier:
		if c.UserID != claims.UserID {
			return nil, apperr.Authorization("not your carrier profile")
		}
		return c, nil
	case jwt.RoleDriver:
		var ok bool
		_ = s.db.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM drivers WHERE user_id=$1 AND carrier_id=$2)",
			claims.UserID, id).Scan(&ok)
		if !ok {
			return nil, apperr.Authorization("not your carrier")
		}
		return c, nil
	}
	return nil, apperr.Authorization("forbidden")
}

// GetForUser returns the carrier profile owned by a user account.
func (s *Service) GetForUser(ctx context.Context, userID string) (*Carrier, error) {
	var id string
	if err := s.db.QueryRow(ctx,
		"SELECT id FROM carriers WHERE user_id=$1", userID).Scan(&id); err != nil {
		return nil, apperr.NotFound("carrier profile not found")
	}
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (*Carrier, error) {
	var c Carrier
	err := s.db.QueryRow(ctx,
		`SELECT id,user_id,company_name,COALESCE(business_license,''),contact_person,
		        COALESCE(address,''),COALESCE(phone,''),COALESCE(email,''),is_active,created_at
		 FROM carriers WHERE id=$1`, id).
		Scan(&c.ID, &c.UserID, &c.CompanyName, &c.BusinessLicense, &c.ContactPerson,
			&c.Address, &c.Phone, &c.Email, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, apperr.NotFound("carrier not found")
	}
	return &c, nil
}
