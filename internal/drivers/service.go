package drivers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
	rredis "freight-service/pkg/redis"
	"freight-service/pkg/validation"
)

// Service contains driver business logic.
type Service struct {
	db    *pgxpool.Pool
	redis *rredis.Client
}

// NewService creates a driver service.
func NewService(db *pgxpool.Pool, redis *rredis.Client) *Service {
	return &Service{db: db, redis: redis}
}

// GetByID fetches a driver visible to the caller: the driver itself, its
// carrier, or an admin.
func (s *Service) GetByID(ctx context.Context, claims *jwt.Claims, id string) (*Driver, error) {
	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch claims.Role {
	case jwt.RoleAdmin:
		return d, nil
	case jwt.RoleDriver:
		if d.UserID != claims.UserID {
			return nil, apperr.Authorization("not your driver profile")
		}
		return d, nil
	case jwt.RoleCarrier:
		var ok bool
		_ = s.db.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM carriers WHERE id=$1 AND user_id=$2)",
			d.CarrierID, claims.UserID).Scan(&ok)
		if !ok {
			return nil, apperr.Authorization("driver belongs to another carrier")
		}
		return d, nil
	}
	return nil, apperr.Authorization("forbidden")
}

// GetForUser returns the driver profile owned by a user account.
func (s *Service) GetForUser(ctx context.Context, userID string) (*Driver, error) {
	var id string
	if err := s.db.QueryRow(ctx,
		"SELECT id FROM drivers WHERE user_id=$1", userID).Scan(&id); err != nil {
		return nil, apperr.NotFound("driver profile not found")
	}
	return s.get(ctx, id)
}

// UpdateStatus changes a driver's availability. Only the driver itself or an
// admin may change it, and a busy driver cannot go offline mid-delivery.
func (s *Service) UpdateStatus(ctx context.Context, claims *jwt.Claims, id, status string) (*Driver, error) {
	if status != StatusAvailable && status != StatusOffline {
		return nil, apperr.Validation("status must be available or offline")
	}
	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch claims.Role {
	case jwt.RoleAdmin:
	case jwt.RoleDriver:
		if d.UserID != claims.UserID {
			return nil, apperr.Authorization("not your driver profile")
		}
	case jwt.RoleCarrier:
		return nil, apperr.Authorization("carriers cannot change driver status")
	}
	if d.Status == StatusBusy {
		return nil, apperr.InvalidTransition("driver is busy with a delivery")
	}

	if _, err := s.db.Exec(ctx,
		"UPDATE drivers SET status=$1 WHERE id=$2", status, id); err != nil {
		return nil, apperr.Internal(err)
	}

	if status == StatusAvailable && d.CurrentLat != nil && d.CurrentLng != nil {
		_ = s.redis.MarkDriverAvailable(ctx, id, *d.CurrentLat, *d.CurrentLng)
	} else {
		_ = s.redis.MarkDriverBusy(ctx, id)
	}
	return s.get(ctx, id)
}

// UpdateLocation records a standalone position ping: last-known columns in
// the database plus the Redis cache and availability GEO set.
func (s *Service) UpdateLocation(ctx context.Context, claims *jwt.Claims, id string, lat, lng float64) error {
	if !validation.ValidateCoordinates(lat, lng) {
		return apperr.Validation("invalid coordinates")
	}
	d, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if claims.Role != jwt.RoleAdmin && d.UserID != claims.UserID {
		return apperr.Authorization("not your driver profile")
	}

	if _, err := s.db.Exec(ctx,
		"UPDATE drivers SET current_lat=$1, current_lng=$2 WHERE id=$3", lat, lng, id); err != nil {
		return apperr.Internal(err)
	}
	_ = s.redis.SetLastPosition(ctx, id, lat, lng, time.Now())
	if d.Status == StatusAvailable {
		_ = s.redis.MarkDriverAvailable(ctx, id, lat, lng)
	}
	return nil
}

// Nearby returns available driver IDs close to a point. Carrier and admin only.
func (s *Service) Nearby(ctx context.Context, claims *jwt.Claims, lat, lng, radiusKm float64) ([]string, error) {
	switch claims.Role {
	case jwt.RoleAdmin, jwt.RoleCarrier:
	case jwt.RoleDriver:
		return nil, apperr.Authorization("drivers cannot query the pool")
	}
	if !validation.ValidateCoordinates(lat, lng) {
		return nil, apperr.Validation("invalid coordinates")
	}
	ids, err := s.redis.NearbyAvailableDrivers(ctx, lat, lng, radiusKm, 10)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ids, nil
}

func (s *Service) get(ctx context.Context, id string) (*Driver, error) {
	var d Driver
	err := s.db.QueryRow(ctx,
		`SELECT id,user_id,carrier_id,license_number,COALESCE(vehicle_type,''),
		        COALESCE(vehicle_number,''),status,current_lat,current_lng,is_active,created_at
		 FROM drivers WHERE id=$1`, id).
		Scan(&d.ID, &d.UserID, &d.CarrierID, &d.LicenseNumber, &d.VehicleType,
			&d.VehicleNumber, &d.Status, &d.CurrentLat, &d.CurrentLng, &d.IsActive, &d.CreatedAt)
	if err != nil {
		return nil, apperr.NotFound("driver not found")
	}
	return &d, nil
}
