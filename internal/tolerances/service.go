package tolerances

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
	"freight-service/pkg/validation"
)

// Service contains tolerance business logic.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a tolerance service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Create publishes a new capacity offer for the calling carrier.
func (s *Service) Create(ctx context.Context, claims *jwt.Claims, req CreateRequest) (*Tolerance, error) {
	if claims.Role != jwt.RoleCarrier {
		return nil, apperr.Authorization("only carriers can publish tolerances")
	}
	if !validation.ValidateRoute(req.Origin, req.Destination) {
		return nil, apperr.Validation("origin and destination are required and must differ")
	}
	if !validation.ValidateWindow(req.DepartureTime, req.ArrivalTime) {
		return nil, apperr.Validation("departure_time must precede arrival_time")
	}
	if !validation.ValidateContainerType(req.ContainerType) {
		return nil, apperr.Validation("unknown container_type")
	}
	if !validation.ValidateContainerCount(req.ContainerCount) {
		return nil, apperr.Validation("container_count must be between 1 and 100")
	}

	carrierID, err := s.carrierIDForUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(ctx,
		`INSERT INTO tolerances (id,carrier_id,origin,destination,departure_time,arrival_time,
		                         container_type,container_count,is_empty_run,price,special_requirements)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id, carrierID, strings.TrimSpace(req.Origin), strings.TrimSpace(req.Destination),
		req.DepartureTime, req.ArrivalTime, strings.ToLower(strings.TrimSpace(req.ContainerType)),
		req.ContainerCount, req.IsEmptyRun, req.Price, req.SpecialRequirements)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.GetByID(ctx, claims, id)
}

// List returns tolerances visible to the caller: admins see all, carriers
// their own, drivers their carrier's. Optional status filter.
func (s *Service) List(ctx context.Context, claims *jwt.Claims, status string) ([]Tolerance, error) {
	query := `SELECT id,carrier_id,origin,destination,departure_time,arrival_time,container_type,
	                 container_count,is_empty_run,price,COALESCE(special_requirements,''),status,created_at,updated_at
	          FROM tolerances`
	var args []any

	switch claims.Role {
	case jwt.RoleAdmin:
	case jwt.RoleCarrier:
		query += " WHERE carrier_id = (SELECT id FROM carriers WHERE user_id=$1)"
		args = append(args, claims.UserID)
	case jwt.RoleDriver:
		query += " WHERE carrier_id = (SELECT carrier_id FROM drivers WHERE user_id=$1)"
		args = append(args, claims.UserID)
	}
	if status != "" {
		if len(args) == 0 {
			query += " WHERE status=$1"
		} else {
			query += " AND status=$2"
		}
		args = append(args, status)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var out []Tolerance
	for rows.Next() {
		var t Tolerance
		if err := rows.Scan(&t.ID, &t.CarrierID, &t.Origin, &t.Destination, &t.DepartureTime,
			&t.ArrivalTime, &t.ContainerType, &t.ContainerCount, &t.IsEmptyRun, &t.Price,
			&t.SpecialRequirements, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, t)
	}
	return out, nil
}

// GetByID fetches one tolerance with the same visibility rule as List.
func (s *Service) GetByID(ctx context.Context, claims *jwt.Claims, id string) (*Tolerance, error) {
	var t Tolerance
	err := s.db.QueryRow(ctx,
		`SELECT id,carrier_id,origin,destination,departure_time,arrival_time,container_type,
		        container_count,is_empty_run,price,COALESCE(special_requirements,''),status,created_at,updated_at
		 FROM tolerances WHERE id=$1`, id).
		Scan(&t.ID, &t.CarrierID, &t.Origin, &t.Destination, &t.DepartureTime,
			&t.ArrivalTime, &t.ContainerType, &t.ContainerCount, &t.IsEmptyRun, &t.Price,
			&t.SpecialRequirements, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, apperr.NotFound("tolerance not found")
	}
	if err := s.authorize(ctx, claims, t.CarrierID); err != nil {
		return nil, err
	}
	return &t, nil
}

// Cancel withdraws an open offer. Refused while a non-terminal match
// references it; the matched status itself implies such a match.
func (s *Service) Cancel(ctx context.Context, claims *jwt.Claims, id string) (*Tolerance, error) {
	t, err := s.GetByID(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if claims.Role == jwt.RoleDriver {
		return nil, apperr.Authorization("drivers cannot cancel tolerances")
	}
	if t.Status != StatusAvailable {
		return nil, apperr.InvalidTransition("only an available tolerance can be cancelled")
	}

	tag, err := s.db.Exec(ctx,
		"UPDATE tolerances SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3",
		StatusCancelled, id, StatusAvailable)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.InvalidTransition("tolerance is no longer available")
	}
	return s.GetByID(ctx, claims, id)
}

func (s *Service) authorize(ctx context.Context, claims *jwt.Claims, carrierID string) error {
	switch claims.Role {
	case jwt.RoleAdmin:
		return nil
	case jwt.RoleCarrier:
		var ok bool
		_ = s.db.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM carriers WHERE id=$1 AND user_id=$2)",
			carrierID, claims.UserID).Scan(&ok)
		if !ok {
			return apperr.Authorization("tolerance belongs to another carrier")
		}
		return nil
	case jwt.RoleDriver:
		var ok bool
		_ = s.db.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM drivers WHERE user_id=$1 AND carrier_id=$2)",
			claims.UserID, carrierID).Scan(&ok)
		if !ok {
			return apperr.Authorization("tolerance belongs to another carrier")
		}
		return nil
	}
	return apperr.Authorization("forbidden")
}

func (s *Service) carrierIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	if err := s.db.QueryRow(ctx,
		"SELECT id FROM carriers WHERE user_id=$1 AND is_active", userID).Scan(&id); err != nil {
		return "", apperr.NotFound("carrier profile not found")
	}
	return id, nil
}
