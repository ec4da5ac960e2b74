package requests

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/internal/events"
	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
	"freight-service/pkg/kafka"
	"freight-service/pkg/validation"
)

// Service contains delivery request business logic.
type Service struct {
	db     *pgxpool.Pool
	kafka  *kafka.Client
	logger *slog.Logger
}

// NewService creates a delivery request service.
func NewService(db *pgxpool.Pool, k *kafka.Client, logger *slog.Logger) *Service {
	return &Service{db: db, kafka: k, logger: logger}
}

// Create publishes a new delivery request and emits request.created so the
// matching consumer can pick it up.
func (s *Service) Create(ctx context.Context, claims *jwt.Claims, req CreateRequest) (*DeliveryRequest, error) {
	if claims.Role != jwt.RoleCarrier {
		return nil, apperr.Authorization("only carriers can publish delivery requests")
	}
	if !validation.ValidateRoute(req.Origin, req.Destination) {
		return nil, apperr.Validation("origin and destination are required and must differ")
	}
	if !validation.ValidateWindow(req.PickupTime, req.DeliveryTime) {
		return nil, apperr.Validation("pickup_time must precede delivery_time")
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

	cargo := req.CargoDetails
	if cargo == nil {
		cargo = CargoDetails{}
	}
	cargoJSON, err := json.Marshal(cargo)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	id := uuid.New().String()
	origin := strings.TrimSpace(req.Origin)
	destination := strings.TrimSpace(req.Destination)
	_, err = s.db.Exec(ctx,
		`INSERT INTO delivery_requests (id,carrier_id,origin,destination,pickup_time,delivery_time,
		                                container_type,container_count,cargo_details,budget,special_requirements)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id, carrierID, origin, destination, req.PickupTime, req.DeliveryTime,
		strings.ToLower(strings.TrimSpace(req.ContainerType)), req.ContainerCount,
		cargoJSON, req.Budget, req.SpecialRequirements)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	go func() {
		ev := events.RequestCreatedEvent{
			RequestID:   id,
			CarrierID:   carrierID,
			Origin:      origin,
			Destination: destination,
			CreatedAt:   time.Now().Format(time.RFC3339),
		}
		if err := s.kafka.Publish(context.Background(), kafka.TopicRequestCreated, id, ev); err != nil {
			s.logger.Error("publish request.created failed", "request_id", id, "error", err)
		}
	}()

	return s.GetByID(ctx, claims, id)
}

// List returns delivery requests visible to the caller, oldest first.
func (s *Service) List(ctx context.Context, claims *jwt.Claims, status string) ([]DeliveryRequest, error) {
	query := `SELECT id,carrier_id,origin,destination,pickup_time,delivery_time,container_type,
	                 container_count,cargo_details,budget,COALESCE(special_requirements,''),status,created_at,updated_at
	          FROM delivery_requests`
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

	var out []DeliveryRequest
	for rows.Next() {
		var d DeliveryRequest
		var cargoJSON []byte
		if err := rows.Scan(&d.ID, &d.CarrierID, &d.Origin, &d.Destination, &d.PickupTime,
			&d.DeliveryTime, &d.ContainerType, &d.ContainerCount, &cargoJSON, &d.Budget,
			&d.SpecialRequirements, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		_ = json.Unmarshal(cargoJSON, &d.CargoDetails)
		out = append(out, d)
	}
	return out, nil
}

// GetByID fetches one delivery request with the List visibility rule.
func (s *Service) GetByID(ctx context.Context, claims *jwt.Claims, id string) (*DeliveryRequest, error) {
	var d DeliveryRequest
	var cargoJSON []byte
	err := s.db.QueryRow(ctx,
		`SELECT id,carrier_id,origin,destination,pickup_time,delivery_time,container_type,
		        container_count,cargo_details,budget,COALESCE(special_requirements,''),status,created_at,updated_at
		 FROM delivery_requests WHERE id=$1`, id).
		Scan(&d.ID, &d.CarrierID, &d.Origin, &d.Destination, &d.PickupTime,
			&d.DeliveryTime, &d.ContainerType, &d.ContainerCount, &cargoJSON, &d.Budget,
			&d.SpecialRequirements, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, apperr.NotFound("delivery request not found")
	}
	_ = json.Unmarshal(cargoJSON, &d.CargoDetails)
	if err := s.authorize(ctx, claims, d.CarrierID); err != nil {
		return nil, err
	}
	return &d, nil
}

// Cancel withdraws a pending request.
func (s *Service) Cancel(ctx context.Context, claims *jwt.Claims, id string) (*DeliveryRequest, error) {
	d, err := s.GetByID(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if claims.Role == jwt.RoleDriver {
		return nil, apperr.Authorization("drivers cannot cancel delivery requests")
	}
	if d.Status != StatusPending {
		return nil, apperr.InvalidTransition("only a pending request can be cancelled")
	}

	tag, err := s.db.Exec(ctx,
		"UPDATE delivery_requests SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3",
		StatusCancelled, id, StatusPending)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.InvalidTransition("request is no longer pending")
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
			return apperr.Authorization("request belongs to another carrier")
		}
		return nil
	case jwt.RoleDriver:
		var ok bool
		_ = s.db.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM drivers WHERE user_id=$1 AND carrier_id=$2)",
			claims.UserID, carrierID).Scan(&ok)
		if !ok {
			return apperr.Authorization("request belongs to another carrier")
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
