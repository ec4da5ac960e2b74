package matches

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"freight-service/internal/drivers"
	"freight-service/internal/events"
	"freight-service/internal/observability"
	"freight-service/internal/requests"
	"freight-service/internal/tolerances"
	"freight-service/pkg/apperr"
	"freight-service/pkg/db"
	"freight-service/pkg/jwt"
	"freight-service/pkg/kafka"
	rredis "freight-service/pkg/redis"
)

// Service drives the match lifecycle state machine. Every transition runs in
// one transaction with a status-guarded UPDATE on the match row, so a lost
// race surfaces as an invalid transition instead of a half-applied change.
type Service struct {
	db     *db.DB
	redis  *rredis.Client
	kafka  *kafka.Client
	logger *slog.Logger
}

// NewService creates a match service.
func NewService(database *db.DB, redis *rredis.Client, k *kafka.Client, logger *slog.Logger) *Service {
	return &Service{db: database, redis: redis, kafka: k, logger: logger}
}

// List returns matches visible to the caller: admins all, carriers those
// touching their tolerances or requests, drivers their assignments.
func (s *Service) List(ctx context.Context, claims *jwt.Claims) ([]Match, error) {
	query := `SELECT m.id,m.tolerance_id,m.delivery_request_id,m.driver_id,m.status,
	                 m.price,m.rejection_reason,m.proposed_at,m.accepted_at,m.completed_at
	          FROM matches m`
	var args []any

	switch claims.Role {
	case jwt.RoleAdmin:
	case jwt.RoleCarrier:
		query += ` WHERE EXISTS (
		               SELECT 1 FROM carriers c
		               WHERE c.user_id=$1
		                 AND (c.id = (SELECT carrier_id FROM tolerances WHERE id=m.tolerance_id)
		                   OR c.id = (SELECT carrier_id FROM delivery_requests WHERE id=m.delivery_request_id)))`
		args = append(args, claims.UserID)
	case jwt.RoleDriver:
		query += " WHERE m.driver_id = (SELECT id FROM drivers WHERE user_id=$1)"
		args = append(args, claims.UserID)
	}
	query += " ORDER BY m.proposed_at"

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.ToleranceID, &m.DeliveryRequestID, &m.DriverID, &m.Status,
			&m.Price, &m.RejectionReason, &m.ProposedAt, &m.AcceptedAt, &m.CompletedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, m)
	}
	return out, nil
}

// GetByID fetches a match the caller is allowed to observe.
func (s *Service) GetByID(ctx context.Context, claims *jwt.Claims, id string) (*Match, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeObserver(ctx, claims, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Accept moves a proposed match to accepted. Allowed for a carrier owning
// either side, the assigned driver, or an admin. The tolerance and request
// settle on matched (idempotent when the proposal already set them).
func (s *Service) Accept(ctx context.Context, claims *jwt.Claims, id string) (*Match, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch claims.Role {
	case jwt.RoleAdmin:
	case jwt.RoleCarrier:
		if !s.carrierOwnsSide(ctx, claims.UserID, m) {
			return nil, apperr.Authorization("match does not involve your carrier")
		}
	case jwt.RoleDriver:
		if !s.driverBound(ctx, claims.UserID, m) {
			return nil, apperr.Authorization("you are not assigned to this match")
		}
	}

	if err := s.checkTransition(m.Status, StatusAccepted); err != nil {
		return nil, err
	}

	now := time.Now()
	ef := EffectsOf(StatusAccepted)
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE matches SET status=$1, accepted_at=$2 WHERE id=$3 AND status=$4",
			StatusAccepted, now, id, StatusProposed)
		if err != nil {
			return apperr.Internal(err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.InvalidTransition("match is no longer proposed")
		}
		if _, err := tx.Exec(ctx,
			"UPDATE tolerances SET status=$1, updated_at=NOW() WHERE id=$2 AND status IN ($3,$1)",
			ef.Tolerance, m.ToleranceID, tolerances.StatusAvailable); err != nil {
			return apperr.Internal(err)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE delivery_requests SET status=$1, updated_at=NOW() WHERE id=$2 AND status IN ($3,$1)",
			ef.Request, m.DeliveryRequestID, requests.StatusPending); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.LifecycleTransitions.WithLabelValues(StatusAccepted).Inc()
	go s.publish(kafka.TopicMatchAccepted, id, events.MatchAcceptedEvent{
		MatchID: id, AcceptedBy: claims.UserID, AcceptedAt: now.Format(time.RFC3339),
	})

	return s.get(ctx, id)
}

// Reject moves a proposed or accepted match to rejected and frees both sides
// for the next matching pass.
func (s *Service) Reject(ctx context.Context, claims *jwt.Claims, id, reason string) (*Match, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch claims.Role {
	case jwt.RoleAdmin:
	case jwt.RoleCarrier:
		if !s.carrierOwnsSide(ctx, claims.UserID, m) {
			return nil, apperr.Authorization("match does not involve your carrier")
		}
	case jwt.RoleDriver:
		return nil, apperr.Authorization("drivers cannot reject matches")
	}

	if err := s.checkTransition(m.Status, StatusRejected); err != nil {
		return nil, err
	}

	ef := EffectsOf(StatusRejected)
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE matches SET status=$1, rejection_reason=$2 WHERE id=$3 AND status IN ($4,$5)",
			StatusRejected, reason, id, StatusProposed, StatusAccepted)
		if err != nil {
			return apperr.Internal(err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.InvalidTransition("match can no longer be rejected")
		}
		if _, err := tx.Exec(ctx,
			"UPDATE tolerances SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3",
			ef.Tolerance, m.ToleranceID, tolerances.StatusMatched); err != nil {
			return apperr.Internal(err)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE delivery_requests SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3",
			ef.Request, m.DeliveryRequestID, requests.StatusMatched); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.LifecycleTransitions.WithLabelValues(StatusRejected).Inc()
	go s.publish(kafka.TopicMatchRejected, id, events.MatchRejectedEvent{MatchID: id, Reason: reason})

	return s.get(ctx, id)
}

// AssignDriver binds a driver to a match before transit begins. Only the
// carrier owning the tolerance side (whose driver will run the route) or an
// admin may assign; the driver must belong to that carrier and be available.
func (s *Service) AssignDriver(ctx context.Context, claims *jwt.Claims, id, driverID string) (*Match, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var toleranceCarrierID string
	if err := s.db.Pool.QueryRow(ctx,
		"SELECT carrier_id FROM tolerances WHERE id=$1", m.ToleranceID).Scan(&toleranceCarrierID); err != nil {
		return nil, apperr.Internal(err)
	}

	switch claims.Role {
	case jwt.RoleAdmin:
	case jwt.RoleCarrier:
		var ok bool
		_ = s.db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM carriers WHERE id=$1 AND user_id=$2)",
			toleranceCarrierID, claims.UserID).Scan(&ok)
		if !ok {
			return nil, apperr.Authorization("only the offering carrier can assign a driver")
		}
	case jwt.RoleDriver:
		return nil, apperr.Authorization("drivers cannot assign themselves")
	}

	if m.Status != StatusProposed && m.Status != StatusAccepted {
		return nil, apperr.InvalidTransition("driver can only be assigned before transit begins")
	}

	var dStatus string
	var dCarrierID string
	if err := s.db.Pool.QueryRow(ctx,
		"SELECT status, carrier_id FROM drivers WHERE id=$1 AND is_active", driverID).
		Scan(&dStatus, &dCarrierID); err != nil {
		return nil, apperr.NotFound("driver not found")
	}
	if dCarrierID != toleranceCarrierID {
		return nil, apperr.Validation("driver belongs to another carrier")
	}
	if dStatus != drivers.StatusAvailable {
		return nil, apperr.Conflict("driver is not available")
	}

	tag, err := s.db.Pool.Exec(ctx,
		"UPDATE matches SET driver_id=$1 WHERE id=$2 AND status IN ($3,$4)",
		driverID, id, StatusProposed, StatusAccepted)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.InvalidTransition("match state changed, driver not assigned")
	}
	return s.get(ctx, id)
}

// ConfirmPickup is the bound driver confirming cargo pickup: accepted
// becomes in_progress, the request goes in_transit, the driver goes busy.
func (s *Service) ConfirmPickup(ctx context.Context, claims *jwt.Claims, id string) (*Match, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch claims.Role {
	case jwt.RoleAdmin:
	case jwt.RoleDriver:
		if !s.driverBound(ctx, claims.UserID, m) {
			return nil, apperr.Authorization("you are not assigned to this match")
		}
	case jwt.RoleCarrier:
		return nil, apperr.Authorization("only the assigned driver can confirm pickup")
	}

	if err := s.checkTransition(m.Status, StatusInProgress); err != nil {
		return nil, err
	}
	if m.DriverID == nil {
		return nil, apperr.InvalidTransition("no driver assigned")
	}

	ef := EffectsOf(StatusInProgress)
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE matches SET status=$1 WHERE id=$2 AND status=$3 AND driver_id IS NOT NULL",
			StatusInProgress, id, StatusAccepted)
		if err != nil {
			return apperr.Internal(err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.InvalidTransition("match is not accepted")
		}
		if _, err := tx.Exec(ctx,
			"UPDATE delivery_requests SET status=$1, updated_at=NOW() WHERE id=$2",
			ef.Request, m.DeliveryRequestID); err != nil {
			return apperr.Internal(err)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE drivers SET status=$1 WHERE id=$2",
			ef.Driver, *m.DriverID); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.redis.MarkDriverBusy(ctx, *m.DriverID)
	observability.LifecycleTransitions.WithLabelValues(StatusInProgress).Inc()

	return s.get(ctx, id)
}

// Complete finishes a delivery: match, tolerance and request all become
// completed and the driver is released. Driven by the bound driver's
// delivered signal (relay or HTTP) or an admin override.
func (s *Service) Complete(ctx context.Context, claims *jwt.Claims, id string) (*Match, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch claims.Role {
	case jwt.RoleAdmin:
	case jwt.RoleDriver:
		if !s.driverBound(ctx, claims.UserID, m) {
			return nil, apperr.Authorization("you are not assigned to this match")
		}
	case jwt.RoleCarrier:
		return nil, apperr.Authorization("only the assigned driver can complete a delivery")
	}

	if err := s.checkTransition(m.Status, StatusCompleted); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return s.CompleteTx(ctx, tx, m, now)
	})
	if err != nil {
		return nil, err
	}

	s.PublishCompleted(m, now)
	return s.get(ctx, id)
}

// CompleteTx applies the completion fan-out inside the caller's transaction:
// match, tolerance and request become completed and the driver is released.
// The tracking relay uses it to commit a delivered sample and the completion
// atomically. Callers run PublishCompleted once the transaction commits.
func (s *Service) CompleteTx(ctx context.Context, tx pgx.Tx, m *Match, now time.Time) error {
	ef := EffectsOf(StatusCompleted)

	tag, err := tx.Exec(ctx,
		"UPDATE matches SET status=$1, completed_at=$2 WHERE id=$3 AND status=$4",
		StatusCompleted, now, m.ID, StatusInProgress)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidTransition("match is not in progress")
	}
	if _, err := tx.Exec(ctx,
		"UPDATE tolerances SET status=$1, updated_at=NOW() WHERE id=$2",
		ef.Tolerance, m.ToleranceID); err != nil {
		return apperr.Internal(err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE delivery_requests SET status=$1, updated_at=NOW() WHERE id=$2",
		ef.Request, m.DeliveryRequestID); err != nil {
		return apperr.Internal(err)
	}
	if m.DriverID != nil {
		if _, err := tx.Exec(ctx,
			"UPDATE drivers SET status=$1 WHERE id=$2",
			ef.Driver, *m.DriverID); err != nil {
			return apperr.Internal(err)
		}
	}
	return nil
}

// PublishCompleted counts the completion and emits delivery.completed.
func (s *Service) PublishCompleted(m *Match, now time.Time) {
	observability.LifecycleTransitions.WithLabelValues(StatusCompleted).Inc()

	driverID := ""
	if m.DriverID != nil {
		driverID = *m.DriverID
	}
	go s.publish(kafka.TopicDeliveryCompleted, m.ID, events.DeliveryCompletedEvent{
		MatchID:     m.ID,
		ToleranceID: m.ToleranceID,
		RequestID:   m.DeliveryRequestID,
		DriverID:    driverID,
		CompletedAt: now.Format(time.RFC3339),
	})
}

// AuthorizeObserver checks whether the caller may observe a match: its bound
// driver, a carrier owning either side, or an admin. The tracking relay uses
// the same rule for room subscriptions.
func (s *Service) AuthorizeObserver(ctx context.Context, claims *jwt.Claims, m *Match) error {
	switch claims.Role {
	case jwt.RoleAdmin:
		return nil
	case jwt.RoleCarrier:
		if s.carrierOwnsSide(ctx, claims.UserID, m) {
			return nil
		}
		return apperr.Authorization("match does not involve your carrier")
	case jwt.RoleDriver:
		if s.driverBound(ctx, claims.UserID, m) {
			return nil
		}
		return apperr.Authorization("you are not assigned to this match")
	}
	return apperr.Authorization("forbidden")
}

// Get loads a match without an authorization check. The tracking relay calls
// it before applying AuthorizeObserver.
func (s *Service) Get(ctx context.Context, id string) (*Match, error) {
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (*Match, error) {
	var m Match
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id,tolerance_id,delivery_request_id,driver_id,status,price,
		        rejection_reason,proposed_at,accepted_at,completed_at
		 FROM matches WHERE id=$1`, id).
		Scan(&m.ID, &m.ToleranceID, &m.DeliveryRequestID, &m.DriverID, &m.Status,
			&m.Price, &m.RejectionReason, &m.ProposedAt, &m.AcceptedAt, &m.CompletedAt)
	if err != nil {
		return nil, apperr.NotFound("match not found")
	}
	return &m, nil
}

func (s *Service) checkTransition(from, to string) error {
	if CanTransition(from, to) {
		return nil
	}
	if Terminal(from) {
		return apperr.Newf(apperr.KindInvalidTransition, "match is %s and cannot change state", from)
	}
	return apperr.Newf(apperr.KindInvalidTransition, "cannot move match from %s to %s", from, to)
}

func (s *Service) carrierOwnsSide(ctx context.Context, userID string, m *Match) bool {
	var ok bool
	_ = s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM carriers c
		     WHERE c.user_id=$1
		       AND (c.id = (SELECT carrier_id FROM tolerances WHERE id=$2)
		         OR c.id = (SELECT carrier_id FROM delivery_requests WHERE id=$3)))`,
		userID, m.ToleranceID, m.DeliveryRequestID).Scan(&ok)
	return ok
}

func (s *Service) driverBound(ctx context.Context, userID string, m *Match) bool {
	if m.DriverID == nil {
		return false
	}
	var ok bool
	_ = s.db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM drivers WHERE id=$1 AND user_id=$2)",
		*m.DriverID, userID).Scan(&ok)
	return ok
}

func (s *Service) publish(topic, key string, value any) {
	if err := s.kafka.Publish(context.Background(), topic, key, value); err != nil {
		s.logger.Error("kafka publish failed", "topic", topic, "key", key, "error", err)
	}
}
