package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"freight-service/internal/matches"
	"freight-service/pkg/apperr"
	"freight-service/pkg/db"
	"freight-service/pkg/jwt"
	rredis "freight-service/pkg/redis"
	"freight-service/pkg/validation"
)

// Service persists location samples and answers relay queries. Broadcast
// fan-out lives in the Hub; lifecycle side effects are delegated to the match
// service.
type Service struct {
	db      *db.DB
	redis   *rredis.Client
	matches *matches.Service
	logger  *slog.Logger
}

// NewService creates a tracking service.
func NewService(database *db.DB, redis *rredis.Client, matchSvc *matches.Service, logger *slog.Logger) *Service {
	return &Service{db: database, redis: redis, matches: matchSvc, logger: logger}
}

// AuthorizeObserver loads a match and checks the caller may observe it
// (bound driver, owning carrier, or admin).
func (s *Service) AuthorizeObserver(ctx context.Context, claims *jwt.Claims, matchID string) (*matches.Match, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.matches.AuthorizeObserver(ctx, claims, m); err != nil {
		return nil, err
	}
	return m, nil
}

// History returns the full ordered sample path of a match.
func (s *Service) History(ctx context.Context, claims *jwt.Claims, matchID string) ([]LocationSample, error) {
	if _, err := s.AuthorizeObserver(ctx, claims, matchID); err != nil {
		return nil, err
	}
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id,match_id,driver_id,latitude,longitude,status,COALESCE(notes,''),recorded_at
		 FROM location_samples WHERE match_id=$1 ORDER BY recorded_at`, matchID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var out []LocationSample
	for rows.Next() {
		var ls LocationSample
		if err := rows.Scan(&ls.ID, &ls.MatchID, &ls.DriverID, &ls.Latitude, &ls.Longitude,
			&ls.Status, &ls.Notes, &ls.RecordedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, ls)
	}
	return out, nil
}

// RecordSample persists a position published by the bound driver, updates the
// driver's last-known position, and, for a delivered status, drives the match
// to completed. Returns the stored sample and whether completion fired.
func (s *Service) RecordSample(ctx context.Context, claims *jwt.Claims, req UpdateRequest) (*LocationSample, bool, error) {
	if !validation.ValidateCoordinates(req.Latitude, req.Longitude) {
		return nil, false, apperr.Validation("invalid coordinates")
	}
	status := req.Status
	if status == "" {
		status = SampleStatusInTransit
	}
	if !validSampleStatus(status) {
		return nil, false, apperr.Validation("status must be pickup, in_transit or delivered")
	}

	m, driverID, err := s.requireBoundDriver(ctx, claims, req.MatchID)
	if err != nil {
		return nil, false, err
	}
	if m.Status != matches.StatusInProgress {
		return nil, false, apperr.InvalidTransition("match is not in progress")
	}

	sample := &LocationSample{
		ID:         uuid.New().String(),
		MatchID:    req.MatchID,
		DriverID:   driverID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Status:     status,
		Notes:      req.Notes,
		RecordedAt: time.Now(),
	}

	// a delivered sample and its completion commit or fail as one unit, so
	// the driver can never see a success reply while the match stays open
	completed := false
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO location_samples (id,match_id,driver_id,latitude,longitude,status,notes,recorded_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			sample.ID, sample.MatchID, sample.DriverID, sample.Latitude, sample.Longitude,
			sample.Status, sample.Notes, sample.RecordedAt); err != nil {
			return apperr.Wrap(err, apperr.KindInternal, "insert sample")
		}
		if _, err := tx.Exec(ctx,
			"UPDATE drivers SET current_lat=$1, current_lng=$2 WHERE id=$3",
			sample.Latitude, sample.Longitude, driverID); err != nil {
			return apperr.Internal(err)
		}
		if status == SampleStatusDelivered {
			if err := s.matches.CompleteTx(ctx, tx, m, sample.RecordedAt); err != nil {
				return err
			}
			completed = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	_ = s.redis.SetLastPosition(ctx, driverID, sample.Latitude, sample.Longitude, sample.RecordedAt)

	if completed {
		s.matches.PublishCompleted(m, sample.RecordedAt)
	}
	return sample, completed, nil
}

// UpdateDeliveryStatus handles a bare status signal (no coordinates). A
// delivered status completes the match.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, claims *jwt.Claims, matchID, status string) (bool, error) {
	if !validSampleStatus(status) {
		return false, apperr.Validation("status must be pickup, in_transit or delivered")
	}
	m, _, err := s.requireBoundDriver(ctx, claims, matchID)
	if err != nil {
		return false, err
	}
	if status != SampleStatusDelivered {
		return false, nil
	}
	if m.Status != matches.StatusInProgress {
		return false, apperr.InvalidTransition("match is not in progress")
	}
	if _, err := s.matches.Complete(ctx, claims, matchID); err != nil {
		return false, err
	}
	return true, nil
}

// LastKnown returns the bound driver's most recent position, preferring the
// Redis cache over the drivers table.
func (s *Service) LastKnown(ctx context.Context, claims *jwt.Claims, matchID string) (*LocationSample, error) {
	m, err := s.AuthorizeObserver(ctx, claims, matchID)
	if err != nil {
		return nil, err
	}
	if m.DriverID == nil {
		return nil, apperr.NotFound("no driver assigned to this match")
	}

	if lat, lng, at, ok, _ := s.redis.GetLastPosition(ctx, *m.DriverID); ok {
		return &LocationSample{
			MatchID: matchID, DriverID: *m.DriverID,
			Latitude: lat, Longitude: lng,
			Status: SampleStatusInTransit, RecordedAt: at,
		}, nil
	}

	var lat, lng *float64
	if err := s.db.Pool.QueryRow(ctx,
		"SELECT current_lat, current_lng FROM drivers WHERE id=$1", *m.DriverID).
		Scan(&lat, &lng); err != nil || lat == nil || lng == nil {
		return nil, apperr.NotFound("no position recorded for this driver")
	}
	return &LocationSample{
		MatchID: matchID, DriverID: *m.DriverID,
		Latitude: *lat, Longitude: *lng,
		Status: SampleStatusInTransit, RecordedAt: time.Now(),
	}, nil
}

// requireBoundDriver resolves the caller to the driver bound to the match.
// Admins pass with the bound driver's identity.
func (s *Service) requireBoundDriver(ctx context.Context, claims *jwt.Claims, matchID string) (*matches.Match, string, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, "", err
	}
	if m.DriverID == nil {
		return nil, "", apperr.Authorization("no driver assigned to this match")
	}

	switch claims.Role {
	case jwt.RoleAdmin:
		return m, *m.DriverID, nil
	case jwt.RoleDriver:
		var ok bool
		_ = s.db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM drivers WHERE id=$1 AND user_id=$2)",
			*m.DriverID, claims.UserID).Scan(&ok)
		if !ok {
			return nil, "", apperr.Authorization("you are not assigned to this match")
		}
		return m, *m.DriverID, nil
	case jwt.RoleCarrier:
		return nil, "", apperr.Authorization("only the assigned driver can publish positions")
	}
	return nil, "", apperr.Authorization("forbidden")
}
