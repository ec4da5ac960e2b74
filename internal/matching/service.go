package matching

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"freight-service/internal/events"
	"freight-service/internal/observability"
	"freight-service/pkg/apperr"
	"freight-service/pkg/db"
	"freight-service/pkg/kafka"
)

// Postgres advisory lock key serializing matching passes. Two concurrent
// passes over the same open set would otherwise both bind the same pair
// before either commits.
const passLockKey = 743391002

// Service runs matching passes over the open tolerance and request pools.
type Service struct {
	db        *db.DB
	kafka     *kafka.Client
	logger    *slog.Logger
	passLimit int
}

// NewService creates a matching service. passLimit caps how many open rows a
// single pass loads.
func NewService(database *db.DB, k *kafka.Client, logger *slog.Logger, passLimit int) *Service {
	return &Service{db: database, kafka: k, logger: logger, passLimit: passLimit}
}

// RunPass executes one matching pass in a single transaction: lock, load the
// open sets, plan first-fit pairs, create proposed matches and flip both
// sides to matched. Returns the number of matches created.
func (s *Service) RunPass(ctx context.Context) (int, error) {
	start := time.Now()
	type proposed struct {
		matchID string
		pair    Pair
	}
	var created []proposed

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", passLockKey); err != nil {
			return apperr.Internal(err)
		}

		tols, err := s.loadOpenTolerances(ctx, tx)
		if err != nil {
			return err
		}
		reqs, err := s.loadPendingRequests(ctx, tx)
		if err != nil {
			return err
		}
		if len(tols) == 0 || len(reqs) == 0 {
			return nil
		}

		active, err := s.loadActivePairs(ctx, tx)
		if err != nil {
			return err
		}

		for _, p := range Plan(tols, reqs, active) {
			matchID := uuid.New().String()
			if _, err := tx.Exec(ctx,
				`INSERT INTO matches (id,tolerance_id,delivery_request_id,status)
				 VALUES ($1,$2,$3,'proposed')`,
				matchID, p.ToleranceID, p.RequestID); err != nil {
				return apperr.Wrap(err, apperr.KindInternal, "insert match")
			}
			if _, err := tx.Exec(ctx,
				"UPDATE tolerances SET status='matched', updated_at=NOW() WHERE id=$1",
				p.ToleranceID); err != nil {
				return apperr.Internal(err)
			}
			if _, err := tx.Exec(ctx,
				"UPDATE delivery_requests SET status='matched', updated_at=NOW() WHERE id=$1",
				p.RequestID); err != nil {
				return apperr.Internal(err)
			}
			created = append(created, proposed{matchID: matchID, pair: p})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for _, c := range created {
		c := c
		go func() {
			ev := events.MatchProposedEvent{
				MatchID:     c.matchID,
				ToleranceID: c.pair.ToleranceID,
				RequestID:   c.pair.RequestID,
				ProposedAt:  now.Format(time.RFC3339),
			}
			if err := s.kafka.Publish(context.Background(), kafka.TopicMatchProposed, c.matchID, ev); err != nil {
				s.logger.Error("publish match.proposed failed", "match_id", c.matchID, "error", err)
			}
		}()
	}

	observability.MatchesCreated.Add(float64(len(created)))
	observability.MatchPassDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("matching pass finished", "created", len(created), "duration_ms", time.Since(start).Milliseconds())

	return len(created), nil
}

// Start consumes request.created and triggers a pass per new request. The
// advisory lock keeps these passes serialized with the admin endpoint.
func (s *Service) Start(ctx context.Context) {
	s.kafka.Subscribe(ctx, kafka.TopicRequestCreated, "matching-pass", func(data []byte) error {
		if _, err := s.RunPass(ctx); err != nil {
			return err
		}
		return nil
	})
}

func (s *Service) loadOpenTolerances(ctx context.Context, tx pgx.Tx) ([]Tolerance, error) {
	rows, err := tx.Query(ctx,
		`SELECT id,origin,destination,container_type,container_count,departure_time
		 FROM tolerances WHERE status='available'
		 ORDER BY created_at LIMIT $1
		 FOR UPDATE`, s.passLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var out []Tolerance
	for rows.Next() {
		var t Tolerance
		if err := rows.Scan(&t.ID, &t.Origin, &t.Destination, &t.ContainerType,
			&t.ContainerCount, &t.DepartureTime); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Service) loadPendingRequests(ctx context.Context, tx pgx.Tx) ([]Request, error) {
	rows, err := tx.Query(ctx,
		`SELECT id,origin,destination,container_type,container_count,pickup_time
		 FROM delivery_requests WHERE status='pending'
		 ORDER BY created_at LIMIT $1
		 FOR UPDATE`, s.passLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.Origin, &r.Destination, &r.ContainerType,
			&r.ContainerCount, &r.PickupTime); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Service) loadActivePairs(ctx context.Context, tx pgx.Tx) (map[Pair]bool, error) {
	rows, err := tx.Query(ctx,
		"SELECT tolerance_id, delivery_request_id FROM matches WHERE status <> 'rejected'")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	active := make(map[Pair]bool)
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.ToleranceID, &p.RequestID); err != nil {
			return nil, apperr.Internal(err)
		}
		active[p] = true
	}
	return active, rows.Err()
}
