// README: Ride request store backed by PostgreSQL; accept and create lock the route row first.
package request

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campuspool/internal/modules/route"
	"campuspool/internal/modules/subscription"
	"campuspool/internal/types"
)

const requestColumns = `
	id, rider_id, rider_name, driver_id, driver_name, route_id, pickup_point_id,
	pickup_location, pickup_min, status, reason, subscription_id, created_at, decided_at`

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Create(ctx context.Context, r *Request) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rt, err := route.LockActiveTx(ctx, tx, r.RouteID)
	if err != nil {
		return err
	}
	var held bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ride_requests
			WHERE rider_id = $1 AND route_id = $2 AND status IN ('pending', 'accepted')
		)`, string(r.RiderID), string(r.RouteID)).Scan(&held)
	if err != nil {
		return err
	}
	if held {
		return ErrDuplicate
	}
	if rt.AvailableSeats == 0 {
		return ErrCapacity
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ride_requests (
			id, rider_id, rider_name, driver_id, driver_name, route_id, pickup_point_id,
			pickup_location, pickup_min, status, reason, subscription_id, created_at, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		string(r.ID), string(r.RiderID), r.RiderName, string(r.DriverID), r.DriverName,
		string(r.RouteID), string(r.PickupPointID), r.PickupLocation, int(r.PickupTime),
		string(r.Status), string(r.Reason), string(r.SubscriptionID), r.CreatedAt, r.DecidedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Request, error) {
	return scanRequest(s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM ride_requests WHERE id = $1`, string(id)))
}

func (s *PgStore) ListPendingByDriver(ctx context.Context, driverID types.ID) ([]*Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+` FROM ride_requests
		WHERE driver_id = $1 AND status = 'pending'
		ORDER BY created_at, id`, string(driverID))
}

func (s *PgStore) ListByRider(ctx context.Context, riderID types.ID) ([]*Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+` FROM ride_requests
		WHERE rider_id = $1
		ORDER BY created_at DESC, id`, string(riderID))
}

func (s *PgStore) Accept(ctx context.Context, id types.ID, at time.Time) (*Request, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := s.lockPending(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if _, err := route.DecrementSeatsTx(ctx, tx, current.RouteID, 1); err != nil {
		if !errors.Is(err, route.ErrCapacity) {
			return nil, err
		}
		rejected, uerr := decide(ctx, tx, id, StatusRejected, ReasonCapacityExhausted, "", at)
		if uerr != nil {
			return nil, uerr
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			return nil, cerr
		}
		return rejected, ErrCapacity
	}

	credit, err := subscription.ConsumeRideTx(ctx, tx, current.RiderID, at)
	if err != nil {
		return nil, err
	}
	var creditID types.ID
	if credit != nil {
		creditID = credit.ID
	}
	accepted, err := decide(ctx, tx, id, StatusAccepted, ReasonNone, creditID, at)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return accepted, nil
}

func (s *PgStore) Reject(ctx context.Context, id types.ID, reason Reason, at time.Time) (*Request, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.lockPending(ctx, tx, id); err != nil {
		return nil, err
	}
	rejected, err := decide(ctx, tx, id, StatusRejected, reason, "", at)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rejected, nil
}

// lockPending locks the owning route, then the request, and checks the request is still pending.
func (s *PgStore) lockPending(ctx context.Context, tx pgx.Tx, id types.ID) (*Request, error) {
	r, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM ride_requests WHERE id = $1`, string(id)))
	if err != nil {
		return nil, err
	}
	if _, err := route.LockTx(ctx, tx, r.RouteID); err != nil {
		return nil, err
	}
	r, err = scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM ride_requests WHERE id = $1 FOR UPDATE`, string(id)))
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPending {
		return nil, ErrInvalidState
	}
	return r, nil
}

func decide(ctx context.Context, tx pgx.Tx, id types.ID, to Status, reason Reason, subscriptionID types.ID, at time.Time) (*Request, error) {
	r, err := scanRequest(tx.QueryRow(ctx, `
		UPDATE ride_requests SET status = $2, reason = $3, subscription_id = $4, decided_at = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns, string(id), string(to), string(reason), string(subscriptionID), at))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidState
	}
	return r, err
}

func (s *PgStore) list(ctx context.Context, sql string, args ...any) ([]*Request, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	var pickup int16
	var status, reason string
	err := row.Scan(
		&r.ID, &r.RiderID, &r.RiderName, &r.DriverID, &r.DriverName, &r.RouteID, &r.PickupPointID,
		&r.PickupLocation, &pickup, &status, &reason, &r.SubscriptionID, &r.CreatedAt, &r.DecidedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.PickupTime = types.TimeOfDay(pickup)
	r.Status = Status(status)
	r.Reason = Reason(reason)
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
