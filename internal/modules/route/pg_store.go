// README: Route store backed by PostgreSQL; seat and cascade updates run inside transactions.
package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campuspool/internal/types"
)

const routeColumns = `
	id, driver_id, driver_name, origin, destination, departure_min, direction,
	available_seats, total_seats, price_amount, price_currency, amenities, vehicle,
	pickup_points, is_active, created_at`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Create(ctx context.Context, r *Route) error {
	points, err := json.Marshal(r.PickupPoints)
	if err != nil {
		return err
	}
	var vehicle []byte
	if r.Vehicle != nil {
		if vehicle, err = json.Marshal(r.Vehicle); err != nil {
			return err
		}
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO routes (
			id, driver_id, driver_name, origin, destination, departure_min, direction,
			available_seats, total_seats, price_amount, price_currency, amenities, vehicle,
			pickup_points, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		string(r.ID), string(r.DriverID), r.DriverName, r.Origin, r.Destination,
		int(r.DepartureTime), string(r.Direction),
		r.AvailableSeats, r.TotalSeats, r.PricePerSeat.Amount, r.PricePerSeat.Currency,
		r.Amenities, vehicle, points, r.IsActive, r.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrActiveRoute
	}
	return err
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Route, error) {
	return getRoute(ctx, s.db, id, false)
}

func (s *PgStore) ListActive(ctx context.Context) ([]*Route, error) {
	return listRoutes(ctx, s.db, `
		SELECT `+routeColumns+` FROM routes
		WHERE is_active
		ORDER BY departure_min, created_at, id`)
}

func (s *PgStore) ListByDriver(ctx context.Context, driverID types.ID) ([]*Route, error) {
	return listRoutes(ctx, s.db, `
		SELECT `+routeColumns+` FROM routes
		WHERE driver_id = $1
		ORDER BY created_at DESC, id`, string(driverID))
}

func (s *PgStore) Deactivate(ctx context.Context, id types.ID, at time.Time) ([]CancelledRequest, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE routes SET is_active = FALSE, deactivated_at = $2
		WHERE id = $1 AND is_active`, string(id), at)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := getRoute(ctx, tx, id, false); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	rows, err := tx.Query(ctx, `
		UPDATE ride_requests
		SET status = 'rejected', reason = 'route_cancelled', decided_at = $2
		WHERE route_id = $1 AND status = 'pending'
		RETURNING id, rider_id`, string(id), at)
	if err != nil {
		return nil, false, err
	}
	var cancelled []CancelledRequest
	for rows.Next() {
		var c CancelledRequest
		if err := rows.Scan(&c.ID, &c.RiderID); err != nil {
			rows.Close()
			return nil, false, err
		}
		cancelled = append(cancelled, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return cancelled, true, nil
}

func (s *PgStore) DecrementSeats(ctx context.Context, id types.ID, count int) (*Route, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := LockActiveTx(ctx, tx, id); err != nil {
		return nil, err
	}
	r, err := DecrementSeatsTx(ctx, tx, id, count)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// LockTx row-locks the route for the rest of tx. Transactions touching both a route and its
// requests lock the route first.
func LockTx(ctx context.Context, tx pgx.Tx, id types.ID) (*Route, error) {
	return getRoute(ctx, tx, id, true)
}

// LockActiveTx is LockTx that also fails with ErrNotFound for an inactive route.
func LockActiveTx(ctx context.Context, tx pgx.Tx, id types.ID) (*Route, error) {
	r, err := LockTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return nil, ErrNotFound
	}
	return r, nil
}

// DecrementSeatsTx takes count seats inside tx; the caller should hold the row lock.
func DecrementSeatsTx(ctx context.Context, tx pgx.Tx, id types.ID, count int) (*Route, error) {
	row := tx.QueryRow(ctx, `
		UPDATE routes SET available_seats = available_seats - $2
		WHERE id = $1 AND is_active AND available_seats >= $2
		RETURNING `+routeColumns, string(id), count)
	r, err := scanRoute(row)
	if errors.Is(err, ErrNotFound) {
		current, gerr := getRoute(ctx, tx, id, false)
		if gerr != nil {
			return nil, gerr
		}
		if !current.IsActive {
			return nil, ErrNotFound
		}
		return nil, ErrCapacity
	}
	return r, err
}

func getRoute(ctx context.Context, q querier, id types.ID, forUpdate bool) (*Route, error) {
	sql := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanRoute(q.QueryRow(ctx, sql, string(id)))
}

func listRoutes(ctx context.Context, q querier, sql string, args ...any) ([]*Route, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRoute(row pgx.Row) (*Route, error) {
	var r Route
	var departure int16
	var direction string
	var vehicle, points []byte
	err := row.Scan(
		&r.ID, &r.DriverID, &r.DriverName, &r.Origin, &r.Destination, &departure, &direction,
		&r.AvailableSeats, &r.TotalSeats, &r.PricePerSeat.Amount, &r.PricePerSeat.Currency,
		&r.Amenities, &vehicle, &points, &r.IsActive, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.DepartureTime = types.TimeOfDay(departure)
	r.Direction = Direction(direction)
	if len(vehicle) > 0 {
		r.Vehicle = &Vehicle{}
		if err := json.Unmarshal(vehicle, r.Vehicle); err != nil {
			return nil, fmt.Errorf("decode vehicle: %w", err)
		}
	}
	if err := json.Unmarshal(points, &r.PickupPoints); err != nil {
		return nil, fmt.Errorf("decode pickup points: %w", err)
	}
	if r.Amenities == nil {
		r.Amenities = []string{}
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
