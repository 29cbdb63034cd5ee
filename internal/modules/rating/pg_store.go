// README: Rating store backed by PostgreSQL.
package rating

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campuspool/internal/types"
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Create(ctx context.Context, r *Rating) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ratings (id, request_id, rider_id, driver_id, smoothness, comfort, amenities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(r.ID), string(r.RequestID), string(r.RiderID), string(r.DriverID),
		r.Smoothness, r.Comfort, r.Amenities, r.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *PgStore) ListForDriver(ctx context.Context, driverID types.ID) ([]*Rating, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, request_id, rider_id, driver_id, smoothness, comfort, amenities, created_at
		FROM ratings
		WHERE driver_id = $1
		ORDER BY created_at DESC, id`, string(driverID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.ID, &r.RequestID, &r.RiderID, &r.DriverID, &r.Smoothness, &r.Comfort, &r.Amenities, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
