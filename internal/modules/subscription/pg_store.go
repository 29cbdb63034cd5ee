// README: Subscription store backed by PostgreSQL.
package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campuspool/internal/types"
)

const subscriptionColumns = `
	id, user_id, tier_code, tier_name, price_amount, price_currency,
	rides_total, rides_remaining, valid_until, created_at`

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Create(ctx context.Context, sub *Subscription) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO subscriptions (
			id, user_id, tier_code, tier_name, price_amount, price_currency,
			rides_total, rides_remaining, valid_until, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(sub.ID), string(sub.UserID), sub.TierCode, sub.TierName, sub.Price.Amount, sub.Price.Currency,
		sub.RidesTotal, sub.RidesRemaining, sub.ValidUntil, sub.CreatedAt,
	)
	return err
}

func (s *PgStore) ListByUser(ctx context.Context, userID types.ID) ([]*Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ConsumeRideTx takes one ride from the user's usable subscription that expires first.
// It returns nil without error when the user holds no usable subscription.
func ConsumeRideTx(ctx context.Context, tx pgx.Tx, userID types.ID, at time.Time) (*Subscription, error) {
	sub, err := scanSubscription(tx.QueryRow(ctx, `
		UPDATE subscriptions SET rides_remaining = rides_remaining - 1
		WHERE id = (
			SELECT id FROM subscriptions
			WHERE user_id = $1 AND rides_remaining > 0 AND valid_until > $2
			ORDER BY valid_until, id
			LIMIT 1
			FOR UPDATE
		) AND rides_remaining > 0
		RETURNING `+subscriptionColumns, string(userID), at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.TierCode, &sub.TierName, &sub.Price.Amount, &sub.Price.Currency,
		&sub.RidesTotal, &sub.RidesRemaining, &sub.ValidUntil, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
