// README: Subscription persistence contract.
package subscription

import (
	"context"

	"campuspool/internal/apperr"
	"campuspool/internal/types"
)

var ErrUnknownTier = apperr.New(apperr.KindValidation, "unknown subscription tier")

type Store interface {
	Create(ctx context.Context, s *Subscription) error
	// ListByUser returns the user's subscriptions, newest first.
	ListByUser(ctx context.Context, userID types.ID) ([]*Subscription, error)
}
