// README: Subscription service; riders buy ride credits that accepted rides draw down.
package subscription

import (
	"context"
	"log/slog"
	"strings"

	"campuspool/internal/apperr"
	"campuspool/internal/logging"
	"campuspool/internal/observability"
	"campuspool/internal/types"
)

type Deps struct {
	Store Store
	Clock types.Clock
	Log   *slog.Logger
}

type Service struct {
	store Store
	clock types.Clock
	log   *slog.Logger
}

func NewService(deps Deps) *Service {
	s := &Service{store: deps.Store, clock: deps.Clock, log: deps.Log}
	if s.clock == nil {
		s.clock = types.SystemClock{}
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	return s
}

type SubscribeCommand struct {
	UserID types.ID
	Tier   string
}

func (s *Service) Subscribe(ctx context.Context, cmd SubscribeCommand) (*Subscription, error) {
	if cmd.UserID == "" || strings.TrimSpace(cmd.Tier) == "" {
		return nil, apperr.Validation("user_id and tier are required")
	}
	tier, ok := LookupTier(strings.TrimSpace(cmd.Tier))
	if !ok {
		return nil, ErrUnknownTier
	}
	now := s.clock.Now()
	sub := &Subscription{
		ID:             types.NewID(),
		UserID:         cmd.UserID,
		TierCode:       tier.Code,
		TierName:       tier.Name,
		Price:          tier.Price,
		RidesTotal:     tier.Rides,
		RidesRemaining: tier.Rides,
		ValidUntil:     now.AddDate(0, tier.ValidityMonths, 0),
		CreatedAt:      now,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}
	observability.SubscriptionsCreated.WithLabelValues(tier.Code).Inc()
	s.log.Info("subscription created", "subscription_id", sub.ID, "user_id", sub.UserID, "tier", tier.Code)
	return sub, nil
}

func (s *Service) ListForUser(ctx context.Context, userID types.ID) ([]*Subscription, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	return s.store.ListByUser(ctx, userID)
}
