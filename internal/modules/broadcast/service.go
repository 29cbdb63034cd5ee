// README: Broadcast coordinator: create, read-time expiry filtering and a periodic sweeper.
package broadcast

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"campuspool/internal/apperr"
	"campuspool/internal/logging"
	"campuspool/internal/modules/route"
	"campuspool/internal/notify"
	"campuspool/internal/observability"
	"campuspool/internal/types"
)

const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

type Routes interface {
	Get(ctx context.Context, id types.ID) (*route.Route, error)
}

type Deps struct {
	Store         Store
	Routes        Routes
	Events        notify.Publisher
	Clock         types.Clock
	Log           *slog.Logger
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

type Service struct {
	store         Store
	routes        Routes
	events        notify.Publisher
	clock         types.Clock
	log           *slog.Logger
	defaultTTL    time.Duration
	sweepInterval time.Duration
}

func NewService(deps Deps) *Service {
	s := &Service{
		store:         deps.Store,
		routes:        deps.Routes,
		events:        deps.Events,
		clock:         deps.Clock,
		log:           deps.Log,
		defaultTTL:    deps.DefaultTTL,
		sweepInterval: deps.SweepInterval,
	}
	if s.events == nil {
		s.events = notify.Nop{}
	}
	if s.clock == nil {
		s.clock = types.SystemClock{}
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = DefaultTTL
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = DefaultSweepInterval
	}
	return s
}

// BroadcastCommand with a zero TTL uses the default.
type BroadcastCommand struct {
	RouteID  types.ID
	DriverID types.ID
	TTL      time.Duration
}

func (s *Service) Broadcast(ctx context.Context, cmd BroadcastCommand) (*Broadcast, error) {
	if cmd.RouteID == "" || cmd.DriverID == "" {
		return nil, apperr.Validation("route_id and driver_id are required")
	}
	if cmd.TTL < 0 {
		return nil, apperr.Validation("ttl must not be negative")
	}
	ttl := cmd.TTL
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	r, err := s.routes.Get(ctx, cmd.RouteID)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return nil, route.ErrNotFound
	}
	if r.DriverID != cmd.DriverID {
		return nil, route.ErrNotOwner
	}

	b := snapshot(r, s.clock.Now(), ttl)
	if err := s.store.Save(ctx, b); err != nil {
		return nil, err
	}

	observability.BroadcastsCreated.Inc()
	s.log.Info("broadcast created", "broadcast_id", b.ID, "route_id", b.RouteID, "expires_at", b.ExpiresAt)
	s.events.Publish(ctx, notify.Event{
		Type:        notify.BroadcastCreated,
		RouteID:     b.RouteID,
		BroadcastID: b.ID,
		DriverID:    b.DriverID,
		OccurredAt:  b.CreatedAt,
		Payload:     b.Clone(),
	})
	return b, nil
}

// ListActive returns unexpired broadcasts, newest first. Expiry is checked here against the
// clock, so results never depend on when the sweeper last ran.
func (s *Service) ListActive(ctx context.Context) ([]*Broadcast, error) {
	now := s.clock.Now()
	stored, err := s.store.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}
	out := stored[:0]
	for _, b := range stored {
		if b.ActiveAt(now) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.BroadcastsSwept.Add(float64(n))
		s.log.Debug("swept expired broadcasts", "count", n)
	}
	return n, nil
}

// RunSweeper calls SweepExpired every sweep interval until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				s.log.Error("broadcast sweep failed", "err", err)
			}
		}
	}
}
