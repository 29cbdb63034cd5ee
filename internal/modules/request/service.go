// README: Request matcher service: pickup requests, accept/reject with race-checked capacity.
package request

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"campuspool/internal/apperr"
	"campuspool/internal/logging"
	"campuspool/internal/modules/route"
	"campuspool/internal/notify"
	"campuspool/internal/observability"
	"campuspool/internal/types"
)

// Routes is the slice of the route registry the matcher reads from.
type Routes interface {
	Get(ctx context.Context, id types.ID) (*route.Route, error)
}

type Deps struct {
	Store  Store
	Routes Routes
	Events notify.Publisher
	Clock  types.Clock
	Log    *slog.Logger
}

type Service struct {
	store  Store
	routes Routes
	events notify.Publisher
	clock  types.Clock
	log    *slog.Logger
}

func NewService(deps Deps) *Service {
	s := &Service{
		store:  deps.Store,
		routes: deps.Routes,
		events: deps.Events,
		clock:  deps.Clock,
		log:    deps.Log,
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
	return s
}

type RequestPickupCommand struct {
	RiderID       types.ID
	RiderName     string
	RouteID       types.ID
	PickupPointID types.ID
}

type AcceptCommand struct {
	RequestID types.ID
	DriverID  types.ID
}

type RejectCommand struct {
	RequestID types.ID
	DriverID  types.ID
}

func (s *Service) RequestPickup(ctx context.Context, cmd RequestPickupCommand) (*Request, error) {
	if cmd.RiderID == "" || cmd.RouteID == "" || cmd.PickupPointID == "" {
		return nil, apperr.Validation("rider_id, route_id and pickup_point_id are required")
	}
	rt, err := s.routes.Get(ctx, cmd.RouteID)
	if err != nil {
		return nil, err
	}
	if !rt.IsActive {
		return nil, route.ErrNotFound
	}
	if rt.DriverID == cmd.RiderID {
		return nil, ErrOwnRoute
	}
	point, ok := rt.PickupPoint(cmd.PickupPointID)
	if !ok {
		return nil, ErrUnknownPickup
	}

	r := &Request{
		ID:             types.NewID(),
		RiderID:        cmd.RiderID,
		RiderName:      strings.TrimSpace(cmd.RiderName),
		DriverID:       rt.DriverID,
		DriverName:     rt.DriverName,
		RouteID:        rt.ID,
		PickupPointID:  point.ID,
		PickupLocation: point.Name,
		PickupTime:     point.EstimatedTime,
		Status:         StatusPending,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	observability.RequestsCreated.Inc()
	s.log.Info("ride requested", "request_id", r.ID, "route_id", r.RouteID, "rider_id", r.RiderID)
	s.events.Publish(ctx, s.event(notify.RequestCreated, r))
	return r, nil
}

// Accept takes a seat for the request. If the route filled up since the request was made,
// the request is rejected with ReasonCapacityExhausted and ErrCapacity is returned.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Request, error) {
	if _, err := s.decidable(ctx, cmd.RequestID, cmd.DriverID, StatusAccepted); err != nil {
		return nil, err
	}
	updated, err := s.store.Accept(ctx, cmd.RequestID, s.clock.Now())
	if errors.Is(err, ErrCapacity) && updated != nil {
		s.recordDecision(ctx, updated)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	s.recordDecision(ctx, updated)
	return updated, nil
}

func (s *Service) Reject(ctx context.Context, cmd RejectCommand) (*Request, error) {
	if _, err := s.decidable(ctx, cmd.RequestID, cmd.DriverID, StatusRejected); err != nil {
		return nil, err
	}
	updated, err := s.store.Reject(ctx, cmd.RequestID, ReasonDriverRejected, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.recordDecision(ctx, updated)
	return updated, nil
}

func (s *Service) decidable(ctx context.Context, id, driverID types.ID, to Status) (*Request, error) {
	if id == "" || driverID == "" {
		return nil, apperr.Validation("request id and driver_id are required")
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.DriverID != driverID {
		return nil, ErrNotOwner
	}
	if !CanTransition(r.Status, to) {
		return nil, ErrInvalidState
	}
	return r, nil
}

func (s *Service) recordDecision(ctx context.Context, r *Request) {
	observability.RequestDecisions.WithLabelValues(string(r.Status), string(r.Reason)).Inc()
	s.log.Info("ride request decided", "request_id", r.ID, "route_id", r.RouteID, "status", r.Status, "reason", r.Reason)
	typ := notify.RequestAccepted
	if r.Status == StatusRejected {
		typ = notify.RequestRejected
	}
	s.events.Publish(ctx, s.event(typ, r))
}

func (s *Service) event(t notify.EventType, r *Request) notify.Event {
	at := r.CreatedAt
	if r.DecidedAt != nil {
		at = *r.DecidedAt
	}
	return notify.Event{
		Type:       t,
		RouteID:    r.RouteID,
		RequestID:  r.ID,
		DriverID:   r.DriverID,
		RiderID:    r.RiderID,
		Reason:     string(r.Reason),
		OccurredAt: at,
		Payload:    r.Clone(),
	}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Request, error) {
	return s.store.Get(ctx, id)
}

// ListForDriver returns the driver's pending requests, earliest first.
func (s *Service) ListForDriver(ctx context.Context, driverID types.ID) ([]*Request, error) {
	if driverID == "" {
		return nil, apperr.Validation("driver_id is required")
	}
	return s.store.ListPendingByDriver(ctx, driverID)
}

func (s *Service) ListForRider(ctx context.Context, riderID types.ID) ([]*Request, error) {
	if riderID == "" {
		return nil, apperr.Validation("rider_id is required")
	}
	return s.store.ListByRider(ctx, riderID)
}
