// README: Route registry service: publish, deactivate with cascade, listing and seat accounting.
package route

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"campuspool/internal/apperr"
	"campuspool/internal/logging"
	"campuspool/internal/notify"
	"campuspool/internal/observability"
	"campuspool/internal/types"
)

const DefaultMaxSeats = 6

type Deps struct {
	Store    Store
	Planner  OffsetPlanner
	Events   notify.Publisher
	Clock    types.Clock
	Log      *slog.Logger
	MaxSeats int
}

type Service struct {
	store    Store
	planner  OffsetPlanner
	events   notify.Publisher
	clock    types.Clock
	log      *slog.Logger
	maxSeats int
}

func NewService(deps Deps) *Service {
	s := &Service{
		store:    deps.Store,
		planner:  deps.Planner,
		events:   deps.Events,
		clock:    deps.Clock,
		log:      deps.Log,
		maxSeats: deps.MaxSeats,
	}
	if s.planner == nil {
		s.planner = FixedIntervalPlanner{Interval: DefaultStopInterval}
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
	if s.maxSeats < 1 {
		s.maxSeats = DefaultMaxSeats
	}
	return s
}

type PickupPointInput struct {
	Name     string
	Landmark string
}

type PublishCommand struct {
	DriverID      types.ID
	DriverName    string
	Origin        string
	Destination   string
	DepartureTime string
	Direction     Direction
	Seats         int
	PricePerSeat  int64
	Currency      string
	Amenities     []string
	Vehicle       *Vehicle
	PickupPoints  []PickupPointInput
}

type DeactivateCommand struct {
	RouteID  types.ID
	DriverID types.ID
}

func (s *Service) Publish(ctx context.Context, cmd PublishCommand) (*Route, error) {
	departure, err := s.validatePublish(cmd)
	if err != nil {
		return nil, err
	}

	stops := make([]string, len(cmd.PickupPoints))
	for i, p := range cmd.PickupPoints {
		stops[i] = strings.TrimSpace(p.Name)
	}
	etas, err := s.planner.Plan(ctx, PlanInput{
		Departure:   departure,
		Origin:      strings.TrimSpace(cmd.Origin),
		Destination: strings.TrimSpace(cmd.Destination),
		Stops:       stops,
	})
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(etas); i++ {
		if etas[i] < etas[i-1] {
			return nil, apperr.Validation("pickup schedule for departure %s crosses midnight", departure)
		}
	}

	points := make([]PickupPoint, len(stops))
	for i, name := range stops {
		points[i] = PickupPoint{
			ID:            types.NewID(),
			Name:          name,
			Landmark:      strings.TrimSpace(cmd.PickupPoints[i].Landmark),
			EstimatedTime: etas[i],
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(cmd.Currency))
	if currency == "" {
		currency = types.DefaultCurrency
	}

	r := &Route{
		ID:             types.NewID(),
		DriverID:       cmd.DriverID,
		DriverName:     strings.TrimSpace(cmd.DriverName),
		Origin:         strings.TrimSpace(cmd.Origin),
		Destination:    strings.TrimSpace(cmd.Destination),
		DepartureTime:  departure,
		Direction:      cmd.Direction,
		AvailableSeats: cmd.Seats,
		TotalSeats:     cmd.Seats,
		PricePerSeat:   types.Money{Amount: cmd.PricePerSeat, Currency: currency},
		Amenities:      NormalizeAmenities(cmd.Amenities),
		Vehicle:        cmd.Vehicle,
		PickupPoints:   points,
		IsActive:       true,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	observability.RoutesPublished.Inc()
	s.log.Info("route published", "route_id", r.ID, "driver_id", r.DriverID, "seats", r.TotalSeats, "stops", len(points))
	s.events.Publish(ctx, notify.Event{
		Type:       notify.RoutePublished,
		RouteID:    r.ID,
		DriverID:   r.DriverID,
		OccurredAt: r.CreatedAt,
		Payload:    r.Clone(),
	})
	return r, nil
}

func (s *Service) validatePublish(cmd PublishCommand) (types.TimeOfDay, error) {
	if cmd.DriverID == "" {
		return 0, apperr.Validation("driver_id is required")
	}
	if strings.TrimSpace(cmd.Origin) == "" || strings.TrimSpace(cmd.Destination) == "" {
		return 0, apperr.Validation("origin and destination are required")
	}
	departure, err := types.ParseTimeOfDay(cmd.DepartureTime)
	if err != nil {
		return 0, apperr.Validation("departure_time: %v", err)
	}
	if !cmd.Direction.Valid() {
		return 0, apperr.Validation("direction must be %q or %q", ToCollege, FromCollege)
	}
	if cmd.Seats < 1 || cmd.Seats > s.maxSeats {
		return 0, apperr.Validation("seats must be between 1 and %d", s.maxSeats)
	}
	if cmd.PricePerSeat < 0 {
		return 0, apperr.Validation("price_per_seat must not be negative")
	}
	if len(cmd.PickupPoints) == 0 {
		return 0, apperr.Validation("at least one pickup point is required")
	}
	for i, p := range cmd.PickupPoints {
		if strings.TrimSpace(p.Name) == "" {
			return 0, apperr.Validation("pickup point %d has no name", i+1)
		}
	}
	return departure, nil
}

func (s *Service) Deactivate(ctx context.Context, cmd DeactivateCommand) error {
	r, err := s.store.Get(ctx, cmd.RouteID)
	if err != nil {
		return err
	}
	if r.DriverID != cmd.DriverID {
		return ErrNotOwner
	}
	if !r.IsActive {
		return nil
	}
	now := s.clock.Now()
	cancelled, changed, err := s.store.Deactivate(ctx, r.ID, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	observability.RoutesCancelled.Inc()
	s.log.Info("route deactivated", "route_id", r.ID, "driver_id", r.DriverID, "cascaded", len(cancelled))
	s.events.Publish(ctx, notify.Event{
		Type:       notify.RouteCancelled,
		RouteID:    r.ID,
		DriverID:   r.DriverID,
		OccurredAt: now,
	})
	for _, c := range cancelled {
		observability.RequestDecisions.WithLabelValues("rejected", "route_cancelled").Inc()
		s.events.Publish(ctx, notify.Event{
			Type:       notify.RequestRejected,
			RouteID:    r.ID,
			RequestID:  c.ID,
			DriverID:   r.DriverID,
			RiderID:    c.RiderID,
			Reason:     "route_cancelled",
			OccurredAt: now,
		})
	}
	return nil
}

// ListActive returns active routes ordered by departure time, then creation time, then id.
func (s *Service) ListActive(ctx context.Context) ([]*Route, error) {
	routes, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(routes, func(i, j int) bool { return Less(routes[i], routes[j]) })
	return routes, nil
}

func (s *Service) ListByDriver(ctx context.Context, driverID types.ID) ([]*Route, error) {
	if driverID == "" {
		return nil, apperr.Validation("driver_id is required")
	}
	return s.store.ListByDriver(ctx, driverID)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Route, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) DecrementSeats(ctx context.Context, id types.ID, count int) (*Route, error) {
	if count < 1 {
		return nil, apperr.Validation("count must be at least 1")
	}
	return s.store.DecrementSeats(ctx, id, count)
}
