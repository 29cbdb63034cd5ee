// README: Rating service; riders rate accepted rides and drivers accumulate a score.
package rating

import (
	"context"
	"log/slog"

	"campuspool/internal/apperr"
	"campuspool/internal/logging"
	"campuspool/internal/modules/request"
	"campuspool/internal/modules/route"
	"campuspool/internal/types"
)

type Requests interface {
	Get(ctx context.Context, id types.ID) (*request.Request, error)
}

type Deps struct {
	Store    Store
	Requests Requests
	Clock    types.Clock
	Log      *slog.Logger
}

type Service struct {
	store    Store
	requests Requests
	clock    types.Clock
	log      *slog.Logger
}

func NewService(deps Deps) *Service {
	s := &Service{store: deps.Store, requests: deps.Requests, clock: deps.Clock, log: deps.Log}
	if s.clock == nil {
		s.clock = types.SystemClock{}
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	return s
}

type SubmitCommand struct {
	RequestID  types.ID
	RiderID    types.ID
	Smoothness int
	Comfort    int
	Amenities  []string
}

func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*Rating, error) {
	if cmd.RequestID == "" || cmd.RiderID == "" {
		return nil, apperr.Validation("request_id and rider_id are required")
	}
	if !inRange(cmd.Smoothness) || !inRange(cmd.Comfort) {
		return nil, apperr.Validation("smoothness and comfort must be between %d and %d", MinScore, MaxScore)
	}
	req, err := s.requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if req.RiderID != cmd.RiderID {
		return nil, ErrNotRider
	}
	if req.Status != request.StatusAccepted {
		return nil, ErrNotRatable
	}

	r := &Rating{
		ID:         types.NewID(),
		RequestID:  req.ID,
		RiderID:    req.RiderID,
		DriverID:   req.DriverID,
		Smoothness: cmd.Smoothness,
		Comfort:    cmd.Comfort,
		Amenities:  route.NormalizeAmenities(cmd.Amenities),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("ride rated", "request_id", r.RequestID, "driver_id", r.DriverID)
	return r, nil
}

func (s *Service) ListForDriver(ctx context.Context, driverID types.ID) ([]*Rating, error) {
	if driverID == "" {
		return nil, apperr.Validation("driver_id is required")
	}
	return s.store.ListForDriver(ctx, driverID)
}

func (s *Service) DriverScore(ctx context.Context, driverID types.ID) (Score, error) {
	ratings, err := s.ListForDriver(ctx, driverID)
	if err != nil {
		return Score{}, err
	}
	return ComputeScore(driverID, ratings), nil
}

func inRange(v int) bool { return v >= MinScore && v <= MaxScore }
