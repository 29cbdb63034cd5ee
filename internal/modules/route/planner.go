// README: Pickup ETA planners; fixed-interval offsets and a directions-backed variant.
package route

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campuspool/internal/logging"
	"campuspool/internal/types"
)

const DefaultStopInterval = 10 * time.Minute

type PlanInput struct {
	Departure   types.TimeOfDay
	Origin      string
	Destination string
	Stops       []string
}

// OffsetPlanner returns one ETA per stop, in stop order.
type OffsetPlanner interface {
	Plan(ctx context.Context, in PlanInput) ([]types.TimeOfDay, error)
}

// FixedIntervalPlanner places stop i of n at departure - (n-i)*Interval.
type FixedIntervalPlanner struct {
	Interval time.Duration
}

func (p FixedIntervalPlanner) Plan(_ context.Context, in PlanInput) ([]types.TimeOfDay, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultStopInterval
	}
	n := len(in.Stops)
	out := make([]types.TimeOfDay, n)
	for i := range in.Stops {
		out[i] = in.Departure.Add(-time.Duration(n-i) * interval)
	}
	return out, nil
}

// LegEstimator returns travel time for each leg stops[0]->stops[1] ... stops[n-1]->destination.
type LegEstimator interface {
	LegDurations(ctx context.Context, stops []string, destination string) ([]time.Duration, error)
}

// LegPlanner works backwards from departure using estimated leg durations,
// falling back to another planner when the estimator fails.
type LegPlanner struct {
	legs     LegEstimator
	fallback OffsetPlanner
	log      *slog.Logger
}

func NewLegPlanner(legs LegEstimator, fallback OffsetPlanner, log *slog.Logger) *LegPlanner {
	if log == nil {
		log = logging.Discard()
	}
	return &LegPlanner{legs: legs, fallback: fallback, log: log}
}

func (p *LegPlanner) Plan(ctx context.Context, in PlanInput) ([]types.TimeOfDay, error) {
	durations, err := p.legs.LegDurations(ctx, in.Stops, in.Destination)
	if err == nil && len(durations) != len(in.Stops) {
		err = errLegCount
	}
	if err != nil {
		p.log.Warn("leg estimate failed; using fixed interval", "destination", in.Destination, "err", err)
		return p.fallback.Plan(ctx, in)
	}
	out := make([]types.TimeOfDay, len(in.Stops))
	at := in.Departure
	for i := len(in.Stops) - 1; i >= 0; i-- {
		at = at.Add(-durations[i].Round(time.Minute))
		out[i] = at
	}
	return out, nil
}

var errLegCount = errors.New("leg count does not match stop count")
