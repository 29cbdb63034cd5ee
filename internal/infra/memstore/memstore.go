// README: In-memory backend for routes, requests, ratings and subscriptions; one lock keeps cross-entity updates atomic.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"campuspool/internal/modules/rating"
	"campuspool/internal/modules/request"
	"campuspool/internal/modules/route"
	"campuspool/internal/modules/subscription"
	"campuspool/internal/types"
)

// Backend serializes every mutation under mu; reads take the read lock and return copies.
type Backend struct {
	mu       sync.RWMutex
	routes   map[types.ID]*route.Route
	requests map[types.ID]*request.Request
	ratings  map[types.ID]*rating.Rating
	subs     map[types.ID]*subscription.Subscription
}

func New() *Backend {
	return &Backend{
		routes:   make(map[types.ID]*route.Route),
		requests: make(map[types.ID]*request.Request),
		ratings:  make(map[types.ID]*rating.Rating),
		subs:     make(map[types.ID]*subscription.Subscription),
	}
}

func (b *Backend) Routes() route.Store               { return routeStore{b} }
func (b *Backend) Requests() request.Store           { return requestStore{b} }
func (b *Backend) Ratings() rating.Store             { return ratingStore{b} }
func (b *Backend) Subscriptions() subscription.Store { return subscriptionStore{b} }

type routeStore struct{ b *Backend }

func (s routeStore) Create(_ context.Context, r *route.Route) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for _, existing := range s.b.routes {
		if existing.DriverID == r.DriverID && existing.IsActive {
			return route.ErrActiveRoute
		}
	}
	s.b.routes[r.ID] = r.Clone()
	return nil
}

func (s routeStore) Get(_ context.Context, id types.ID) (*route.Route, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	r, ok := s.b.routes[id]
	if !ok {
		return nil, route.ErrNotFound
	}
	return r.Clone(), nil
}

func (s routeStore) ListActive(_ context.Context) ([]*route.Route, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	out := make([]*route.Route, 0, len(s.b.routes))
	for _, r := range s.b.routes {
		if r.IsActive {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return route.Less(out[i], out[j]) })
	return out, nil
}

func (s routeStore) ListByDriver(_ context.Context, driverID types.ID) ([]*route.Route, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	var out []*route.Route
	for _, r := range s.b.routes {
		if r.DriverID == driverID {
			out = append(out, r.Clone())
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

func (s routeStore) Deactivate(_ context.Context, id types.ID, at time.Time) ([]route.CancelledRequest, bool, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, ok := s.b.routes[id]
	if !ok {
		return nil, false, route.ErrNotFound
	}
	if !r.IsActive {
		return nil, false, nil
	}
	r.IsActive = false

	var cancelled []route.CancelledRequest
	for _, req := range s.b.requests {
		if req.RouteID != id || req.Status != request.StatusPending {
			continue
		}
		decideLocked(req, request.StatusRejected, request.ReasonRouteCancelled, at)
		cancelled = append(cancelled, route.CancelledRequest{ID: req.ID, RiderID: req.RiderID})
	}
	sort.Slice(cancelled, func(i, j int) bool { return cancelled[i].ID < cancelled[j].ID })
	return cancelled, true, nil
}

func (s routeStore) DecrementSeats(_ context.Context, id types.ID, count int) (*route.Route, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, err := s.b.decrementLocked(id, count)
	if err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

func (b *Backend) decrementLocked(id types.ID, count int) (*route.Route, error) {
	r, ok := b.routes[id]
	if !ok || !r.IsActive {
		return nil, route.ErrNotFound
	}
	if count > r.AvailableSeats {
		return nil, route.ErrCapacity
	}
	r.AvailableSeats -= count
	return r, nil
}

type requestStore struct{ b *Backend }

func (s requestStore) Create(_ context.Context, r *request.Request) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	rt, ok := s.b.routes[r.RouteID]
	if !ok || !rt.IsActive {
		return route.ErrNotFound
	}
	for _, existing := range s.b.requests {
		if existing.RiderID != r.RiderID || existing.RouteID != r.RouteID {
			continue
		}
		if existing.Status == request.StatusPending || existing.Status == request.StatusAccepted {
			return request.ErrDuplicate
		}
	}
	if rt.AvailableSeats == 0 {
		return request.ErrCapacity
	}
	s.b.requests[r.ID] = r.Clone()
	return nil
}

func (s requestStore) Get(_ context.Context, id types.ID) (*request.Request, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	r, ok := s.b.requests[id]
	if !ok {
		return nil, request.ErrNotFound
	}
	return r.Clone(), nil
}

func (s requestStore) ListPendingByDriver(_ context.Context, driverID types.ID) ([]*request.Request, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	var out []*request.Request
	for _, r := range s.b.requests {
		if r.DriverID == driverID && r.Status == request.StatusPending {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s requestStore) ListByRider(_ context.Context, riderID types.ID) ([]*request.Request, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	var out []*request.Request
	for _, r := range s.b.requests {
		if r.RiderID == riderID {
			out = append(out, r.Clone())
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

func (s requestStore) Accept(_ context.Context, id types.ID, at time.Time) (*request.Request, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, err := s.b.pendingLocked(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.b.decrementLocked(r.RouteID, 1); err != nil {
		if err != route.ErrCapacity {
			return nil, err
		}
		decideLocked(r, request.StatusRejected, request.ReasonCapacityExhausted, at)
		return r.Clone(), request.ErrCapacity
	}
	decideLocked(r, request.StatusAccepted, request.ReasonNone, at)
	if credit := s.b.consumeRideLocked(r.RiderID, at); credit != nil {
		r.SubscriptionID = credit.ID
	}
	return r.Clone(), nil
}

func (s requestStore) Reject(_ context.Context, id types.ID, reason request.Reason, at time.Time) (*request.Request, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, err := s.b.pendingLocked(id)
	if err != nil {
		return nil, err
	}
	decideLocked(r, request.StatusRejected, reason, at)
	return r.Clone(), nil
}

func (b *Backend) pendingLocked(id types.ID) (*request.Request, error) {
	r, ok := b.requests[id]
	if !ok {
		return nil, request.ErrNotFound
	}
	if r.Status != request.StatusPending {
		return nil, request.ErrInvalidState
	}
	return r, nil
}

func decideLocked(r *request.Request, to request.Status, reason request.Reason, at time.Time) {
	r.Status = to
	r.Reason = reason
	t := at
	r.DecidedAt = &t
}

type ratingStore struct{ b *Backend }

func (s ratingStore) Create(_ context.Context, r *rating.Rating) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for _, existing := range s.b.ratings {
		if existing.RequestID == r.RequestID {
			return rating.ErrDuplicate
		}
	}
	c := *r
	c.Amenities = append([]string(nil), r.Amenities...)
	s.b.ratings[r.ID] = &c
	return nil
}

func (s ratingStore) ListForDriver(_ context.Context, driverID types.ID) ([]*rating.Rating, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	var out []*rating.Rating
	for _, r := range s.b.ratings {
		if r.DriverID == driverID {
			c := *r
			c.Amenities = append([]string(nil), r.Amenities...)
			out = append(out, &c)
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

type subscriptionStore struct{ b *Backend }

func (s subscriptionStore) Create(_ context.Context, sub *subscription.Subscription) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.subs[sub.ID] = sub.Clone()
	return nil
}

func (s subscriptionStore) ListByUser(_ context.Context, userID types.ID) ([]*subscription.Subscription, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	var out []*subscription.Subscription
	for _, sub := range s.b.subs {
		if sub.UserID == userID {
			out = append(out, sub.Clone())
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

func (b *Backend) consumeRideLocked(userID types.ID, at time.Time) *subscription.Subscription {
	var held []*subscription.Subscription
	for _, sub := range b.subs {
		if sub.UserID == userID {
			held = append(held, sub)
		}
	}
	credit := subscription.Pick(held, at)
	if credit != nil {
		credit.RidesRemaining--
	}
	return credit
}
