// README: Rating service tests (submit rules + driver score).
package rating_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"campuspool/internal/apperr"
	"campuspool/internal/infra/memstore"
	"campuspool/internal/modules/rating"
	"campuspool/internal/modules/request"
	"campuspool/internal/modules/route"
	"campuspool/internal/types"
)

type fixture struct {
	routes   *route.Service
	requests *request.Service
	ratings  *rating.Service
	clock    *types.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := memstore.New()
	return newFixtureWith(t, backend.Routes(), backend.Requests(), backend.Ratings())
}

func newFixtureWith(t *testing.T, routeStore route.Store, requestStore request.Store, ratingStore rating.Store) *fixture {
	t.Helper()
	clock := types.NewManualClock(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))
	routes := route.NewService(route.Deps{Store: routeStore, Clock: clock})
	requests := request.NewService(request.Deps{Store: requestStore, Routes: routes, Clock: clock})
	ratings := rating.NewService(rating.Deps{Store: ratingStore, Requests: requests, Clock: clock})
	return &fixture{routes: routes, requests: requests, ratings: ratings, clock: clock}
}

// ride publishes a route for driver and returns an accepted and a pending request on it.
func (f *fixture) ride(t *testing.T, driver types.ID) (accepted, pending *request.Request) {
	t.Helper()
	ctx := context.Background()
	r, err := f.routes.Publish(ctx, route.PublishCommand{
		DriverID:      driver,
		DriverName:    "Ravi",
		Origin:        "Jayanagar",
		Destination:   "Main Campus",
		DepartureTime: "8:30 AM",
		Direction:     route.ToCollege,
		Seats:         3,
		PickupPoints:  []route.PickupPointInput{{Name: "South End Circle"}},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	mk := func(rider types.ID) *request.Request {
		req, err := f.requests.RequestPickup(ctx, request.RequestPickupCommand{
			RiderID: rider, RouteID: r.ID, PickupPointID: r.PickupPoints[0].ID,
		})
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		return req
	}
	accepted = mk(driver + "_u1")
	pending = mk(driver + "_u2")
	if _, err := f.requests.Accept(ctx, request.AcceptCommand{RequestID: accepted.ID, DriverID: driver}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	return accepted, pending
}

func TestComputeScore(t *testing.T) {
	cases := []struct {
		name    string
		ratings []*rating.Rating
		want    float64
	}{
		{"none", nil, 0},
		{"single", []*rating.Rating{{Smoothness: 8, Comfort: 6}}, 3.5},
		{"rounded", []*rating.Rating{{Smoothness: 8, Comfort: 6}, {Smoothness: 10, Comfort: 9}}, 4.1},
		{"perfect", []*rating.Rating{{Smoothness: 10, Comfort: 10}}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rating.ComputeScore("d1", tc.ratings)
			if got.Average != tc.want || got.Count != len(tc.ratings) {
				t.Fatalf("got %+v, want average %v", got, tc.want)
			}
		})
	}
}

func TestSubmitRecordsRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accepted, _ := f.ride(t, "d1")

	r, err := f.ratings.Submit(ctx, rating.SubmitCommand{
		RequestID:  accepted.ID,
		RiderID:    accepted.RiderID,
		Smoothness: 9,
		Comfort:    7,
		Amenities:  []string{"AC", "ac", "Music"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r.DriverID != "d1" || len(r.Amenities) != 2 {
		t.Fatalf("unexpected rating %+v", r)
	}

	score, err := f.ratings.DriverScore(ctx, "d1")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score.Count != 1 || score.Average != 4 {
		t.Fatalf("unexpected score %+v", score)
	}
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accepted, pending := f.ride(t, "d1")
	if _, err := f.ratings.Submit(ctx, rating.SubmitCommand{
		RequestID: accepted.ID, RiderID: accepted.RiderID, Smoothness: 5, Comfort: 5,
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	cases := []struct {
		name string
		cmd  rating.SubmitCommand
		want error
	}{
		{"missing rider", rating.SubmitCommand{RequestID: accepted.ID, Smoothness: 5, Comfort: 5}, apperr.ErrValidation},
		{"score too low", rating.SubmitCommand{RequestID: accepted.ID, RiderID: accepted.RiderID, Smoothness: 0, Comfort: 5}, apperr.ErrValidation},
		{"score too high", rating.SubmitCommand{RequestID: accepted.ID, RiderID: accepted.RiderID, Smoothness: 5, Comfort: 11}, apperr.ErrValidation},
		{"unknown request", rating.SubmitCommand{RequestID: "nope", RiderID: "u", Smoothness: 5, Comfort: 5}, request.ErrNotFound},
		{"someone else's ride", rating.SubmitCommand{RequestID: accepted.ID, RiderID: "intruder", Smoothness: 5, Comfort: 5}, rating.ErrNotRider},
		{"pending ride", rating.SubmitCommand{RequestID: pending.ID, RiderID: pending.RiderID, Smoothness: 5, Comfort: 5}, rating.ErrNotRatable},
		{"already rated", rating.SubmitCommand{RequestID: accepted.ID, RiderID: accepted.RiderID, Smoothness: 5, Comfort: 5}, rating.ErrDuplicate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.ratings.Submit(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestListForDriverNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, second := f.ride(t, "d1")
	other, _ := f.ride(t, "d2")
	if _, err := f.ratings.Submit(ctx, rating.SubmitCommand{RequestID: first.ID, RiderID: first.RiderID, Smoothness: 4, Comfort: 4}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.ratings.Submit(ctx, rating.SubmitCommand{RequestID: other.ID, RiderID: other.RiderID, Smoothness: 9, Comfort: 9}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.clock.Advance(time.Hour)
	if _, err := f.requests.Accept(ctx, request.AcceptCommand{RequestID: second.ID, DriverID: "d1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.ratings.Submit(ctx, rating.SubmitCommand{RequestID: second.ID, RiderID: second.RiderID, Smoothness: 6, Comfort: 6}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := f.ratings.ListForDriver(ctx, "d1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].RequestID != second.ID || got[1].RequestID != first.ID {
		t.Fatalf("unexpected order %+v", got)
	}
	score, _ := f.ratings.DriverScore(ctx, "d1")
	if score.Average != 2.5 || score.Count != 2 {
		t.Fatalf("unexpected score %+v", score)
	}
	if _, err := f.ratings.ListForDriver(ctx, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
