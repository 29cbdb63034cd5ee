// README: Subscription tests; tier purchase and ride-credit draw-down on accept.
package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"campuspool/internal/apperr"
	"campuspool/internal/infra/memstore"
	"campuspool/internal/modules/request"
	"campuspool/internal/modules/route"
	"campuspool/internal/modules/subscription"
	"campuspool/internal/types"
)

type fixture struct {
	routes        *route.Service
	requests      *request.Service
	subscriptions *subscription.Service
	clock         *types.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := memstore.New()
	return newFixtureWith(t, backend.Routes(), backend.Requests(), backend.Subscriptions())
}

func newFixtureWith(t *testing.T, routeStore route.Store, requestStore request.Store, subStore subscription.Store) *fixture {
	t.Helper()
	clock := types.NewManualClock(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))
	routes := route.NewService(route.Deps{Store: routeStore, Clock: clock})
	return &fixture{
		routes:        routes,
		requests:      request.NewService(request.Deps{Store: requestStore, Routes: routes, Clock: clock}),
		subscriptions: subscription.NewService(subscription.Deps{Store: subStore, Clock: clock}),
		clock:         clock,
	}
}

// ride publishes a route for driver with the given seats and has rider request a seat on it.
func (f *fixture) ride(t *testing.T, driver, rider types.ID, seats int) *request.Request {
	t.Helper()
	ctx := context.Background()
	r, err := f.routes.Publish(ctx, route.PublishCommand{
		DriverID:      driver,
		DriverName:    "Kiran",
		Origin:        "HSR Layout",
		Destination:   "Main Campus",
		DepartureTime: "9:00 AM",
		Direction:     route.ToCollege,
		Seats:         seats,
		PickupPoints:  []route.PickupPointInput{{Name: "Agara Lake"}},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	req, err := f.requests.RequestPickup(ctx, request.RequestPickupCommand{
		RiderID: rider, RouteID: r.ID, PickupPointID: r.PickupPoints[0].ID,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return req
}

func (f *fixture) accept(t *testing.T, req *request.Request) *request.Request {
	t.Helper()
	got, err := f.requests.Accept(context.Background(), request.AcceptCommand{RequestID: req.ID, DriverID: req.DriverID})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return got
}

func (f *fixture) remaining(t *testing.T, user types.ID) map[types.ID]int {
	t.Helper()
	subs, err := f.subscriptions.ListForUser(context.Background(), user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	out := make(map[types.ID]int, len(subs))
	for _, s := range subs {
		out[s.ID] = s.RidesRemaining
	}
	return out
}

func TestSubscribeUsesTierCatalog(t *testing.T) {
	f := newFixture(t)
	sub, err := f.subscriptions.Subscribe(context.Background(), subscription.SubscribeCommand{UserID: "u1", Tier: "mid_terms"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.TierName != "Mid-Terms" || sub.RidesTotal != 30 || sub.RidesRemaining != 30 || sub.Price.Amount != 799 {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if want := f.clock.Now().AddDate(0, 3, 0); !sub.ValidUntil.Equal(want) {
		t.Fatalf("valid until %v, want %v", sub.ValidUntil, want)
	}
}

func TestSubscribeErrors(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		cmd  subscription.SubscribeCommand
		want error
	}{
		{"missing user", subscription.SubscribeCommand{Tier: "quick_hitch"}, apperr.ErrValidation},
		{"missing tier", subscription.SubscribeCommand{UserID: "u1", Tier: " "}, apperr.ErrValidation},
		{"unknown tier", subscription.SubscribeCommand{UserID: "u1", Tier: "platinum"}, subscription.ErrUnknownTier},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.subscriptions.Subscribe(context.Background(), tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestListForUserNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older, _ := f.subscriptions.Subscribe(ctx, subscription.SubscribeCommand{UserID: "u1", Tier: "quick_hitch"})
	f.clock.Advance(time.Hour)
	newer, _ := f.subscriptions.Subscribe(ctx, subscription.SubscribeCommand{UserID: "u1", Tier: "deans_list"})
	_, _ = f.subscriptions.Subscribe(ctx, subscription.SubscribeCommand{UserID: "u2", Tier: "quick_hitch"})

	subs, err := f.subscriptions.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != newer.ID || subs[1].ID != older.ID {
		t.Fatalf("unexpected order %+v", subs)
	}
	if _, err := f.subscriptions.ListForUser(ctx, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAcceptDrawsFromSubscriptionExpiringFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long, _ := f.subscriptions.Subscribe(ctx, subscription.SubscribeCommand{UserID: "u1", Tier: "deans_list"})
	short, _ := f.subscriptions.Subscribe(ctx, subscription.SubscribeCommand{UserID: "u1", Tier: "quick_hitch"})

	accepted := f.accept(t, f.ride(t, "d1", "u1", 2))
	if accepted.SubscriptionID != short.ID {
		t.Fatalf("ride paid from %q, want %q", accepted.SubscriptionID, short.ID)
	}
	left := f.remaining(t, "u1")
	if left[short.ID] != 9 || left[long.ID] != 100 {
		t.Fatalf("unexpected credits %+v", left)
	}
}

func TestAcceptWithoutUsableSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, _ := f.subscriptions.Subscribe(ctx, subscription.SubscribeCommand{UserID: "u1", Tier: "quick_hitch"})
	f.clock.Advance(45 * 24 * time.Hour)

	accepted := f.accept(t, f.ride(t, "d1", "u1", 2))
	if accepted.SubscriptionID != "" {
		t.Fatalf("expired subscription was charged: %+v", accepted)
	}
	if left := f.remaining(t, "u1"); left[sub.ID] != 10 {
		t.Fatalf("expired subscription changed: %+v", left)
	}

	if got := f.accept(t, f.ride(t, "d2", "u2", 2)); got.SubscriptionID != "" {
		t.Fatalf("rider without subscription was charged: %+v", got)
	}
}

func TestCapacityRejectionKeepsCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, _ := f.subscriptions.Subscribe(ctx, subscription.SubscribeCommand{UserID: "u2", Tier: "quick_hitch"})

	first := f.ride(t, "d1", "u1", 1)
	second, err := f.requests.RequestPickup(ctx, request.RequestPickupCommand{
		RiderID: "u2", RouteID: first.RouteID, PickupPointID: first.PickupPointID,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	f.accept(t, first)
	if _, err := f.requests.Accept(ctx, request.AcceptCommand{RequestID: second.ID, DriverID: "d1"}); !errors.Is(err, request.ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if left := f.remaining(t, "u2"); left[sub.ID] != 10 {
		t.Fatalf("rejected ride consumed a credit: %+v", left)
	}
}

func TestPickSkipsExhaustedAndExpired(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	subs := []*subscription.Subscription{
		{ID: "spent", RidesRemaining: 0, ValidUntil: now.Add(time.Hour)},
		{ID: "expired", RidesRemaining: 5, ValidUntil: now},
		{ID: "later", RidesRemaining: 5, ValidUntil: now.Add(48 * time.Hour)},
		{ID: "sooner", RidesRemaining: 1, ValidUntil: now.Add(24 * time.Hour)},
	}
	if got := subscription.Pick(subs, now); got == nil || got.ID != "sooner" {
		t.Fatalf("picked %+v", got)
	}
	if got := subscription.Pick(subs[:2], now); got != nil {
		t.Fatalf("expected nothing usable, got %+v", got)
	}
}
