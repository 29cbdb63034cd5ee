// README: Broadcast coordinator tests (snapshot, expiry, sweeper).
package broadcast_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"campuspool/internal/apperr"
	"campuspool/internal/infra/memstore"
	"campuspool/internal/modules/broadcast"
	"campuspool/internal/modules/route"
	"campuspool/internal/notify"
	"campuspool/internal/types"
)

type fixture struct {
	routes     *route.Service
	broadcasts *broadcast.Service
	store      *broadcast.MemoryStore
	clock      *types.ManualClock
	events     *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := types.NewManualClock(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))
	events := &notify.Recorder{}
	routes := route.NewService(route.Deps{Store: memstore.New().Routes(), Clock: clock})
	store := broadcast.NewMemoryStore()
	svc := broadcast.NewService(broadcast.Deps{
		Store:         store,
		Routes:        routes,
		Events:        events,
		Clock:         clock,
		SweepInterval: 10 * time.Millisecond,
	})
	return &fixture{routes: routes, broadcasts: svc, store: store, clock: clock, events: events}
}

func (f *fixture) publish(t *testing.T, driver types.ID) *route.Route {
	t.Helper()
	r, err := f.routes.Publish(context.Background(), route.PublishCommand{
		DriverID:      driver,
		DriverName:    "Meera",
		Origin:        "Whitefield",
		Destination:   "East Campus",
		DepartureTime: "5:45 PM",
		Direction:     route.FromCollege,
		Seats:         2,
		Vehicle:       &route.Vehicle{Make: "Hyundai", Model: "i20", Color: "Red"},
		PickupPoints:  []route.PickupPointInput{{Name: "ITPL Gate"}},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return r
}

func TestBroadcastSnapshotsRoute(t *testing.T) {
	f := newFixture(t)
	r := f.publish(t, "d1")

	b, err := f.broadcasts.Broadcast(context.Background(), broadcast.BroadcastCommand{RouteID: r.ID, DriverID: "d1"})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if b.Origin != "Whitefield" || b.AvailableSeats != 2 || b.Vehicle == nil || b.Vehicle.Model != "i20" {
		t.Fatalf("unexpected snapshot %+v", b)
	}
	if got := b.ExpiresAt.Sub(b.CreatedAt); got != broadcast.DefaultTTL {
		t.Fatalf("ttl = %v, want %v", got, broadcast.DefaultTTL)
	}
	if got := f.events.OfType(notify.BroadcastCreated); len(got) != 1 || got[0].BroadcastID != b.ID {
		t.Fatalf("expected broadcast.created event, got %+v", got)
	}
}

func TestBroadcastErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.publish(t, "d1")
	gone := f.publish(t, "d2")
	if err := f.routes.Deactivate(ctx, route.DeactivateCommand{RouteID: gone.ID, DriverID: "d2"}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	cases := []struct {
		name string
		cmd  broadcast.BroadcastCommand
		want error
	}{
		{"missing route", broadcast.BroadcastCommand{DriverID: "d1"}, apperr.ErrValidation},
		{"negative ttl", broadcast.BroadcastCommand{RouteID: r.ID, DriverID: "d1", TTL: -time.Second}, apperr.ErrValidation},
		{"unknown route", broadcast.BroadcastCommand{RouteID: "nope", DriverID: "d1"}, route.ErrNotFound},
		{"inactive route", broadcast.BroadcastCommand{RouteID: gone.ID, DriverID: "d2"}, route.ErrNotFound},
		{"not owner", broadcast.BroadcastCommand{RouteID: r.ID, DriverID: "d2"}, apperr.ErrAuthorization},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.broadcasts.Broadcast(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
	if f.store.Len() != 0 {
		t.Fatalf("failed broadcasts were stored: %d", f.store.Len())
	}
}

func TestExpiredBroadcastHiddenWithoutSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.publish(t, "d1")
	if _, err := f.broadcasts.Broadcast(ctx, broadcast.BroadcastCommand{RouteID: r.ID, DriverID: "d1", TTL: time.Second}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	active, _ := f.broadcasts.ListActive(ctx)
	if len(active) != 1 {
		t.Fatalf("expected 1 active broadcast, got %d", len(active))
	}

	f.clock.Advance(time.Second)
	active, _ = f.broadcasts.ListActive(ctx)
	if len(active) != 0 {
		t.Fatalf("broadcast visible at its expiry instant: %+v", active)
	}
	if f.store.Len() != 1 {
		t.Fatal("listing must not delete broadcasts")
	}
}

func TestListActiveNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.publish(t, "d1")
	r2 := f.publish(t, "d2")
	older, _ := f.broadcasts.Broadcast(ctx, broadcast.BroadcastCommand{RouteID: r1.ID, DriverID: "d1"})
	f.clock.Advance(time.Minute)
	newer, _ := f.broadcasts.Broadcast(ctx, broadcast.BroadcastCommand{RouteID: r2.ID, DriverID: "d2"})

	active, err := f.broadcasts.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 || active[0].ID != newer.ID || active[1].ID != older.ID {
		t.Fatalf("unexpected order %+v", active)
	}
}

func TestSweepExpiredRemovesOnlyExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.publish(t, "d1")
	r2 := f.publish(t, "d2")
	_, _ = f.broadcasts.Broadcast(ctx, broadcast.BroadcastCommand{RouteID: r1.ID, DriverID: "d1", TTL: time.Minute})
	_, _ = f.broadcasts.Broadcast(ctx, broadcast.BroadcastCommand{RouteID: r2.ID, DriverID: "d2", TTL: time.Hour})

	f.clock.Advance(2 * time.Minute)
	n, err := f.broadcasts.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 || f.store.Len() != 1 {
		t.Fatalf("swept %d, left %d", n, f.store.Len())
	}
	if n, _ := f.broadcasts.SweepExpired(ctx); n != 0 {
		t.Fatalf("second sweep removed %d", n)
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	r := f.publish(t, "d1")
	_, _ = f.broadcasts.Broadcast(context.Background(), broadcast.BroadcastCommand{RouteID: r.ID, DriverID: "d1", TTL: time.Second})
	f.clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.broadcasts.RunSweeper(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for f.store.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never removed the expired broadcast")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
