// README: Postgres-backed route store tests.
package route_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campuspool/internal/infra/pgtest"
	"campuspool/internal/modules/route"
	"campuspool/internal/types"
)

func newPgService(t *testing.T) *route.Service {
	t.Helper()
	db := pgtest.Open(t)
	return route.NewService(route.Deps{
		Store: route.NewPgStore(db),
		Clock: types.NewManualClock(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)),
	})
}

func TestPgStoreRoundTripAndConflict(t *testing.T) {
	svc := newPgService(t)
	ctx := context.Background()

	cmd := draft("pg_d1", "8:30 AM", 3)
	cmd.Vehicle = &route.Vehicle{Make: "Maruti", Model: "Swift", Color: "White", Plate: "KA01AB1234"}
	r, err := svc.Publish(ctx, cmd)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	got, err := svc.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DepartureTime != r.DepartureTime || len(got.PickupPoints) != 3 || got.Vehicle == nil || got.Vehicle.Plate != "KA01AB1234" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.PickupPoints[0].EstimatedTime.String() != "8:00 AM" {
		t.Fatalf("eta lost in round trip: %+v", got.PickupPoints[0])
	}
	if _, err := svc.Publish(ctx, draft("pg_d1", "6:00 PM", 2)); !errors.Is(err, route.ErrActiveRoute) {
		t.Fatalf("expected ErrActiveRoute, got %v", err)
	}
}

func TestPgStoreConcurrentDecrement(t *testing.T) {
	svc := newPgService(t)
	ctx := context.Background()
	r, err := svc.Publish(ctx, draft("pg_d2", "8:30 AM", 1))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.DecrementSeats(ctx, r.ID, 1)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
		} else if !errors.Is(err, route.ErrCapacity) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
}
