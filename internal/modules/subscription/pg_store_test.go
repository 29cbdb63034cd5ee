// README: Postgres-backed subscription credit tests.
package subscription_test

import (
	"context"
	"sync"
	"testing"

	"campuspool/internal/infra/pgtest"
	"campuspool/internal/modules/request"
	"campuspool/internal/modules/route"
	"campuspool/internal/modules/subscription"
)

func TestPgAcceptDrawsOneCreditPerRide(t *testing.T) {
	db := pgtest.Open(t)
	f := newFixtureWith(t, route.NewPgStore(db), request.NewPgStore(db), subscription.NewPgStore(db))
	ctx := context.Background()
	sub, err := f.subscriptions.Subscribe(ctx, subscription.SubscribeCommand{UserID: "pg_u1", Tier: "quick_hitch"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	reqs := []*request.Request{f.ride(t, "pg_d1", "pg_u1", 2), f.ride(t, "pg_d2", "pg_u1", 2)}
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, len(reqs))
	for _, req := range reqs {
		wg.Add(1)
		go func(req *request.Request) {
			defer wg.Done()
			<-start
			got, err := f.requests.Accept(ctx, request.AcceptCommand{RequestID: req.ID, DriverID: req.DriverID})
			if err == nil && got.SubscriptionID != sub.ID {
				t.Errorf("ride %s paid from %q", req.ID, got.SubscriptionID)
			}
			errs <- err
		}(req)
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
	}

	if left := f.remaining(t, "pg_u1"); left[sub.ID] != 8 {
		t.Fatalf("unexpected credits %+v", left)
	}
}
