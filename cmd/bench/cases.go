// README: Bench cases: environment checks, a full ride flow over HTTP, races and throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"campuspool/internal/infra"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// run scopes user ids so repeated runs never collide on one-active-route-per-driver.
	run    string
	routes map[string]benchRoute
}

type benchRoute struct {
	ID       string
	DriverID string
	PickupID string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 10 * time.Second},
		run:    uuid.NewString()[:8],
		routes: make(map[string]benchRoute),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		if client, err := infra.NewRedis(ctx, r.cfg.RedisAddr); err == nil {
			r.redis = client
		}
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) user(name string) string {
	return name + "_" + r.run
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: checkPostgres},
		{Name: "Env: Redis connect", Run: checkRedis},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/health", "", nil, http.StatusOK, nil)
		}},
		{Name: "API: unauthenticated -> 401", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/api/driver-routes/active", "", nil, http.StatusUnauthorized, nil)
		}},

		{Name: "Route: publish", Run: func(ctx context.Context, r *Runner) Result {
			return r.publish(ctx, "main", r.user("driver_main"), 2)
		}},
		{Name: "Route: second active route -> 409", Run: func(ctx context.Context, r *Runner) Result {
			driver := r.user("driver_main")
			return r.expect(ctx, http.MethodPost, "/api/driver-routes", driver, routeBody(driver, 2), http.StatusConflict, nil)
		}},
		{Name: "Route: too many seats -> 400", Run: func(ctx context.Context, r *Runner) Result {
			driver := r.user("driver_other")
			return r.expect(ctx, http.MethodPost, "/api/driver-routes", driver, routeBody(driver, 50), http.StatusBadRequest, nil)
		}},
		{Name: "Route: listed as active", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/api/driver-routes/active", r.user("rider_1"), nil, http.StatusOK, nil)
		}},

		{Name: "Request: rider requests pickup", Run: func(ctx context.Context, r *Runner) Result {
			return r.requestPickup(ctx, "main", r.user("rider_1"), http.StatusCreated)
		}},
		{Name: "Request: duplicate pending -> 409", Run: func(ctx context.Context, r *Runner) Result {
			return r.requestPickup(ctx, "main", r.user("rider_1"), http.StatusConflict)
		}},
		{Name: "Request: driver on own route -> 400", Run: func(ctx context.Context, r *Runner) Result {
			return r.requestPickup(ctx, "main", r.user("driver_main"), http.StatusBadRequest)
		}},
		{Name: "Request: driver inbox", Run: func(ctx context.Context, r *Runner) Result {
			driver := r.user("driver_main")
			return r.expect(ctx, http.MethodGet, "/api/ride-requests/driver/"+driver, driver, nil, http.StatusOK, nil)
		}},

		{Name: "Concurrency: accept race on one seat", Run: acceptRace},
		{Name: "Cascade: deactivate rejects pending", Run: deactivateCascade},
		{Name: "Broadcast: leaving now", Run: func(ctx context.Context, r *Runner) Result {
			rt, ok := r.routes["race"]
			if !ok {
				return Result{Status: statusSkip, Note: "race route not published"}
			}
			return r.expect(ctx, http.MethodPost, "/api/broadcasts", rt.DriverID, map[string]any{"route_id": rt.ID, "ttl_seconds": 300}, http.StatusCreated, nil)
		}},

		{Name: "Perf: list active routes throughput", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, http.MethodGet, "/api/driver-routes/active", r.user("rider_perf"))
		}},
	}
}

func checkPostgres(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("%d tables", len(tables))}
}

func routeBody(driver string, seats int) map[string]any {
	return map[string]any{
		"driver_id":       driver,
		"driver_name":     "Bench Driver",
		"origin":          "Koramangala",
		"destination":     "Main Campus",
		"departure_time":  "8:30 AM",
		"direction":       "to_college",
		"available_seats": seats,
		"price_per_seat":  4000,
		"amenities":       []string{"AC"},
		"pickup_points":   []map[string]string{{"name": "Forum Mall"}, {"name": "Silk Board"}},
	}
}

func (r *Runner) publish(ctx context.Context, key, driver string, seats int) Result {
	var out struct {
		ID           string `json:"id"`
		PickupPoints []struct {
			ID string `json:"id"`
		} `json:"pickup_points"`
	}
	res := r.expect(ctx, http.MethodPost, "/api/driver-routes", driver, routeBody(driver, seats), http.StatusCreated, &out)
	if res.Status == statusPass && len(out.PickupPoints) > 0 {
		r.routes[key] = benchRoute{ID: out.ID, DriverID: driver, PickupID: out.PickupPoints[0].ID}
	}
	return res
}

func (r *Runner) requestPickup(ctx context.Context, key, rider string, want int) Result {
	rt, ok := r.routes[key]
	if !ok {
		return Result{Status: statusSkip, Note: key + " route not published"}
	}
	return r.expect(ctx, http.MethodPost, "/api/ride-requests", rider, map[string]any{
		"rider_id":        rider,
		"rider_name":      "Bench Rider",
		"route_id":        rt.ID,
		"pickup_point_id": rt.PickupID,
	}, want, nil)
}

// acceptRace publishes a one-seat route, collects Concurrency requests and accepts them all at once.
func acceptRace(ctx context.Context, r *Runner) Result {
	driver := r.user("driver_race")
	if res := r.publish(ctx, "race", driver, 1); res.Status != statusPass {
		return res
	}
	rt := r.routes["race"]
	ids := make([]string, 0, r.cfg.Concurrency)
	for i := 0; i < r.cfg.Concurrency; i++ {
		rider := r.user(fmt.Sprintf("rider_race_%d", i))
		var out struct {
			ID string `json:"id"`
		}
		res := r.expect(ctx, http.MethodPost, "/api/ride-requests", rider, map[string]any{
			"rider_id": rider, "route_id": rt.ID, "pickup_point_id": rt.PickupID,
		}, http.StatusCreated, &out)
		if res.Status != statusPass {
			return res
		}
		ids = append(ids, out.ID)
	}

	var ok, capacity int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			code, err := r.call(ctx, http.MethodPut, "/api/ride-requests/"+id+"/accept", driver, nil, nil)
			if err != nil {
				return
			}
			switch code {
			case http.StatusOK:
				atomic.AddInt64(&ok, 1)
			case http.StatusConflict:
				atomic.AddInt64(&capacity, 1)
			}
		}(id)
	}
	close(start)
	wg.Wait()

	note := fmt.Sprintf("accepted=%d capacity=%d", ok, capacity)
	if ok != 1 || ok+capacity != int64(len(ids)) {
		return Result{Status: statusFail, Note: note}
	}
	return Result{Status: statusPass, Note: note}
}

func deactivateCascade(ctx context.Context, r *Runner) Result {
	driver := r.user("driver_cascade")
	if res := r.publish(ctx, "cascade", driver, 2); res.Status != statusPass {
		return res
	}
	riders := []string{r.user("rider_c1"), r.user("rider_c2"), r.user("rider_c3")}
	for _, rider := range riders {
		if res := r.requestPickup(ctx, "cascade", rider, http.StatusCreated); res.Status != statusPass {
			return res
		}
	}
	rt := r.routes["cascade"]
	if res := r.expect(ctx, http.MethodPut, "/api/driver-routes/"+rt.ID+"/deactivate", driver, nil, http.StatusOK, nil); res.Status != statusPass {
		return res
	}
	for _, rider := range riders {
		var reqs []struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
		}
		if res := r.expect(ctx, http.MethodGet, "/api/ride-requests/rider/"+rider, rider, nil, http.StatusOK, &reqs); res.Status != statusPass {
			return res
		}
		if len(reqs) != 1 || reqs[0].Status != "rejected" || reqs[0].Reason != "route_cancelled" {
			return Result{Status: statusFail, Note: fmt.Sprintf("%s: %+v", rider, reqs)}
		}
	}
	return Result{Status: statusPass, Note: "3 requests rejected"}
}

// expect performs one call and passes when the status matches; out, if set, receives the body.
func (r *Runner) expect(ctx context.Context, method, path, caller string, body any, want int, out any) Result {
	start := time.Now()
	code, err := r.call(ctx, method, path, caller, body, out)
	latency := time.Since(start)
	if err != nil {
		return Result{Status: statusFail, Latency: latency, Note: err.Error()}
	}
	if code != want {
		return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", code, want)}
	}
	return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
}

func (r *Runner) call(ctx context.Context, method, path, caller string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		token, err := infra.SignJWT(r.cfg.JWTSecret, caller, "", time.Hour)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode body: %w", err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func perfLoad(ctx context.Context, r *Runner, method, path, caller string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, err := r.call(ctx, method, path, caller, nil, nil)
				if err != nil || code >= 500 {
					atomic.AddInt64(&errCount, 1)
					continue
				}
				atomic.AddInt64(&count, 1)
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}
