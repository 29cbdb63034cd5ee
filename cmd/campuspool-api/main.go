// README: Entry point; loads config, wires services, starts HTTP server and background workers.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"campuspool/internal/config"
	httptransport "campuspool/internal/http"
	"campuspool/internal/infra"
	"campuspool/internal/infra/memstore"
	"campuspool/internal/logging"
	"campuspool/internal/maps"
	"campuspool/internal/modules/broadcast"
	"campuspool/internal/modules/rating"
	"campuspool/internal/modules/request"
	"campuspool/internal/modules/route"
	"campuspool/internal/modules/subscription"
	"campuspool/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("campuspool-api stopped", "err", err)
		os.Exit(1)
	}
}

type stores struct {
	routes        route.Store
	requests      request.Store
	ratings       rating.Store
	subscriptions subscription.Store
	broadcast     broadcast.Store
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fbApp *firebase.App
	if cfg.Auth.Mode == "firebase" || cfg.Firebase.FCMEnabled {
		app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
		fbApp = app
	}

	var verifier infra.TokenVerifier
	switch cfg.Auth.Mode {
	case "jwt":
		verifier = infra.NewJWTVerifier(cfg.Auth.JWTSecret)
	default:
		v, err := infra.NewFirebaseVerifier(ctx, fbApp)
		if err != nil {
			return err
		}
		verifier = v
	}

	st, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	hub := notify.NewHub(log)
	sinks := []notify.Sink{hub}
	if len(cfg.Events.KafkaBrokers) > 0 {
		k := notify.NewKafkaSink(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		defer k.Close()
		sinks = append(sinks, k)
	}
	if cfg.Events.AMQPURL != "" {
		a, err := notify.NewAMQPSink(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
		if err != nil {
			return err
		}
		defer a.Close()
		sinks = append(sinks, a)
	}
	if cfg.Firebase.FCMEnabled {
		client, err := infra.NewMessaging(ctx, fbApp)
		if err != nil {
			return err
		}
		sinks = append(sinks, notify.NewFCMSink(client))
	}
	notifier := notify.NewNotifier(log, cfg.Events.QueueSize, sinks...)

	var planner route.OffsetPlanner = route.FixedIntervalPlanner{Interval: cfg.Route.StopInterval}
	if cfg.Route.MapsAPIKey != "" {
		directions, err := maps.NewDirectionsEstimator(cfg.Route.MapsAPIKey, cfg.Route.MapsRegion)
		if err != nil {
			return err
		}
		planner = route.NewLegPlanner(directions, planner, log)
	}

	routeSvc := route.NewService(route.Deps{
		Store:    st.routes,
		Planner:  planner,
		Events:   notifier,
		Log:      log,
		MaxSeats: cfg.Route.MaxSeats,
	})
	requestSvc := request.NewService(request.Deps{Store: st.requests, Routes: routeSvc, Events: notifier, Log: log})
	ratingSvc := rating.NewService(rating.Deps{Store: st.ratings, Requests: requestSvc, Log: log})
	subscriptionSvc := subscription.NewService(subscription.Deps{Store: st.subscriptions, Log: log})
	broadcastSvc := broadcast.NewService(broadcast.Deps{
		Store:         st.broadcast,
		Routes:        routeSvc,
		Events:        notifier,
		Log:           log,
		DefaultTTL:    cfg.Broadcast.DefaultTTL,
		SweepInterval: cfg.Broadcast.SweepInterval,
	})

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Route:        routeSvc,
		Request:      requestSvc,
		Broadcast:    broadcastSvc,
		Rating:       ratingSvc,
		Subscription: subscriptionSvc,
		Verifier:     verifier,
		Hub:          hub,
		Log:          log,
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	workers, cancelWorkers := context.WithCancel(context.Background())
	notifierDone := make(chan struct{})
	go func() {
		notifier.Run(workers)
		close(notifierDone)
	}()
	go broadcastSvc.RunSweeper(workers)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr, "auth_mode", cfg.Auth.Mode)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = server.Shutdown(shutdownCtx)
		cancel()
	}
	// Workers stop after the server so in-flight mutations still queue their events.
	cancelWorkers()
	<-notifierDone
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, func(), error) {
	var st stores
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DB.DSN != "" {
		db, err := openPostgres(ctx, cfg.DB.DSN)
		if err != nil {
			return st, nil, err
		}
		closers = append(closers, db.Close)
		st.routes = route.NewPgStore(db)
		st.requests = request.NewPgStore(db)
		st.ratings = rating.NewPgStore(db)
		st.subscriptions = subscription.NewPgStore(db)
		log.Info("using postgres stores")
	} else {
		backend := memstore.New()
		st.routes = backend.Routes()
		st.requests = backend.Requests()
		st.ratings = backend.Ratings()
		st.subscriptions = backend.Subscriptions()
		log.Warn("CAMPUSPOOL_DB_DSN not set; using in-memory stores")
	}

	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			closeAll()
			return st, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		st.broadcast = broadcast.NewRedisStore(client)
	} else {
		st.broadcast = broadcast.NewMemoryStore()
	}
	return st, closeAll, nil
}

func openPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	db, err := infra.NewDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	dir := "migrations"
	if root, err := infra.RepoRoot(); err == nil {
		dir = filepath.Join(root, "migrations")
	}
	if err := infra.ApplyMigrations(ctx, db, dir); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
