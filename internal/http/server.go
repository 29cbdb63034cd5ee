// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campuspool/internal/http/handlers"
	"campuspool/internal/http/middleware"
	"campuspool/internal/infra"
	"campuspool/internal/logging"
	"campuspool/internal/modules/broadcast"
	"campuspool/internal/modules/rating"
	"campuspool/internal/modules/request"
	"campuspool/internal/modules/route"
	"campuspool/internal/modules/subscription"
	"campuspool/internal/notify"
)

type ServerDeps struct {
	Route        *route.Service
	Request      *request.Service
	Broadcast    *broadcast.Service
	Rating       *rating.Service
	Subscription *subscription.Service
	Verifier     infra.TokenVerifier
	Hub          *notify.Hub
	Log          *slog.Logger
}

type Server struct {
	route        *route.Service
	request      *request.Service
	broadcast    *broadcast.Service
	rating       *rating.Service
	subscription *subscription.Service
	verifier     infra.TokenVerifier
	hub          *notify.Hub
	log          *slog.Logger
}

func NewServer(deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		route:        deps.Route,
		request:      deps.Request,
		broadcast:    deps.Broadcast,
		rating:       deps.Rating,
		subscription: deps.Subscription,
		verifier:     deps.Verifier,
		hub:          deps.Hub,
		log:          log,
	}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(s.log), middleware.Logging(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(s.verifier))

	routeHandler := handlers.NewRouteHandler(s.route, s.log)
	api.POST("/driver-routes", routeHandler.Publish)
	api.GET("/driver-routes/active", routeHandler.ListActive)
	api.GET("/driver-routes/driver/:driver_id", routeHandler.ListByDriver)
	api.GET("/driver-routes/:id", routeHandler.Get)
	api.PUT("/driver-routes/:id/deactivate", routeHandler.Deactivate)

	requestHandler := handlers.NewRequestHandler(s.request, s.log)
	api.POST("/ride-requests", requestHandler.Create)
	api.GET("/ride-requests/driver/:driver_id", requestHandler.ListForDriver)
	api.GET("/ride-requests/rider/:rider_id", requestHandler.ListForRider)
	api.PUT("/ride-requests/:id/accept", requestHandler.Accept)
	api.PUT("/ride-requests/:id/reject", requestHandler.Reject)

	broadcastHandler := handlers.NewBroadcastHandler(s.broadcast, s.hub, s.log)
	api.POST("/broadcasts", broadcastHandler.Create)
	api.GET("/broadcasts/active", broadcastHandler.ListActive)
	api.GET("/ws/broadcasts", broadcastHandler.Stream)

	ratingHandler := handlers.NewRatingHandler(s.rating, s.log)
	api.POST("/ratings", ratingHandler.Submit)
	api.GET("/ratings/driver/:driver_id", ratingHandler.ListForDriver)

	subscriptionHandler := handlers.NewSubscriptionHandler(s.subscription, s.log)
	api.GET("/subscription-tiers", subscriptionHandler.Tiers)
	api.POST("/subscriptions", subscriptionHandler.Create)
	api.GET("/subscriptions/:user_id", subscriptionHandler.ListForUser)

	return r
}
