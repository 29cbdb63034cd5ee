// README: Driver route handlers: publish, list, get, deactivate.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"campuspool/internal/http/middleware"
	"campuspool/internal/modules/route"
	"campuspool/internal/types"
)

type RouteHandler struct {
	routes *route.Service
	log    *slog.Logger
}

func NewRouteHandler(svc *route.Service, log *slog.Logger) *RouteHandler {
	return &RouteHandler{routes: svc, log: log}
}

type pickupPointReq struct {
	Name     string `json:"name"`
	Landmark string `json:"landmark"`
}

type publishRouteReq struct {
	DriverID      string           `json:"driver_id"`
	DriverName    string           `json:"driver_name"`
	Origin        string           `json:"origin"`
	Destination   string           `json:"destination"`
	DepartureTime string           `json:"departure_time"`
	Direction     string           `json:"direction"`
	Seats         int              `json:"available_seats"`
	PricePerSeat  int64            `json:"price_per_seat"`
	Currency      string           `json:"currency"`
	Amenities     []string         `json:"amenities"`
	Vehicle       *route.Vehicle   `json:"vehicle"`
	PickupPoints  []pickupPointReq `json:"pickup_points"`
}

// Publish handles POST /api/driver-routes.
func (h *RouteHandler) Publish(c *gin.Context) {
	var req publishRouteReq
	if !bindJSON(c, &req) {
		return
	}
	if !requireCaller(c, req.DriverID, "driver_id") {
		return
	}
	points := make([]route.PickupPointInput, len(req.PickupPoints))
	for i, p := range req.PickupPoints {
		points[i] = route.PickupPointInput{Name: p.Name, Landmark: p.Landmark}
	}
	r, err := h.routes.Publish(c.Request.Context(), route.PublishCommand{
		DriverID:      types.ID(req.DriverID),
		DriverName:    req.DriverName,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureTime: req.DepartureTime,
		Direction:     route.Direction(req.Direction),
		Seats:         req.Seats,
		PricePerSeat:  req.PricePerSeat,
		Currency:      req.Currency,
		Amenities:     req.Amenities,
		Vehicle:       req.Vehicle,
		PickupPoints:  points,
	})
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

// ListActive handles GET /api/driver-routes/active.
func (h *RouteHandler) ListActive(c *gin.Context) {
	routes, err := h.routes.ListActive(c.Request.Context())
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(routes))
}

// ListByDriver handles GET /api/driver-routes/driver/:driver_id.
func (h *RouteHandler) ListByDriver(c *gin.Context) {
	driverID, ok := pathID(c, "driver_id")
	if !ok {
		return
	}
	routes, err := h.routes.ListByDriver(c.Request.Context(), types.ID(driverID))
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(routes))
}

// Get handles GET /api/driver-routes/:id.
func (h *RouteHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.routes.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// Deactivate handles PUT /api/driver-routes/:id/deactivate.
func (h *RouteHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.routes.Deactivate(c.Request.Context(), route.DeactivateCommand{
		RouteID:  types.ID(id),
		DriverID: types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"id": id, "is_active": false})
}
