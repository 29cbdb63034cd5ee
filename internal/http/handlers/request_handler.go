// README: Ride request handlers: request a pickup, driver/rider views, accept and reject.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"campuspool/internal/http/middleware"
	"campuspool/internal/modules/request"
	"campuspool/internal/types"
)

type RequestHandler struct {
	requests *request.Service
	log      *slog.Logger
}

func NewRequestHandler(svc *request.Service, log *slog.Logger) *RequestHandler {
	return &RequestHandler{requests: svc, log: log}
}

type requestPickupReq struct {
	RiderID       string `json:"rider_id"`
	RiderName     string `json:"rider_name"`
	RouteID       string `json:"route_id"`
	PickupPointID string `json:"pickup_point_id"`
}

// Create handles POST /api/ride-requests.
func (h *RequestHandler) Create(c *gin.Context) {
	var req requestPickupReq
	if !bindJSON(c, &req) {
		return
	}
	if !requireCaller(c, req.RiderID, "rider_id") {
		return
	}
	r, err := h.requests.RequestPickup(c.Request.Context(), request.RequestPickupCommand{
		RiderID:       types.ID(req.RiderID),
		RiderName:     req.RiderName,
		RouteID:       types.ID(req.RouteID),
		PickupPointID: types.ID(req.PickupPointID),
	})
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

// ListForDriver handles GET /api/ride-requests/driver/:driver_id.
func (h *RequestHandler) ListForDriver(c *gin.Context) {
	driverID, ok := pathID(c, "driver_id")
	if !ok || !requireCaller(c, driverID, "driver_id") {
		return
	}
	reqs, err := h.requests.ListForDriver(c.Request.Context(), types.ID(driverID))
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(reqs))
}

// ListForRider handles GET /api/ride-requests/rider/:rider_id.
func (h *RequestHandler) ListForRider(c *gin.Context) {
	riderID, ok := pathID(c, "rider_id")
	if !ok || !requireCaller(c, riderID, "rider_id") {
		return
	}
	reqs, err := h.requests.ListForRider(c.Request.Context(), types.ID(riderID))
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(reqs))
}

// Accept handles PUT /api/ride-requests/:id/accept.
func (h *RequestHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.requests.Accept(c.Request.Context(), request.AcceptCommand{
		RequestID: types.ID(id),
		DriverID:  types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// Reject handles PUT /api/ride-requests/:id/reject.
func (h *RequestHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.requests.Reject(c.Request.Context(), request.RejectCommand{
		RequestID: types.ID(id),
		DriverID:  types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}
