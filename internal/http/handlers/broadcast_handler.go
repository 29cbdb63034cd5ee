// README: "Leaving now" broadcast handlers and the WebSocket event feed.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campuspool/internal/apperr"
	"campuspool/internal/http/middleware"
	"campuspool/internal/modules/broadcast"
	"campuspool/internal/notify"
	"campuspool/internal/types"
)

type BroadcastHandler struct {
	broadcasts *broadcast.Service
	hub        *notify.Hub
	log        *slog.Logger
}

func NewBroadcastHandler(svc *broadcast.Service, hub *notify.Hub, log *slog.Logger) *BroadcastHandler {
	return &BroadcastHandler{broadcasts: svc, hub: hub, log: log}
}

type broadcastReq struct {
	RouteID    string `json:"route_id"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// Create handles POST /api/broadcasts. The caller must own the route.
func (h *BroadcastHandler) Create(c *gin.Context) {
	var req broadcastReq
	if !bindJSON(c, &req) {
		return
	}
	if req.TTLSeconds < 0 {
		writeError(c, http.StatusBadRequest, apperr.KindValidation, "ttl_seconds must not be negative")
		return
	}
	b, err := h.broadcasts.Broadcast(c.Request.Context(), broadcast.BroadcastCommand{
		RouteID:  types.ID(req.RouteID),
		DriverID: types.ID(middleware.CallerUID(c)),
		TTL:      time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

// ListActive handles GET /api/broadcasts/active.
func (h *BroadcastHandler) ListActive(c *gin.Context) {
	list, err := h.broadcasts.ListActive(c.Request.Context())
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(list))
}

// Stream handles GET /api/ws/broadcasts; it blocks until the socket closes.
func (h *BroadcastHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		writeError(c, http.StatusNotFound, apperr.KindNotFound, "live feed disabled")
		return
	}
	uid := middleware.CallerUID(c)
	if err := h.hub.Serve(c.Writer, c.Request, uid); err != nil {
		h.log.Debug("websocket closed", "uid", uid, "err", err)
	}
}
