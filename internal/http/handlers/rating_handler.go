// README: Ride rating handlers.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"campuspool/internal/http/middleware"
	"campuspool/internal/modules/rating"
	"campuspool/internal/types"
)

type RatingHandler struct {
	ratings *rating.Service
	log     *slog.Logger
}

func NewRatingHandler(svc *rating.Service, log *slog.Logger) *RatingHandler {
	return &RatingHandler{ratings: svc, log: log}
}

type submitRatingReq struct {
	RequestID  string   `json:"request_id"`
	Smoothness int      `json:"smoothness"`
	Comfort    int      `json:"comfort"`
	Amenities  []string `json:"amenities"`
}

// Submit handles POST /api/ratings; the rider is the caller.
func (h *RatingHandler) Submit(c *gin.Context) {
	var req submitRatingReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.ratings.Submit(c.Request.Context(), rating.SubmitCommand{
		RequestID:  types.ID(req.RequestID),
		RiderID:    types.ID(middleware.CallerUID(c)),
		Smoothness: req.Smoothness,
		Comfort:    req.Comfort,
		Amenities:  req.Amenities,
	})
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

// ListForDriver handles GET /api/ratings/driver/:driver_id.
func (h *RatingHandler) ListForDriver(c *gin.Context) {
	driverID, ok := pathID(c, "driver_id")
	if !ok {
		return
	}
	ratings, err := h.ratings.ListForDriver(c.Request.Context(), types.ID(driverID))
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	score := rating.ComputeScore(types.ID(driverID), ratings)
	writeJSON(c, http.StatusOK, map[string]any{"ratings": nonNil(ratings), "score": score})
}
