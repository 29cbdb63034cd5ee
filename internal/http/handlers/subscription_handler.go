// README: Subscription handlers: tier catalog, buy a tier, list a rider's credits.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"campuspool/internal/modules/subscription"
	"campuspool/internal/types"
)

type SubscriptionHandler struct {
	subscriptions *subscription.Service
	log           *slog.Logger
}

func NewSubscriptionHandler(svc *subscription.Service, log *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: svc, log: log}
}

type subscribeReq struct {
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
}

// Tiers handles GET /api/subscription-tiers.
func (h *SubscriptionHandler) Tiers(c *gin.Context) {
	writeJSON(c, http.StatusOK, subscription.Tiers)
}

// Create handles POST /api/subscriptions.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req subscribeReq
	if !bindJSON(c, &req) {
		return
	}
	if !requireCaller(c, req.UserID, "user_id") {
		return
	}
	sub, err := h.subscriptions.Subscribe(c.Request.Context(), subscription.SubscribeCommand{
		UserID: types.ID(req.UserID),
		Tier:   req.Tier,
	})
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, sub)
}

// ListForUser handles GET /api/subscriptions/:user_id.
func (h *SubscriptionHandler) ListForUser(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok || !requireCaller(c, userID, "user_id") {
		return
	}
	subs, err := h.subscriptions.ListForUser(c.Request.Context(), types.ID(userID))
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(subs))
}
