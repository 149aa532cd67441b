package handlers

import (
	"net/http"

	"github.com/mindspero/mindspero/internal/api/dto"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/utils"
	"github.com/mindspero/mindspero/internal/services"
)

// SubscriptionHandler handles the caller's subscription
type SubscriptionHandler struct {
	subscriptions subscription.Service
	gate          *services.GateService
	logger        *logger.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subs subscription.Service, gate *services.GateService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subs, gate: gate, logger: log}
}

// Get returns the caller's subscription with its recomputed tier
// @Summary Get subscription
// @Description Current tier, days remaining and unlocked features
// @Tags Subscription
// @Produce json
// @Success 200 {object} dto.SubscriptionDTO
// @Security BearerAuth
// @Router /subscription [get]
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.writeStatus(w, r, userID, http.StatusOK)
}

// StartTrial starts the one-per-account free trial
// @Summary Start free trial
// @Tags Subscription
// @Produce json
// @Success 200 {object} dto.SubscriptionDTO
// @Failure 409 {object} utils.ErrorResponse "Trial already used"
// @Failure 422 {object} utils.ErrorResponse "Already subscribed"
// @Security BearerAuth
// @Router /subscription/trial [post]
func (h *SubscriptionHandler) StartTrial(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if _, err := h.subscriptions.StartTrial(r.Context(), userID); err != nil {
		utils.WriteErr(w, err)
		return
	}
	h.writeStatus(w, r, userID, http.StatusOK)
}

// Cancel cancels an active subscription. Access continues until the renewal date.
// @Summary Cancel subscription
// @Tags Subscription
// @Produce json
// @Success 200 {object} dto.SubscriptionDTO
// @Failure 409 {object} utils.ErrorResponse "Not active"
// @Security BearerAuth
// @Router /subscription/cancel [post]
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if _, err := h.subscriptions.Cancel(r.Context(), userID); err != nil {
		utils.WriteErr(w, err)
		return
	}
	h.writeStatus(w, r, userID, http.StatusOK)
}

func (h *SubscriptionHandler) writeStatus(w http.ResponseWriter, r *http.Request, userID string, status int) {
	features, st, err := h.gate.Features(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, status, dto.FromStatus(st, features))
}
