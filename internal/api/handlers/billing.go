package handlers

import (
	"io"
	"net/http"

	"github.com/mindspero/mindspero/internal/api/dto"
	"github.com/mindspero/mindspero/internal/api/middleware"
	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/entitlement"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/utils"
	"github.com/mindspero/mindspero/internal/services"
)

// SignatureHeader carries the hex HMAC-SHA512 of a webhook body
const SignatureHeader = "X-Signature"

// maxWebhookBody bounds a webhook payload
const maxWebhookBody = 64 << 10

// BillingHandler serves plans and the payment provider webhook
type BillingHandler struct {
	billing *services.BillingService
	gate    *services.GateService
	cfg     config.BillingConfig
	logger  *logger.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billing *services.BillingService, gate *services.GateService, cfg config.BillingConfig, log *logger.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, gate: gate, cfg: cfg, logger: log}
}

// Plans lists the purchasable plans. Authenticated callers see their current plan flagged.
// @Summary List plans
// @Tags Billing
// @Produce json
// @Success 200 {object} dto.PlansResponse
// @Router /billing/plans [get]
func (h *BillingHandler) Plans(w http.ResponseWriter, r *http.Request) {
	paidFeatures := []string{
		string(entitlement.FeatureSummaries),
		string(entitlement.FeatureAudio),
		string(entitlement.FeatureDownloads),
		string(entitlement.FeaturePrioritySupport),
	}

	var current string
	if userID, ok := middleware.GetUserID(r); ok {
		if _, st, err := h.gate.Features(r.Context(), userID); err == nil {
			current = st.Subscription.Plan
		}
	}

	resp := dto.PlansResponse{TrialDays: h.cfg.TrialDays}
	for _, p := range h.billing.Plans() {
		plan := dto.FromPlan(p, h.cfg.BonusDays, paidFeatures)
		plan.IsCurrent = current != "" && p.Name == current
		resp.Plans = append(resp.Plans, plan)
	}
	utils.WriteSuccess(w, http.StatusOK, resp)
}

// Webhook receives payment provider events
// @Summary Payment webhook
// @Description Signed with HMAC-SHA512 in the X-Signature header. Handles charge.success and subscription.disable.
// @Tags Billing
// @Accept json
// @Produce json
// @Param X-Signature header string true "Hex HMAC-SHA512 of the body"
// @Success 200 {object} services.WebhookResult
// @Failure 401 {object} utils.ErrorResponse "Bad signature"
// @Router /billing/webhook [post]
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Webhook body too large or unreadable"))
		return
	}

	result, err := h.billing.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	if result.UserID != "" {
		middleware.AddLogField(r, "user_id", result.UserID)
	}
	utils.WriteSuccess(w, http.StatusOK, result)
}
