package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mindspero/mindspero/internal/api/dto"
	"github.com/mindspero/mindspero/internal/api/middleware"
	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/admin"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/utils"
	"github.com/mindspero/mindspero/internal/pkg/validator"
	"github.com/mindspero/mindspero/internal/services"
)

// AdminHandler serves the admin dashboard and manual account management
type AdminHandler struct {
	admin         *services.AdminService
	accounts      *services.AccountService
	subscriptions subscription.Service
	billing       config.BillingConfig
	validator     *validator.Validator
	logger        *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	svc *services.AdminService,
	accounts *services.AccountService,
	subs subscription.Service,
	billing config.BillingConfig,
	val *validator.Validator,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		admin:         svc,
		accounts:      accounts,
		subscriptions: subs,
		billing:       billing,
		validator:     val,
		logger:        log,
	}
}

// UserStats returns headline user counts
// @Summary User statistics
// @Tags Admin
// @Produce json
// @Success 200 {object} admin.UserStats
// @Failure 403 {object} utils.ErrorResponse "Not an admin"
// @Security BearerAuth
// @Router /admin/stats/users [get]
func (h *AdminHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.UserStats(r.Context())
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, stats)
}

// Revenue returns total revenue with a per-month breakdown
// @Summary Revenue statistics
// @Tags Admin
// @Produce json
// @Success 200 {object} services.RevenueReport
// @Security BearerAuth
// @Router /admin/stats/revenue [get]
func (h *AdminHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	report, err := h.admin.Revenue(r.Context())
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, report)
}

// MonthlyRevenue returns revenue for one calendar month
// @Summary Monthly revenue
// @Tags Admin
// @Produce json
// @Param month query string true "Month as YYYY-MM"
// @Success 200 {object} admin.MonthRevenue
// @Failure 400 {object} utils.ErrorResponse "Malformed month"
// @Security BearerAuth
// @Router /admin/stats/revenue/monthly [get]
func (h *AdminHandler) MonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	month, err := h.admin.MonthlyRevenue(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, month)
}

// Users lists users filtered by status
// @Summary List users
// @Tags Admin
// @Produce json
// @Param status query string false "all, subscribed, trial, free, active or expired"
// @Success 200 {object} dto.AdminUsersResponse
// @Failure 400 {object} utils.ErrorResponse "Unknown status"
// @Security BearerAuth
// @Router /admin/users [get]
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	status := admin.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = admin.StatusAll
	}

	users, err := h.admin.Users(r.Context(), status)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.AdminUsersResponse{
		Status: status,
		Total:  len(users),
		Users:  users,
	})
}

// Payments lists recorded payments, newest first
// @Summary List payments
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} utils.PaginatedResponse
// @Security BearerAuth
// @Router /admin/payments [get]
func (h *AdminHandler) Payments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.admin.Payments(r.Context())
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	params := utils.ParsePaginationParams(r)
	start, end := params.Window(len(payments))
	utils.WriteSuccess(w, http.StatusOK,
		utils.NewPaginatedResponse(payments[start:end], params.Page, params.PageSize, int64(len(payments))))
}

// Growth returns subscribed counts overall and by signup month
// @Summary Subscription growth
// @Tags Admin
// @Produce json
// @Success 200 {object} admin.Growth
// @Security BearerAuth
// @Router /admin/stats/growth [get]
func (h *AdminHandler) Growth(w http.ResponseWriter, r *http.Request) {
	growth, err := h.admin.Growth(r.Context())
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, growth)
}

// UserPayments lists one user's payments, newest first
// @Summary List a user's payments
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {array} payment.Payment
// @Failure 404 {object} utils.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /admin/users/{id}/payments [get]
func (h *AdminHandler) UserPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.admin.UserPayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, payments)
}

// DeleteUser closes another user's account
// @Summary Delete a user
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse "Own account"
// @Failure 404 {object} utils.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if id == adminID {
		utils.WriteError(w, errors.BadRequest("Use account deletion to remove your own account"))
		return
	}

	if err := h.accounts.Delete(r.Context(), id); err != nil {
		utils.WriteErr(w, err)
		return
	}
	h.logger.WithFields(map[string]interface{}{
		"admin_id": adminID,
		"user_id":  id,
	}).Info("User deleted by admin")
	utils.WriteSuccessWithMessage(w, http.StatusOK, "User deleted", nil)
}

// ActivateSubscription grants paid access for one plan period without a charge
// @Summary Activate a subscription
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body dto.ActivateSubscriptionRequest true "Plan to grant"
// @Success 200 {object} subscription.Status
// @Failure 400 {object} utils.ErrorResponse "Unknown plan"
// @Failure 404 {object} utils.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /admin/users/{id}/subscription/activate [post]
func (h *AdminHandler) ActivateSubscription(w http.ResponseWriter, r *http.Request) {
	var req dto.ActivateSubscriptionRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	plan, ok := h.billing.PlanByName(req.Plan)
	if !ok {
		utils.WriteError(w, errors.BadRequest("Unknown plan"))
		return
	}
	h.manage(w, r, "activated", func(userID string) error {
		_, err := h.subscriptions.RecordPayment(r.Context(), userID, plan.PeriodDays, plan.Name)
		return err
	})
}

// DeactivateSubscription cancels a paid subscription. Access runs to the renewal date.
// @Summary Deactivate a subscription
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} subscription.Status
// @Failure 409 {object} utils.ErrorResponse "Not active"
// @Security BearerAuth
// @Router /admin/users/{id}/subscription/deactivate [post]
func (h *AdminHandler) DeactivateSubscription(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "deactivated", func(userID string) error {
		_, err := h.subscriptions.Cancel(r.Context(), userID)
		return err
	})
}

// GrantBonus credits bonus days to a trial or active subscription
// @Summary Grant bonus days
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body dto.GrantBonusRequest true "Days to credit"
// @Success 200 {object} subscription.Status
// @Failure 422 {object} utils.ErrorResponse "Free or expired subscription"
// @Security BearerAuth
// @Router /admin/users/{id}/subscription/bonus [post]
func (h *AdminHandler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	var req dto.GrantBonusRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	h.manage(w, r, "bonus_granted", func(userID string) error {
		_, err := h.subscriptions.ApplyBonus(r.Context(), userID, req.Days)
		return err
	})
}

// manage applies a subscription change to the user in the path and writes
// the resulting status
func (h *AdminHandler) manage(w http.ResponseWriter, r *http.Request, action string, apply func(userID string) error) {
	userID := chi.URLParam(r, "id")
	// Subscriptions are created on first read, so the user must exist first.
	if _, err := h.admin.User(r.Context(), userID); err != nil {
		utils.WriteErr(w, err)
		return
	}
	if err := apply(userID); err != nil {
		utils.WriteErr(w, err)
		return
	}

	status, err := h.subscriptions.Status(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	adminID, _ := middleware.GetUserID(r)
	h.logger.WithFields(map[string]interface{}{
		"admin_id": adminID,
		"user_id":  userID,
		"action":   action,
		"tier":     status.CurrentTier,
	}).Info("Subscription changed by admin")
	utils.WriteSuccess(w, http.StatusOK, status)
}
