package dto

import "github.com/mindspero/mindspero/internal/domain/admin"

// AdminUsersResponse is the filtered admin user list
type AdminUsersResponse struct {
	Status admin.Status        `json:"status"`
	Total  int                 `json:"total"`
	Users  []admin.UserSummary `json:"users"`
}

// ActivateSubscriptionRequest grants paid access for one plan period
type ActivateSubscriptionRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// GrantBonusRequest credits bonus days to a trial or active subscription
type GrantBonusRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}
