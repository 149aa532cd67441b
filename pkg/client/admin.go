package client

import (
	"context"
	"net/http"
	"net/url"
)

// AdminService reads the admin dashboard. Requires an admin account.
type AdminService struct {
	client *Client
}

// UserStats returns headline user counts
func (s *AdminService) UserStats(ctx context.Context) (*UserStats, error) {
	var stats UserStats
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/admin/stats/users", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Users lists users filtered by status (all, subscribed, trial, free, active, expired)
func (s *AdminService) Users(ctx context.Context, status string) (*AdminUsers, error) {
	path := "/api/v1/admin/users"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var users AdminUsers
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return &users, nil
}

// Revenue returns total revenue with a per-month breakdown
func (s *AdminService) Revenue(ctx context.Context) (*RevenueReport, error) {
	var report RevenueReport
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/admin/stats/revenue", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// MonthlyRevenue returns revenue for one YYYY-MM month
func (s *AdminService) MonthlyRevenue(ctx context.Context, month string) (*MonthRevenue, error) {
	var rev MonthRevenue
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/admin/stats/revenue/monthly?month="+url.QueryEscape(month), nil, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// Payments lists recorded payments, newest first
func (s *AdminService) Payments(ctx context.Context) (*Page[Payment], error) {
	var page Page[Payment]
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/admin/payments?page_size=100", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Growth returns subscribed counts overall and by signup month
func (s *AdminService) Growth(ctx context.Context) (*Growth, error) {
	var growth Growth
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/admin/stats/growth", nil, &growth); err != nil {
		return nil, err
	}
	return &growth, nil
}

// UserPayments lists one user's payments, newest first
func (s *AdminService) UserPayments(ctx context.Context, userID string) ([]Payment, error) {
	var payments []Payment
	if err := s.client.doRequest(ctx, http.MethodGet, userPath(userID)+"/payments", nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// DeleteUser closes another user's account with everything it owns
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	return s.client.doRequest(ctx, http.MethodDelete, userPath(userID), nil, nil)
}

// ActivateSubscription grants one period of the named plan without a charge
func (s *AdminService) ActivateSubscription(ctx context.Context, userID, plan string) (*SubscriptionStatus, error) {
	return s.manage(ctx, userID, "activate", map[string]string{"plan": plan})
}

// DeactivateSubscription cancels a paid subscription; access runs to the renewal date
func (s *AdminService) DeactivateSubscription(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	return s.manage(ctx, userID, "deactivate", nil)
}

// GrantBonus credits bonus days to a trial or active subscription
func (s *AdminService) GrantBonus(ctx context.Context, userID string, days int) (*SubscriptionStatus, error) {
	return s.manage(ctx, userID, "bonus", map[string]int{"days": days})
}

func (s *AdminService) manage(ctx context.Context, userID, action string, body interface{}) (*SubscriptionStatus, error) {
	var status SubscriptionStatus
	if err := s.client.doRequest(ctx, http.MethodPost, userPath(userID)+"/subscription/"+action, body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func userPath(userID string) string {
	return "/api/v1/admin/users/" + url.PathEscape(userID)
}
