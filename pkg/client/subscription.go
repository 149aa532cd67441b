package client

import (
	"context"
	"net/http"
)

// SubscriptionService handles the caller's subscription and plan listing
type SubscriptionService struct {
	client *Client
}

// Get returns the caller's subscription
func (s *SubscriptionService) Get(ctx context.Context) (*Subscription, error) {
	return s.call(ctx, http.MethodGet, "/api/v1/subscription")
}

// StartTrial starts the one-per-account free trial
func (s *SubscriptionService) StartTrial(ctx context.Context) (*Subscription, error) {
	return s.call(ctx, http.MethodPost, "/api/v1/subscription/trial")
}

// Cancel stops renewal; access continues until the renewal date
func (s *SubscriptionService) Cancel(ctx context.Context) (*Subscription, error) {
	return s.call(ctx, http.MethodPost, "/api/v1/subscription/cancel")
}

// Plans lists purchasable plans
func (s *SubscriptionService) Plans(ctx context.Context) (*Plans, error) {
	var plans Plans
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/billing/plans", nil, &plans); err != nil {
		return nil, err
	}
	return &plans, nil
}

func (s *SubscriptionService) call(ctx context.Context, method, path string) (*Subscription, error) {
	var sub Subscription
	if err := s.client.doRequest(ctx, method, path, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}
