package services

import "time"

// Payment provider webhook events
const (
	EventChargeSuccess       = "charge.success"
	EventSubscriptionDisable = "subscription.disable"
)

// Webhook outcomes
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

// WebhookEvent is the signed payload posted by the payment provider
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

// WebhookEventData carries the charge or subscription details
type WebhookEventData struct {
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Customer  WebhookCustomer `json:"customer"`
	Metadata  WebhookMetadata `json:"metadata"`
}

// WebhookCustomer identifies the payer
type WebhookCustomer struct {
	Email string `json:"email"`
}

// WebhookMetadata is echoed back from checkout initialization
type WebhookMetadata struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

// WebhookResult reports what a webhook delivery did
type WebhookResult struct {
	Event     string `json:"event"`
	Status    string `json:"status"`
	UserID    string `json:"user_id,omitempty"`
	Reference string `json:"reference,omitempty"`
}
