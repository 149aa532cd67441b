package subscription

import "context"

// Status is the read model returned to the UI layer
type Status struct {
	Subscription  *Subscription `json:"subscription"`
	CurrentTier   Tier          `json:"current_tier"`
	DaysRemaining *int          `json:"days_remaining"`
}

// Service defines the interface for subscription business logic
type Service interface {
	// Get retrieves the stored subscription for a user
	Get(ctx context.Context, userID string) (*Subscription, error)

	// Status computes the current tier and countdown for a user
	Status(ctx context.Context, userID string) (*Status, error)

	// StartTrial starts the one-per-account trial
	StartTrial(ctx context.Context, userID string) (*Subscription, error)

	// RecordPayment extends paid access by periodDays
	RecordPayment(ctx context.Context, userID string, periodDays int, plan string) (*Subscription, error)

	// Purchase records a payment and credits bonusDays in a single write
	Purchase(ctx context.Context, userID string, periodDays int, plan string, bonusDays int) (*Subscription, error)

	// ApplyBonus credits bonus days
	ApplyBonus(ctx context.Context, userID string, days int) (*Subscription, error)

	// Cancel cancels an active subscription
	Cancel(ctx context.Context, userID string) (*Subscription, error)
}
