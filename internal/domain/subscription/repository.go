package subscription

import "context"

// Repository defines the interface for subscription data access
type Repository interface {
	// Create stores the initial subscription for a user
	Create(ctx context.Context, sub *Subscription) error

	// GetByUserID retrieves the subscription for a user
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)

	// Update writes sub if the stored version still equals sub.Version and
	// increments it. Returns ErrConflict when another writer got there first.
	Update(ctx context.Context, sub *Subscription) error

	// ListAll retrieves every subscription
	ListAll(ctx context.Context) ([]*Subscription, error)
}
