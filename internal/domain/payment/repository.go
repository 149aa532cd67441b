package payment

import "context"

// Repository defines the interface for payment data access
type Repository interface {
	// Create records a payment. Returns ErrDuplicateReference when the reference exists.
	Create(ctx context.Context, p *Payment) error

	// DeleteByReference removes a recorded payment. Missing references are not an error.
	DeleteByReference(ctx context.Context, reference string) error

	// ListByUser retrieves a user's payments, newest first
	ListByUser(ctx context.Context, userID string) ([]*Payment, error)

	// ListAll retrieves every payment, newest first
	ListAll(ctx context.Context) ([]*Payment, error)
}
