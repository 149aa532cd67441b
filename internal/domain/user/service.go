package user

import "context"

// Service defines the interface for user business logic
type Service interface {
	// Register creates an account with a free subscription
	Register(ctx context.Context, email, password, fullName string) (*User, error)

	// Authenticate checks credentials and returns the user
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates a user
	Update(ctx context.Context, user *User) error

	// Delete removes a user
	Delete(ctx context.Context, id string) error
}
