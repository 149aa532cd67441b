package subscription

import "errors"

var (
	// ErrInvalidState is returned when a mutation is not valid for the current tier
	ErrInvalidState = errors.New("subscription: invalid state for operation")
	// ErrAlreadyTrialed is returned when a second trial is requested for an account
	ErrAlreadyTrialed = errors.New("subscription: trial already used")
	// ErrNotActive is returned when cancelling an account that is not active
	ErrNotActive = errors.New("subscription: not active")
	// ErrConflict is returned when a concurrent writer updated the account first.
	// Callers should reload and reapply.
	ErrConflict = errors.New("subscription: concurrent update conflict")
)
