package dto

import "time"

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=120"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *UserDTO  `json:"user"`
}

// RefreshTokenRequest represents a refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// MeResponse is the authenticated user with what their tier unlocks
type MeResponse struct {
	User         *UserDTO         `json:"user"`
	Subscription *SubscriptionDTO `json:"subscription"`
}

// UpdateProfileRequest changes the caller's display name. An empty name clears it.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"max=120"`
}

// DeleteAccountRequest confirms account deletion with the current password
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}
