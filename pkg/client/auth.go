package client

import (
	"context"
	"net/http"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	req := LoginRequest{
		Email:    email,
		Password: password,
	}

	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		return nil, err
	}

	// Automatically set the token for future requests
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Register creates a new account on the free tier
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", req, &resp); err != nil {
		return nil, err
	}

	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Me retrieves the authenticated user with their subscription
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var me MeResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/auth/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// UpdateProfile sets the display name. An empty name clears it.
func (c *Client) UpdateProfile(ctx context.Context, fullName string) (*User, error) {
	var u User
	if err := c.doRequest(ctx, http.MethodPatch, "/api/v1/auth/me", map[string]string{"full_name": fullName}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteAccount permanently closes the caller's account after checking the
// password, then drops the local token
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v1/auth/me", map[string]string{"password": password}, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Logout clears the server cookies and the local token
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// RefreshToken exchanges a refresh token for a new pair
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	req := map[string]string{
		"refresh_token": refreshToken,
	}

	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", req, &resp); err != nil {
		return nil, err
	}

	c.SetToken(resp.AccessToken)
	return &resp, nil
}
