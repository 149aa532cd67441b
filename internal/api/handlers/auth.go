package handlers

import (
	"net/http"
	"strings"

	"github.com/mindspero/mindspero/internal/api/dto"
	"github.com/mindspero/mindspero/internal/api/middleware"
	"github.com/mindspero/mindspero/internal/auth"
	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/utils"
	"github.com/mindspero/mindspero/internal/pkg/validator"
	"github.com/mindspero/mindspero/internal/services"
)

const refreshTokenCookie = "refreshToken"

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService user.Service
	accounts    *services.AccountService
	gate        *services.GateService
	config      *config.Config
	clock       clock.Clock
	logger      *logger.Logger
	validator   *validator.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	userService user.Service,
	accounts *services.AccountService,
	gate *services.GateService,
	cfg *config.Config,
	clk clock.Clock,
	log *logger.Logger,
	val *validator.Validator,
) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		accounts:    accounts,
		gate:        gate,
		config:      cfg,
		clock:       clk,
		logger:      log,
		validator:   val,
	}
}

// Login handles user login
// @Summary User login
// @Description Authenticate user with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Successfully authenticated"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 401 {object} utils.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	u, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"email": req.Email,
		}).Warn("Authentication failed")
		utils.WriteErr(w, err)
		return
	}

	h.issue(w, u, http.StatusOK)
	h.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
	}).Info("User logged in successfully")
}

// Register handles user registration
// @Summary User registration
// @Description Register a new account on the free tier
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration details"
// @Success 201 {object} dto.AuthResponse "User successfully registered"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Failure 409 {object} utils.ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	u, err := h.userService.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	h.issue(w, u, http.StatusCreated)
}

// Logout handles user logout
// @Summary User logout
// @Description Clear the auth cookies
// @Tags Auth
// @Success 200 {object} utils.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, middleware.AccessTokenCookie, "", -1)
	h.setCookie(w, refreshTokenCookie, "", -1)
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the current user with their subscription and unlocked features
// @Summary Get current user
// @Description Get the authenticated user, current tier and features
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.MeResponse "User information"
// @Failure 401 {object} utils.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	features, status, err := h.gate.Features(r.Context(), userID)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to load subscription")
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.MeResponse{
		User:         dto.FromUser(u),
		Subscription: dto.FromStatus(status, features),
	})
}

// UpdateProfile changes the caller's display name
// @Summary Update profile
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} dto.UserDTO
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security BearerAuth
// @Router /auth/me [patch]
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	u, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	u.FullName = nil
	if name := strings.TrimSpace(req.FullName); name != "" {
		u.FullName = &name
	}
	if err := h.userService.Update(r.Context(), u); err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromUser(u))
}

// DeleteAccount closes the caller's account. There is no undo: the
// subscription, payments, documents and stored files all go with it.
// @Summary Delete account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.DeleteAccountRequest true "Current password"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse "Wrong password"
// @Security BearerAuth
// @Router /auth/me [delete]
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.DeleteAccountRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	u, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	if _, err := h.userService.Authenticate(r.Context(), u.Email, req.Password); err != nil {
		utils.WriteErr(w, err)
		return
	}
	if err := h.accounts.Delete(r.Context(), userID); err != nil {
		utils.WriteErr(w, err)
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, "", -1)
	h.setCookie(w, refreshTokenCookie, "", -1)
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Account deleted", nil)
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Exchange a refresh token for a new token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.AuthResponse "New tokens generated"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 401 {object} utils.ErrorResponse "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && r.ContentLength == 0 {
		req.RefreshToken = cookie.Value
	} else if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	claims, err := auth.ParseClaims(req.RefreshToken, h.config.Auth.JWTSecret, auth.KindRefresh)
	if err != nil {
		utils.WriteError(w, errors.Unauthorized("Invalid refresh token"))
		return
	}

	// Re-read the user so a role change or deletion takes effect on refresh.
	u, err := h.userService.GetByID(r.Context(), claims.UserID)
	if err != nil {
		utils.WriteError(w, errors.Unauthorized("Invalid refresh token"))
		return
	}

	h.issue(w, u, http.StatusOK)
}

func (h *AuthHandler) issue(w http.ResponseWriter, u *user.User, status int) {
	tokens, err := auth.MintTokens(
		auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role},
		h.config.Auth.JWTSecret,
		h.clock.Now(),
		h.config.Auth.AccessTokenExpiry,
		h.config.Auth.RefreshTokenExpiry,
	)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to generate tokens")
		utils.WriteError(w, errors.Internal("Failed to generate tokens", err))
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, tokens.AccessToken, int(h.config.Auth.AccessTokenExpiry.Seconds()))
	h.setCookie(w, refreshTokenCookie, tokens.RefreshToken, int(h.config.Auth.RefreshTokenExpiry.Seconds()))

	utils.WriteSuccess(w, status, dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		User:         dto.FromUser(u),
	})
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   maxAge,
	})
}
