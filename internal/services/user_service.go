package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/logger"
)

// MinPasswordLength is the shortest password Register accepts
const MinPasswordLength = 8

// UserService implements user.Service
type UserService struct {
	repo        user.Repository
	subs        subscription.Repository
	clock       clock.Clock
	bcryptCost  int
	adminEmails map[string]bool
	logger      *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(repo user.Repository, subs subscription.Repository, clk clock.Clock, cfg config.AuthConfig, log *logger.Logger) *UserService {
	cost := cfg.BCryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		admins[normalizeEmail(e)] = true
	}
	return &UserService{
		repo:        repo,
		subs:        subs,
		clock:       clk,
		bcryptCost:  cost,
		adminEmails: admins,
		logger:      log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and its free subscription
func (s *UserService) Register(ctx context.Context, email, password, fullName string) (*user.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.BadRequest("Invalid email address")
	}
	if len(password) < MinPasswordLength {
		return nil, errors.BadRequest("Password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, errors.Internal("Failed to hash password", err)
	}

	now := s.clock.Now()
	u := &user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if name := strings.TrimSpace(fullName); name != "" {
		u.FullName = &name
	}
	if s.adminEmails[email] {
		u.Role = user.RoleAdmin
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	sub := subscription.NewFree(u.ID)
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if err := s.subs.Create(ctx, sub); err != nil {
		s.logger.WithFields(map[string]interface{}{"user_id": u.ID}).WithError(err).Error("Failed to create free subscription")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
	}).Info("User registered")

	return u, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords return
// the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Unauthorized("Invalid email or password")
	}
	return u, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id string) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail retrieves a user by email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// Update updates a user
func (s *UserService) Update(ctx context.Context, u *user.User) error {
	u.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to update user")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
	}).Info("User updated")

	return nil
}

// Delete removes a user; subscription, documents and payments cascade
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{"user_id": id}).Info("User deleted")
	return nil
}
