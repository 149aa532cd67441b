package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/metrics"
)

// SubscriptionService implements subscription.Service. Mutations for one
// account are serialized in-process; the repository's version check catches
// writers in other processes.
type SubscriptionService struct {
	repo      subscription.Repository
	clock     clock.Clock
	trialDays int
	locks     *keyedMutex
	logger    *logger.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(repo subscription.Repository, clk clock.Clock, trialDays int, log *logger.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		clock:     clk,
		trialDays: trialDays,
		locks:     newKeyedMutex(),
		logger:    log,
	}
}

// Get retrieves the stored subscription, creating the free one for accounts
// that predate subscriptions
func (s *SubscriptionService) Get(ctx context.Context, userID string) (*subscription.Subscription, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	sub = subscription.NewFree(userID)
	sub.CreatedAt = s.clock.Now()
	sub.UpdatedAt = sub.CreatedAt
	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.IsCode(err, errors.ErrCodeConflict) {
			return s.repo.GetByUserID(ctx, userID)
		}
		return nil, err
	}
	return sub, nil
}

// Status computes the current tier and countdown
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*subscription.Status, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return StatusAt(sub, s.clock.Now()), nil
}

// StatusAt builds the read model for sub at now
func StatusAt(sub *subscription.Subscription, now time.Time) *subscription.Status {
	st := &subscription.Status{
		Subscription: sub,
		CurrentTier:  sub.CurrentTier(now),
	}
	if days, ok := sub.DaysRemaining(now); ok {
		st.DaysRemaining = &days
	}
	return st
}

// StartTrial starts the one-per-account trial
func (s *SubscriptionService) StartTrial(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return s.mutate(ctx, userID, "trial_started", func(sub *subscription.Subscription, now time.Time) error {
		return sub.StartTrial(now, s.trialDays)
	})
}

// RecordPayment extends paid access by periodDays
func (s *SubscriptionService) RecordPayment(ctx context.Context, userID string, periodDays int, plan string) (*subscription.Subscription, error) {
	return s.mutate(ctx, userID, "payment_recorded", func(sub *subscription.Subscription, now time.Time) error {
		return sub.RecordPayment(now, periodDays, plan)
	})
}

// Purchase records a payment and credits the purchase bonus in one write
func (s *SubscriptionService) Purchase(ctx context.Context, userID string, periodDays int, plan string, bonusDays int) (*subscription.Subscription, error) {
	return s.mutate(ctx, userID, "purchase", func(sub *subscription.Subscription, now time.Time) error {
		if err := sub.RecordPayment(now, periodDays, plan); err != nil {
			return err
		}
		if bonusDays > 0 {
			return sub.ApplyBonus(now, bonusDays)
		}
		return nil
	})
}

// ApplyBonus credits bonus days
func (s *SubscriptionService) ApplyBonus(ctx context.Context, userID string, days int) (*subscription.Subscription, error) {
	return s.mutate(ctx, userID, "bonus_applied", func(sub *subscription.Subscription, now time.Time) error {
		return sub.ApplyBonus(now, days)
	})
}

// Cancel cancels an active subscription
func (s *SubscriptionService) Cancel(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return s.mutate(ctx, userID, "cancelled", func(sub *subscription.Subscription, now time.Time) error {
		return sub.Cancel(now)
	})
}

func (s *SubscriptionService) mutate(ctx context.Context, userID, event string, apply func(*subscription.Subscription, time.Time) error) (*subscription.Subscription, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	next := current.Clone()
	if err := apply(next, now); err != nil {
		return nil, err
	}
	next.UpdatedAt = now

	if err := s.repo.Update(ctx, next); err != nil {
		if !stderrors.Is(err, subscription.ErrConflict) {
			return nil, err
		}
		metrics.RecordSubscriptionEvent("conflict")
		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"event":   event,
		}).WithError(err).Warn("Subscription update rejected")
		return nil, err
	}

	metrics.RecordSubscriptionEvent(event)
	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"event":   event,
		"tier":    next.Tier,
		"version": next.Version,
	}).Info("Subscription updated")

	return next, nil
}
