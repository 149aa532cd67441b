package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/domain/payment"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/metrics"
)

// conflictAttempts bounds how often a webhook reloads and reapplies a
// subscription change that lost a version race
const conflictAttempts = 3

// BillingService turns payment provider webhooks into subscription changes
type BillingService struct {
	cfg      config.BillingConfig
	subs     subscription.Service
	payments payment.Repository
	users    user.Repository
	clock    clock.Clock
	refs     *keyedMutex
	logger   *logger.Logger
}

// NewBillingService creates a new billing service
func NewBillingService(cfg config.BillingConfig, subs subscription.Service, payments payment.Repository, users user.Repository, clk clock.Clock, log *logger.Logger) *BillingService {
	return &BillingService{
		cfg:      cfg,
		subs:     subs,
		payments: payments,
		users:    users,
		clock:    clk,
		refs:     newKeyedMutex(),
		logger:   log,
	}
}

// Plans lists the purchasable plans
func (s *BillingService) Plans() []config.Plan {
	return s.cfg.Plans()
}

// Sign returns the hex HMAC-SHA512 of body under the webhook secret
func (s *BillingService) Sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(s.cfg.WebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature. An unconfigured secret rejects everything.
func (s *BillingService) VerifySignature(body []byte, signature string) bool {
	if s.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(s.Sign(body))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// HandleWebhook verifies and applies one webhook delivery
func (s *BillingService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !s.VerifySignature(body, signature) {
		return nil, errors.Unauthorized("Invalid webhook signature")
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errors.BadRequest("Invalid webhook payload")
	}

	switch event.Event {
	case EventChargeSuccess:
		return s.chargeSuccess(ctx, event.Data)
	case EventSubscriptionDisable:
		return s.subscriptionDisable(ctx, event.Data)
	default:
		s.logger.WithFields(map[string]interface{}{"event": event.Event}).Debug("Ignoring webhook event")
		return &WebhookResult{Event: event.Event, Status: WebhookIgnored}, nil
	}
}

func (s *BillingService) chargeSuccess(ctx context.Context, data WebhookEventData) (*WebhookResult, error) {
	if data.Reference == "" {
		return nil, errors.BadRequest("Payment reference is required")
	}
	result := &WebhookResult{Event: EventChargeSuccess, Reference: data.Reference}

	u, err := s.resolveUser(ctx, data)
	if err != nil {
		return nil, err
	}
	result.UserID = u.ID

	plan, ok := s.resolvePlan(data)
	if !ok {
		return nil, errors.BadRequest("Unknown plan")
	}

	unlock := s.refs.Lock(data.Reference)
	defer unlock()

	paidAt := s.clock.Now()
	if data.PaidAt != nil && !data.PaidAt.IsZero() {
		paidAt = data.PaidAt.UTC()
	}
	currency := strings.ToUpper(data.Currency)
	if currency == "" {
		currency = plan.Currency
	}
	amount := data.Amount
	if amount <= 0 {
		amount = plan.AmountMinor
	}

	// The payment row claims the reference before the subscription moves,
	// so a redelivery or a second process never applies the same charge twice.
	p := &payment.Payment{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		Reference:   data.Reference,
		Plan:        plan.Name,
		AmountMinor: amount,
		Currency:    currency,
		PaidAt:      paidAt,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if stderrors.Is(err, payment.ErrDuplicateReference) {
			result.Status = WebhookDuplicate
			return result, nil
		}
		return nil, err
	}

	err = withConflictRetry(func() error {
		_, err := s.subs.Purchase(ctx, u.ID, plan.PeriodDays, plan.Name, s.cfg.BonusDays)
		return err
	})
	if err != nil {
		fields := map[string]interface{}{
			"user_id":   u.ID,
			"reference": data.Reference,
		}
		if relErr := s.payments.DeleteByReference(ctx, data.Reference); relErr != nil {
			s.logger.WithFields(fields).WithError(relErr).Error("Failed to release payment reference")
		}
		s.logger.WithFields(fields).WithError(err).Error("Failed to apply payment to subscription")
		return nil, err
	}

	metrics.RecordRevenue(plan.Name, currency, amount)
	s.logger.WithFields(map[string]interface{}{
		"user_id":      u.ID,
		"reference":    data.Reference,
		"plan":         plan.Name,
		"amount_minor": amount,
		"bonus_days":   s.cfg.BonusDays,
	}).Info("Subscription payment recorded")

	result.Status = WebhookProcessed
	return result, nil
}

func (s *BillingService) subscriptionDisable(ctx context.Context, data WebhookEventData) (*WebhookResult, error) {
	u, err := s.resolveUser(ctx, data)
	if err != nil {
		return nil, err
	}
	result := &WebhookResult{Event: EventSubscriptionDisable, UserID: u.ID}

	err = withConflictRetry(func() error {
		_, err := s.subs.Cancel(ctx, u.ID)
		return err
	})
	switch {
	case err == nil:
		result.Status = WebhookProcessed
	case stderrors.Is(err, subscription.ErrNotActive):
		result.Status = WebhookIgnored
	default:
		return nil, err
	}
	return result, nil
}

func (s *BillingService) resolveUser(ctx context.Context, data WebhookEventData) (*user.User, error) {
	if data.Metadata.UserID != "" {
		return s.users.GetByID(ctx, data.Metadata.UserID)
	}
	if data.Customer.Email != "" {
		return s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(data.Customer.Email)))
	}
	return nil, errors.BadRequest("Webhook does not identify a customer")
}

// resolvePlan prefers the plan named in metadata and falls back to matching the amount
func (s *BillingService) resolvePlan(data WebhookEventData) (config.Plan, bool) {
	if data.Metadata.Plan != "" {
		return s.cfg.PlanByName(data.Metadata.Plan)
	}
	for _, p := range s.cfg.Plans() {
		if data.Amount > 0 && p.AmountMinor == data.Amount {
			return p, true
		}
	}
	return config.Plan{}, false
}

func withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictAttempts; attempt++ {
		if err = fn(); !stderrors.Is(err, subscription.ErrConflict) {
			return err
		}
	}
	return err
}
