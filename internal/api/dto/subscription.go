package dto

import (
	"time"

	"github.com/mindspero/mindspero/internal/domain/entitlement"
	"github.com/mindspero/mindspero/internal/domain/subscription"
)

// SubscriptionDTO is the subscription as the UI shows it. CurrentTier is
// recomputed at request time; Tier is what is stored.
type SubscriptionDTO struct {
	Tier              subscription.Tier     `json:"tier"`
	CurrentTier       subscription.Tier     `json:"current_tier"`
	Plan              string                `json:"plan,omitempty"`
	DaysRemaining     *int                  `json:"days_remaining"`
	TrialStartedAt    *time.Time            `json:"trial_started_at,omitempty"`
	TrialEndsAt       *time.Time            `json:"trial_ends_at,omitempty"`
	TrialAvailable    bool                  `json:"trial_available"`
	RenewalAt         *time.Time            `json:"renewal_at,omitempty"`
	CancelledAt       *time.Time            `json:"cancelled_at,omitempty"`
	BonusDaysCredited int                   `json:"bonus_days_credited"`
	Features          []entitlement.Feature `json:"features"`
}

// FromStatus converts a subscription status and its feature list
func FromStatus(st *subscription.Status, features []entitlement.Feature) *SubscriptionDTO {
	sub := st.Subscription
	out := &SubscriptionDTO{
		Tier:              sub.Tier,
		CurrentTier:       st.CurrentTier,
		Plan:              sub.Plan,
		DaysRemaining:     st.DaysRemaining,
		TrialStartedAt:    sub.TrialStartedAt,
		TrialAvailable:    sub.TrialStartedAt == nil && st.CurrentTier != subscription.TierActive,
		RenewalAt:         sub.RenewalAt,
		CancelledAt:       sub.CancelledAt,
		BonusDaysCredited: sub.BonusDaysCredited,
		Features:          features,
	}
	if end, ok := sub.TrialEndsAt(); ok {
		out.TrialEndsAt = &end
	}
	return out
}
