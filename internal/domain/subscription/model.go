package subscription

import (
	"fmt"
	"time"
)

// Tier is the entitlement level of an account
type Tier string

const (
	TierFree      Tier = "free"
	TierTrial     Tier = "trial"
	TierActive    Tier = "active"
	TierExpired   Tier = "expired"
	TierCancelled Tier = "cancelled"
)

// IsValid reports whether t is a known tier
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierTrial, TierActive, TierExpired, TierCancelled:
		return true
	}
	return false
}

// Plans
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// DefaultTrialLengthDays is used when StartTrial is called without a length
const DefaultTrialLengthDays = 30

const day = 24 * time.Hour

// Subscription is the billing state of one account. Derived values such as the
// effective tier are always recomputed from the stored timestamps.
type Subscription struct {
	UserID            string     `json:"user_id"`
	Tier              Tier       `json:"tier"`
	Plan              string     `json:"plan,omitempty"`
	TrialStartedAt    *time.Time `json:"trial_started_at,omitempty"`
	TrialLengthDays   int        `json:"trial_length_days,omitempty"`
	RenewalAt         *time.Time `json:"renewal_at,omitempty"`
	BonusDaysCredited int        `json:"bonus_days_credited"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	Version           int64      `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewFree returns the subscription every account starts with
func NewFree(userID string) *Subscription {
	return &Subscription{
		UserID: userID,
		Tier:   TierFree,
	}
}

// Clone returns a deep copy so a mutation can be attempted without touching s
func (s *Subscription) Clone() *Subscription {
	c := *s
	c.TrialStartedAt = copyTime(s.TrialStartedAt)
	c.RenewalAt = copyTime(s.RenewalAt)
	c.CancelledAt = copyTime(s.CancelledAt)
	return &c
}

// TrialEndsAt returns the instant the trial window closes, bonus days included
func (s *Subscription) TrialEndsAt() (time.Time, bool) {
	if s.TrialStartedAt == nil {
		return time.Time{}, false
	}
	length := s.TrialLengthDays
	if length <= 0 {
		length = DefaultTrialLengthDays
	}
	return s.TrialStartedAt.Add(time.Duration(length+s.BonusDaysCredited) * day), true
}

// CurrentTier returns the tier the account is entitled to at now
func (s *Subscription) CurrentTier(now time.Time) Tier {
	switch s.Tier {
	case TierTrial:
		end, ok := s.TrialEndsAt()
		if !ok || now.After(end) {
			return TierExpired
		}
		return TierTrial
	case TierCancelled:
		if s.RenewalAt != nil && !now.After(*s.RenewalAt) {
			return TierActive
		}
		return TierExpired
	default:
		return s.Tier
	}
}

// DaysRemaining returns the whole days left before access ends. The second
// value is false for tiers without a countdown (free, active, expired).
func (s *Subscription) DaysRemaining(now time.Time) (int, bool) {
	var end time.Time
	switch s.Tier {
	case TierTrial:
		e, ok := s.TrialEndsAt()
		if !ok {
			return 0, true
		}
		end = e
	case TierCancelled:
		if s.RenewalAt == nil {
			return 0, true
		}
		end = *s.RenewalAt
	default:
		return 0, false
	}
	return ceilDays(end.Sub(now)), true
}

// HasPaidAccess reports whether the account currently has paid-for access
func (s *Subscription) HasPaidAccess(now time.Time) bool {
	return s.CurrentTier(now) == TierActive
}

// TrialLapsed reports whether the account used its trial, never paid, and the
// trial window is over
func (s *Subscription) TrialLapsed(now time.Time) bool {
	if s.TrialStartedAt == nil || s.RenewalAt != nil {
		return false
	}
	if s.CurrentTier(now) == TierExpired {
		return true
	}
	days, ok := s.DaysRemaining(now)
	return s.Tier == TierTrial && ok && days == 0
}

// StartTrial opens the one-per-account trial window
func (s *Subscription) StartTrial(now time.Time, lengthDays int) error {
	if s.TrialStartedAt != nil {
		return ErrAlreadyTrialed
	}
	if s.HasPaidAccess(now) {
		return fmt.Errorf("%w: account already has paid access", ErrInvalidState)
	}
	if lengthDays <= 0 {
		lengthDays = DefaultTrialLengthDays
	}

	started := now
	s.Tier = TierTrial
	s.TrialStartedAt = &started
	s.TrialLengthDays = lengthDays
	return nil
}

// RecordPayment activates the account for periodDays. Payments stack: while
// paid access is still running the period is added to the existing renewal
// date instead of restarting from now.
func (s *Subscription) RecordPayment(now time.Time, periodDays int, plan string) error {
	if periodDays <= 0 {
		return fmt.Errorf("%w: payment period must be positive", ErrInvalidState)
	}

	base := now
	if (s.Tier == TierActive || s.Tier == TierCancelled) && s.RenewalAt != nil && s.RenewalAt.After(now) {
		base = *s.RenewalAt
	}
	renewal := base.Add(time.Duration(periodDays) * day)

	s.Tier = TierActive
	s.RenewalAt = &renewal
	s.CancelledAt = nil
	if plan != "" {
		s.Plan = plan
	}
	return nil
}

// ApplyBonus credits extra days. Only trial and active accounts may receive a
// bonus; on an active account the renewal date moves forward by the same amount.
func (s *Subscription) ApplyBonus(now time.Time, days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: bonus days must be positive", ErrInvalidState)
	}

	switch s.CurrentTier(now) {
	case TierTrial:
		s.BonusDaysCredited += days
	case TierActive:
		if s.Tier != TierActive {
			return fmt.Errorf("%w: cannot credit a cancelled subscription", ErrInvalidState)
		}
		s.BonusDaysCredited += days
		if s.RenewalAt != nil {
			renewal := s.RenewalAt.Add(time.Duration(days) * day)
			s.RenewalAt = &renewal
		}
	default:
		return fmt.Errorf("%w: bonus requires a trial or active subscription", ErrInvalidState)
	}
	return nil
}

// Cancel stops renewal; access continues until RenewalAt
func (s *Subscription) Cancel(now time.Time) error {
	if s.Tier != TierActive {
		return ErrNotActive
	}
	cancelledAt := now
	s.Tier = TierCancelled
	s.CancelledAt = &cancelledAt
	return nil
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	days := d / day
	if d%day != 0 {
		days++
	}
	return int(days)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
