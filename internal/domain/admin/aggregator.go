// Package admin computes read-only dashboard rollups over a snapshot of
// accounts and payments. Nothing here mutates the inputs.
package admin

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mindspero/mindspero/internal/domain/payment"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/domain/user"
)

// ErrInvalidFilter is returned for an unknown status filter or malformed month
var ErrInvalidFilter = errors.New("admin: invalid filter")

// Status is a user filter on the admin dashboard
type Status string

const (
	StatusAll        Status = "all"
	StatusSubscribed Status = "subscribed"
	StatusTrial      Status = "trial"
	StatusFree       Status = "free"
	StatusActive     Status = "active"
	StatusExpired    Status = "expired"
)

// IsValid reports whether s is a known filter
func (s Status) IsValid() bool {
	switch s {
	case StatusAll, StatusSubscribed, StatusTrial, StatusFree, StatusActive, StatusExpired:
		return true
	}
	return false
}

// Account pairs a user with their subscription and document count
type Account struct {
	User          *user.User
	Subscription  *subscription.Subscription
	DocumentCount int
}

// UserSummary is one row of the admin user list
type UserSummary struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	FullName      string            `json:"full_name,omitempty"`
	Tier          subscription.Tier `json:"tier"`
	StoredTier    subscription.Tier `json:"stored_tier"`
	DaysRemaining *int              `json:"days_remaining,omitempty"`
	DocumentCount int               `json:"document_count"`
	JoinedAt      time.Time         `json:"joined_at"`
}

// UserStats are the headline user counts
type UserStats struct {
	TotalUsers      int                       `json:"total_users"`
	SubscribedUsers int                       `json:"subscribed_users"`
	ByTier          map[subscription.Tier]int `json:"by_tier"`
	ConversionRate  float64                   `json:"conversion_rate"`
	TotalDocuments  int                       `json:"total_documents"`
}

// MonthRevenue is revenue captured in one calendar month
type MonthRevenue struct {
	Month        string `json:"month"`
	AmountMinor  int64  `json:"amount_minor"`
	PaymentCount int    `json:"payment_count"`
}

// SignupMonth counts accounts created in one calendar month and how many of
// them are subscribed now
type SignupMonth struct {
	Month      string `json:"month"`
	Signups    int    `json:"signups"`
	Subscribed int    `json:"subscribed"`
}

// Growth is the subscription growth view
type Growth struct {
	TotalUsers      int           `json:"total_users"`
	SubscribedUsers int           `json:"subscribed_users"`
	TrialUsers      int           `json:"trial_users"`
	ActiveUsers     int           `json:"active_users"`
	SubscribedRate  float64       `json:"subscribed_rate"`
	ByMonth         []SignupMonth `json:"by_month"`
}

// Aggregator answers dashboard questions for a fixed instant
type Aggregator struct {
	accounts []Account
	now      time.Time
}

// NewAggregator builds an aggregator over accounts evaluated at now
func NewAggregator(accounts []Account, now time.Time) *Aggregator {
	return &Aggregator{accounts: accounts, now: now}
}

// Now returns the instant tiers are evaluated at
func (a *Aggregator) Now() time.Time {
	return a.now
}

// TotalUsers returns the number of accounts
func (a *Aggregator) TotalUsers() int {
	return len(a.accounts)
}

// SubscribedUsers counts accounts currently on trial or paid access
func (a *Aggregator) SubscribedUsers() int {
	n := 0
	for _, acc := range a.accounts {
		if a.matches(acc, StatusSubscribed) {
			n++
		}
	}
	return n
}

// CountByTier counts accounts per current tier
func (a *Aggregator) CountByTier() map[subscription.Tier]int {
	counts := map[subscription.Tier]int{
		subscription.TierFree:    0,
		subscription.TierTrial:   0,
		subscription.TierActive:  0,
		subscription.TierExpired: 0,
	}
	for _, acc := range a.accounts {
		counts[a.tier(acc)]++
	}
	return counts
}

// ConversionRate is the share of accounts that have ever paid, in [0,1]
func (a *Aggregator) ConversionRate() float64 {
	if len(a.accounts) == 0 {
		return 0
	}
	paid := 0
	for _, acc := range a.accounts {
		if acc.Subscription != nil && acc.Subscription.RenewalAt != nil {
			paid++
		}
	}
	return float64(paid) / float64(len(a.accounts))
}

// Stats collects the headline user numbers
func (a *Aggregator) Stats() UserStats {
	docs := 0
	for _, acc := range a.accounts {
		docs += acc.DocumentCount
	}
	return UserStats{
		TotalUsers:      a.TotalUsers(),
		SubscribedUsers: a.SubscribedUsers(),
		ByTier:          a.CountByTier(),
		ConversionRate:  a.ConversionRate(),
		TotalDocuments:  docs,
	}
}

// Growth reports how many accounts are subscribed now, overall and by signup
// month in ascending order. SubscribedRate is in [0,1].
func (a *Aggregator) Growth() Growth {
	byTier := a.CountByTier()
	g := Growth{
		TotalUsers:      a.TotalUsers(),
		SubscribedUsers: a.SubscribedUsers(),
		TrialUsers:      byTier[subscription.TierTrial],
		ActiveUsers:     byTier[subscription.TierActive],
		ByMonth:         []SignupMonth{},
	}
	if g.TotalUsers > 0 {
		g.SubscribedRate = float64(g.SubscribedUsers) / float64(g.TotalUsers)
	}

	months := make(map[string]*SignupMonth)
	for _, acc := range a.accounts {
		if acc.User == nil {
			continue
		}
		key := acc.User.CreatedAt.UTC().Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &SignupMonth{Month: key}
			months[key] = m
		}
		m.Signups++
		if a.matches(acc, StatusSubscribed) {
			m.Subscribed++
		}
	}
	for _, m := range months {
		g.ByMonth = append(g.ByMonth, *m)
	}
	sort.Slice(g.ByMonth, func(i, j int) bool { return g.ByMonth[i].Month < g.ByMonth[j].Month })
	return g
}

// UsersByStatus filters accounts by their current tier, newest first
func (a *Aggregator) UsersByStatus(status Status) ([]UserSummary, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, status)
	}

	out := make([]UserSummary, 0, len(a.accounts))
	for _, acc := range a.accounts {
		if acc.User == nil || !a.matches(acc, status) {
			continue
		}
		out = append(out, a.summarize(acc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinedAt.After(out[j].JoinedAt)
	})
	return out, nil
}

func (a *Aggregator) matches(acc Account, status Status) bool {
	tier := a.tier(acc)
	switch status {
	case StatusAll:
		return true
	case StatusSubscribed:
		return tier == subscription.TierTrial || tier == subscription.TierActive
	case StatusTrial:
		return tier == subscription.TierTrial
	case StatusFree:
		return tier == subscription.TierFree
	case StatusActive:
		return tier == subscription.TierActive
	case StatusExpired:
		return tier == subscription.TierExpired
	}
	return false
}

func (a *Aggregator) tier(acc Account) subscription.Tier {
	if acc.Subscription == nil {
		return subscription.TierFree
	}
	return acc.Subscription.CurrentTier(a.now)
}

func (a *Aggregator) summarize(acc Account) UserSummary {
	s := UserSummary{
		ID:            acc.User.ID,
		Email:         acc.User.Email,
		Tier:          a.tier(acc),
		StoredTier:    subscription.TierFree,
		DocumentCount: acc.DocumentCount,
		JoinedAt:      acc.User.CreatedAt,
	}
	if acc.User.FullName != nil {
		s.FullName = *acc.User.FullName
	}
	if acc.Subscription != nil {
		s.StoredTier = acc.Subscription.Tier
		if days, ok := acc.Subscription.DaysRemaining(a.now); ok {
			s.DaysRemaining = &days
		}
	}
	return s
}

// TotalRevenue sums every recorded payment
func TotalRevenue(payments []*payment.Payment) int64 {
	var total int64
	for _, p := range payments {
		total += p.AmountMinor
	}
	return total
}

// MonthlyRevenue sums payments captured in month (YYYY-MM, UTC)
func MonthlyRevenue(payments []*payment.Payment, month string) (int64, error) {
	if _, err := ParseMonth(month); err != nil {
		return 0, err
	}
	var total int64
	for _, p := range payments {
		if p.Month() == month {
			total += p.AmountMinor
		}
	}
	return total, nil
}

// RevenueByMonth breaks revenue down per calendar month, oldest first
func RevenueByMonth(payments []*payment.Payment) []MonthRevenue {
	byMonth := make(map[string]*MonthRevenue)
	for _, p := range payments {
		m := p.Month()
		r, ok := byMonth[m]
		if !ok {
			r = &MonthRevenue{Month: m}
			byMonth[m] = r
		}
		r.AmountMinor += p.AmountMinor
		r.PaymentCount++
	}

	out := make([]MonthRevenue, 0, len(byMonth))
	for _, r := range byMonth {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ParseMonth validates a YYYY-MM month key
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month %q, want YYYY-MM", ErrInvalidFilter, month)
	}
	return t, nil
}
