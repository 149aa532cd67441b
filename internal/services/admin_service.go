package services

import (
	"context"

	"github.com/mindspero/mindspero/internal/domain/admin"
	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/payment"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/clock"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/metrics"
)

// RevenueReport is the admin revenue overview
type RevenueReport struct {
	TotalMinor   int64                `json:"total_minor"`
	PaymentCount int                  `json:"payment_count"`
	ByMonth      []admin.MonthRevenue `json:"by_month"`
}

// AdminService loads snapshots for the read-only admin dashboard
type AdminService struct {
	users    user.Repository
	subs     subscription.Repository
	docs     document.Repository
	payments payment.Repository
	clock    clock.Clock
	logger   *logger.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(users user.Repository, subs subscription.Repository, docs document.Repository, payments payment.Repository, clk clock.Clock, log *logger.Logger) *AdminService {
	return &AdminService{
		users:    users,
		subs:     subs,
		docs:     docs,
		payments: payments,
		clock:    clk,
		logger:   log,
	}
}

// Snapshot loads every account and freezes the evaluation instant
func (s *AdminService) Snapshot(ctx context.Context) (*admin.Aggregator, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.subs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.docs.CountByOwner(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*subscription.Subscription, len(subs))
	for _, sub := range subs {
		byUser[sub.UserID] = sub
	}

	accounts := make([]admin.Account, 0, len(users))
	for _, u := range users {
		accounts = append(accounts, admin.Account{
			User:          u,
			Subscription:  byUser[u.ID],
			DocumentCount: counts[u.ID],
		})
	}
	return admin.NewAggregator(accounts, s.clock.Now()), nil
}

// UserStats returns user totals, per-tier counts and the conversion rate
func (s *AdminService) UserStats(ctx context.Context) (*admin.UserStats, error) {
	agg, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := agg.Stats()
	return &stats, nil
}

// Users lists accounts matching a status filter, newest first
func (s *AdminService) Users(ctx context.Context, status admin.Status) ([]admin.UserSummary, error) {
	if status == "" {
		status = admin.StatusAll
	}
	agg, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return agg.UsersByStatus(status)
}

// Revenue returns total revenue with a per-month breakdown
func (s *AdminService) Revenue(ctx context.Context) (*RevenueReport, error) {
	payments, err := s.payments.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return &RevenueReport{
		TotalMinor:   admin.TotalRevenue(payments),
		PaymentCount: len(payments),
		ByMonth:      admin.RevenueByMonth(payments),
	}, nil
}

// MonthlyRevenue returns revenue for one YYYY-MM month
func (s *AdminService) MonthlyRevenue(ctx context.Context, month string) (*admin.MonthRevenue, error) {
	if _, err := admin.ParseMonth(month); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := admin.MonthlyRevenue(payments, month)
	if err != nil {
		return nil, err
	}
	out := &admin.MonthRevenue{Month: month, AmountMinor: amount}
	for _, p := range payments {
		if p.Month() == month {
			out.PaymentCount++
		}
	}
	return out, nil
}

// Growth returns subscribed counts overall and by signup month
func (s *AdminService) Growth(ctx context.Context) (*admin.Growth, error) {
	agg, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	growth := agg.Growth()
	return &growth, nil
}

// User retrieves one account by ID
func (s *AdminService) User(ctx context.Context, id string) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}

// UserPayments lists one user's payments, newest first
func (s *AdminService) UserPayments(ctx context.Context, userID string) ([]*payment.Payment, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.payments.ListByUser(ctx, userID)
}

// Payments lists every recorded payment, newest first
func (s *AdminService) Payments(ctx context.Context) ([]*payment.Payment, error) {
	return s.payments.ListAll(ctx)
}

// RefreshGauges publishes per-tier and per-stage counts to Prometheus
func (s *AdminService) RefreshGauges(ctx context.Context) error {
	agg, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	byTier := agg.CountByTier()
	for _, tier := range []subscription.Tier{
		subscription.TierFree, subscription.TierTrial, subscription.TierActive, subscription.TierExpired,
	} {
		metrics.SetUsersByTier(string(tier), float64(byTier[tier]))
	}

	byStage, err := s.docs.CountByStage(ctx)
	if err != nil {
		return err
	}
	for _, stage := range document.Stages() {
		metrics.SetDocumentsByStage(string(stage), float64(byStage[stage]))
	}

	s.logger.WithFields(map[string]interface{}{
		"users": agg.TotalUsers(),
	}).Debug("Dashboard gauges refreshed")
	return nil
}
