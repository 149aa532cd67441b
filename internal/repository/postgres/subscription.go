package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/pkg/errors"
)

// SubscriptionRepository implements subscription.Repository
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *sql.DB) subscription.Repository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `user_id, tier, plan, trial_started_at, trial_length_days, renewal_at,
	bonus_days_credited, cancelled_at, version, created_at, updated_at`

func scanSubscription(row rowScanner) (*subscription.Subscription, error) {
	var s subscription.Subscription
	var tier string
	var trialStartedAt, renewalAt, cancelledAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&s.UserID, &tier, &s.Plan, &trialStartedAt, &s.TrialLengthDays, &renewalAt,
		&s.BonusDaysCredited, &cancelledAt, &s.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.Tier = subscription.Tier(tier)
	s.TrialStartedAt = fromNullUnix(trialStartedAt)
	s.RenewalAt = fromNullUnix(renewalAt)
	s.CancelledAt = fromNullUnix(cancelledAt)
	s.CreatedAt = fromUnix(createdAt)
	s.UpdatedAt = fromUnix(updatedAt)
	return &s, nil
}

// Create stores the initial subscription for a user
func (r *SubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	stamp(&s.CreatedAt, time.Now())
	s.UpdatedAt = s.CreatedAt
	if s.Version == 0 {
		s.Version = 1
	}

	query := `
		INSERT INTO subscriptions (user_id, tier, plan, trial_started_at, trial_length_days, renewal_at,
			bonus_days_credited, cancelled_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, string(s.Tier), s.Plan, nullUnix(s.TrialStartedAt), s.TrialLengthDays, nullUnix(s.RenewalAt),
		s.BonusDaysCredited, nullUnix(s.CancelledAt), s.Version, s.CreatedAt.Unix(), s.UpdatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return errors.Conflict("Subscription already exists")
	}
	if err != nil {
		return errors.DatabaseError("Failed to create subscription", err)
	}
	return nil
}

// GetByUserID retrieves the subscription for a user
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`

	s, err := scanSubscription(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Subscription")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get subscription", err)
	}
	return s, nil
}

// Update is a compare-and-swap on version. On success s.Version is advanced.
// s.UpdatedAt is written as given; a zero value means now.
func (r *SubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	stamp(&s.UpdatedAt, time.Now())

	query := `
		UPDATE subscriptions
		SET tier = $1, plan = $2, trial_started_at = $3, trial_length_days = $4, renewal_at = $5,
			bonus_days_credited = $6, cancelled_at = $7, version = $8, updated_at = $9
		WHERE user_id = $10 AND version = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		string(s.Tier), s.Plan, nullUnix(s.TrialStartedAt), s.TrialLengthDays, nullUnix(s.RenewalAt),
		s.BonusDaysCredited, nullUnix(s.CancelledAt), s.Version+1, s.UpdatedAt.Unix(),
		s.UserID, s.Version,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update subscription", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		if _, err := r.GetByUserID(ctx, s.UserID); err != nil {
			return err
		}
		return subscription.ErrConflict
	}

	s.Version++
	return nil
}

// ListAll retrieves every subscription
func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]*subscription.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list subscriptions", err)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan subscription", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list subscriptions", err)
	}
	return subs, nil
}
