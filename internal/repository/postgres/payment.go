package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/mindspero/mindspero/internal/domain/payment"
	"github.com/mindspero/mindspero/internal/pkg/errors"
)

// PaymentRepository implements payment.Repository
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB) payment.Repository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, user_id, reference, plan, amount_minor, currency, paid_at`

func scanPayment(row rowScanner) (*payment.Payment, error) {
	var p payment.Payment
	var paidAt int64
	if err := row.Scan(&p.ID, &p.UserID, &p.Reference, &p.Plan, &p.AmountMinor, &p.Currency, &paidAt); err != nil {
		return nil, err
	}
	p.PaidAt = fromUnix(paidAt)
	return &p, nil
}

// Create records a payment; references are unique
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	stamp(&p.PaidAt, time.Now())

	query := `
		INSERT INTO payments (id, user_id, reference, plan, amount_minor, currency, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Reference, p.Plan, p.AmountMinor, p.Currency, p.PaidAt.Unix(),
	)
	if isUniqueViolation(err) {
		return payment.ErrDuplicateReference
	}
	if err != nil {
		return errors.DatabaseError("Failed to record payment", err)
	}
	return nil
}

// DeleteByReference removes a payment by provider reference
func (r *PaymentRepository) DeleteByReference(ctx context.Context, reference string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE reference = $1`, reference); err != nil {
		return errors.DatabaseError("Failed to delete payment", err)
	}
	return nil
}

// ListByUser retrieves a user's payments, newest first
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]*payment.Payment, error) {
	return r.query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY paid_at DESC, id`, userID)
}

// ListAll retrieves every payment, newest first
func (r *PaymentRepository) ListAll(ctx context.Context) ([]*payment.Payment, error) {
	return r.query(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY paid_at DESC, id`)
}

func (r *PaymentRepository) query(ctx context.Context, query string, args ...interface{}) ([]*payment.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list payments", err)
	}
	defer rows.Close()

	payments := []*payment.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan payment", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list payments", err)
	}
	return payments, nil
}
