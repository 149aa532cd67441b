package payment

import (
	"errors"
	"time"
)

// ErrDuplicateReference is returned when a provider reference was already recorded
var ErrDuplicateReference = errors.New("payment: reference already recorded")

// Payment is one captured charge
type Payment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Reference   string    `json:"reference"`
	Plan        string    `json:"plan"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	PaidAt      time.Time `json:"paid_at"`
}

// Month returns the calendar month the payment falls in, as YYYY-MM in UTC
func (p *Payment) Month() string {
	return p.PaidAt.UTC().Format("2006-01")
}
