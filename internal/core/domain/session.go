package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentSession represents one offer of content at a price: a fresh
// receiving address awaiting an on-chain payment.
//
// Paid is monotonic. Once a session transitions to paid it never reverts,
// and re-confirming an already-paid session is a no-op.
type PaymentSession struct {
	ID             uuid.UUID       `json:"id"`
	PaymentAddress string          `json:"payment_address"`
	AmountRequired decimal.Decimal `json:"amount_required"` // BCH
	Paid           bool            `json:"paid"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewPaymentSession creates a pending session for the given address and amount.
func NewPaymentSession(address string, amount decimal.Decimal, now time.Time) *PaymentSession {
	return &PaymentSession{
		ID:             uuid.New(),
		PaymentAddress: address,
		AmountRequired: amount,
		Paid:           false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsPending returns true if the session has not been confirmed yet.
func (s *PaymentSession) IsPending() bool {
	return !s.Paid
}

// MeetsThreshold reports whether the given total balance satisfies the
// session's required amount. Unconfirmed funds count toward the total:
// for micro-payments the domain accepts settlement risk in exchange for
// instant unlock.
func (s *PaymentSession) MeetsThreshold(total decimal.Decimal) bool {
	return total.GreaterThanOrEqual(s.AmountRequired)
}
