package ports

import (
	"context"
	"time"

	"bch-paywall/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionRepository defines persistence operations for payment sessions.
// It is the single source of truth for the paid flag.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.PaymentSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentSession, error)
	GetByAddress(ctx context.Context, address string) (*domain.PaymentSession, error)
	// AddressInUse reports whether any pending (unpaid) session currently
	// holds the given address. Reusing an address across concurrent unpaid
	// sessions would make confirmation ambiguous.
	AddressInUse(ctx context.Context, address string) (bool, error)
	// MarkPaid performs the idempotent pending->paid transition: the row is
	// updated only if paid is still false. Updating an already-paid session
	// is a no-op, never an error. The bool reports whether this call flipped
	// the row, so a lost race against a concurrent poll is distinguishable
	// from a real transition.
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error)
	// Reporting queries
	List(ctx context.Context, params SessionListParams) ([]domain.PaymentSession, int64, error)
	GetStats(ctx context.Context, periodStart *int64) (*SessionStats, error)
}

// SessionListParams holds filter + pagination for listing sessions.
type SessionListParams struct {
	Paid     *bool
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// SessionStats holds aggregated session statistics for the admin dashboard.
type SessionStats struct {
	TotalSessions   int64
	PaidSessions    int64
	PendingSessions int64
	TotalRevenue    decimal.Decimal // Sum of paid session amounts, BCH
}
