package ports

import (
	"context"
	"time"

	"bch-paywall/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddressIssuer produces a fresh receiving address per session. The returned
// address must not be assigned to any other unpaid session.
type AddressIssuer interface {
	Issue(ctx context.Context) (string, error)
}

// BalanceSnapshot is the oracle's normalized view of an address's funds,
// denominated in BCH regardless of the provider's native units.
type BalanceSnapshot struct {
	Confirmed   decimal.Decimal
	Unconfirmed decimal.Decimal
}

// Total returns confirmed + unconfirmed balance.
func (s BalanceSnapshot) Total() decimal.Decimal {
	return s.Confirmed.Add(s.Unconfirmed)
}

// BalanceOracle queries external chain-data providers for address balances.
type BalanceOracle interface {
	// QueryBalance returns the first usable snapshot from the ranked provider
	// list. Individual provider failures are skipped; only exhaustion of all
	// providers returns an error.
	QueryBalance(ctx context.Context, address string) (BalanceSnapshot, error)
	// ScanOutputs reports whether any single recent transaction output to the
	// address meets the threshold. Best-effort secondary detection: callers
	// must not treat its failure as fatal when a balance snapshot succeeded.
	ScanOutputs(ctx context.Context, address string, threshold decimal.Decimal) (bool, error)
}

// SnapshotCache is a best-effort short-TTL cache in front of the oracle so
// that hot polling does not hammer the public provider APIs.
type SnapshotCache interface {
	Get(ctx context.Context, address string) (*BalanceSnapshot, error) // nil, nil on miss
	Set(ctx context.Context, address string, snap BalanceSnapshot, ttl time.Duration) error
}

// ConfirmationMode selects how sessions are confirmed.
type ConfirmationMode string

const (
	// ModeLive confirms against real chain-data providers.
	ModeLive ConfirmationMode = "live"
	// ModeTest confirms deterministically after a fixed delay, with no
	// network dependency.
	ModeTest ConfirmationMode = "test"
)

// ModeSource yields the active confirmation mode. It is consulted on every
// check rather than cached, so a runtime flip is observed on the next poll.
type ModeSource interface {
	Mode() ConfirmationMode
}

// Clock abstracts time for the deterministic test mode.
type Clock interface {
	Now() time.Time
}

// ConfirmationPolicy decides whether a session counts as paid.
type ConfirmationPolicy interface {
	// IsConfirmed is fail-closed: when every provider is unreachable it
	// returns (false, nil) so the poller simply tries again.
	IsConfirmed(ctx context.Context, session *domain.PaymentSession) (bool, error)
}

// --- Service Ports (Business Logic) ---

// SessionRef identifies a session by ID or by payment address.
type SessionRef struct {
	SessionID *uuid.UUID
	Address   string
}

// SessionStatus is the polling result returned to clients.
type SessionStatus struct {
	SessionID uuid.UUID
	Address   string
	Amount    decimal.Decimal
	Paid      bool
}

// PaymentSessionService orchestrates the session lifecycle.
type PaymentSessionService interface {
	CreateSession(ctx context.Context, amount decimal.Decimal) (*domain.PaymentSession, error)
	GetStatus(ctx context.Context, ref SessionRef) (*SessionStatus, error)
}

// TokenService handles JWT token operations for the admin surface.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// HashService handles password hashing (Argon2id) for the admin credential.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// AdminService authenticates the dashboard operator.
type AdminService interface {
	Login(ctx context.Context, password string) (string, time.Time, error) // token, expiry, error
}

// ReportingService defines dashboard/reporting business logic.
type ReportingService interface {
	GetStats(ctx context.Context, period string) (*SessionStats, error)
	ListSessions(ctx context.Context, params SessionListParams) ([]domain.PaymentSession, int64, error)
}
