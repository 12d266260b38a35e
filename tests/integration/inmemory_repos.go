package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"bch-paywall/internal/core/domain"
	"bch-paywall/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errAllDown = errors.New("all providers unreachable")

// inMemorySessionRepo implements ports.SessionRepository for integration
// tests. MarkPaid is conditional on paid = FALSE, mirroring the SQL update,
// and counts actual transitions so tests can assert exactly-once writes.
type inMemorySessionRepo struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*domain.PaymentSession
	paidFlips int64
}

func newInMemorySessionRepo() *inMemorySessionRepo {
	return &inMemorySessionRepo{sessions: make(map[uuid.UUID]*domain.PaymentSession)}
}

func (r *inMemorySessionRepo) Create(_ context.Context, session *domain.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *inMemorySessionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *inMemorySessionRepo) GetByAddress(_ context.Context, address string) (*domain.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	// Prefer the pending session on the address; an address is reusable once
	// its previous session is paid.
	var latest *domain.PaymentSession
	for _, s := range r.sessions {
		if s.PaymentAddress != address {
			continue
		}
		if !s.Paid {
			cp := *s
			return &cp, nil
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *inMemorySessionRepo) AddressInUse(_ context.Context, address string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.PaymentAddress == address && !s.Paid {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemorySessionRepo) MarkPaid(_ context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Paid {
		// Zero rows affected is not an error.
		return false, nil
	}
	s.Paid = true
	s.UpdatedAt = paidAt
	atomic.AddInt64(&r.paidFlips, 1)
	return true, nil
}

func (r *inMemorySessionRepo) List(_ context.Context, params ports.SessionListParams) ([]domain.PaymentSession, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.PaymentSession
	for _, s := range r.sessions {
		if params.Paid != nil && s.Paid != *params.Paid {
			continue
		}
		if params.From != nil && s.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && s.CreatedAt.Unix() > *params.To {
			continue
		}
		matched = append(matched, *s)
	}

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemorySessionRepo) GetStats(_ context.Context, periodStart *int64) (*ports.SessionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ports.SessionStats{TotalRevenue: decimal.Zero}
	for _, s := range r.sessions {
		if periodStart != nil && s.CreatedAt.Unix() < *periodStart {
			continue
		}
		stats.TotalSessions++
		if s.Paid {
			stats.PaidSessions++
			stats.TotalRevenue = stats.TotalRevenue.Add(s.AmountRequired)
		} else {
			stats.PendingSessions++
		}
	}
	return stats, nil
}

func (r *inMemorySessionRepo) paidTransitions() int64 {
	return atomic.LoadInt64(&r.paidFlips)
}

// fakeOracle implements ports.BalanceOracle with controllable balances so
// tests can fund an address or take every provider down.
type fakeOracle struct {
	mu       sync.RWMutex
	balances map[string]ports.BalanceSnapshot
	down     bool
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{balances: make(map[string]ports.BalanceSnapshot)}
}

func (o *fakeOracle) fund(address string, confirmed, unconfirmed string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.balances[address] = ports.BalanceSnapshot{
		Confirmed:   decimal.RequireFromString(confirmed),
		Unconfirmed: decimal.RequireFromString(unconfirmed),
	}
}

func (o *fakeOracle) setDown(down bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.down = down
}

func (o *fakeOracle) QueryBalance(_ context.Context, address string) (ports.BalanceSnapshot, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.down {
		return ports.BalanceSnapshot{}, errAllDown
	}
	return o.balances[address], nil
}

func (o *fakeOracle) ScanOutputs(_ context.Context, address string, threshold decimal.Decimal) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.down {
		return false, errAllDown
	}
	snap := o.balances[address]
	return snap.Confirmed.GreaterThanOrEqual(threshold), nil
}
