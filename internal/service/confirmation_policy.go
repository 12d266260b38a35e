package service

import (
	"context"
	"time"

	"bch-paywall/internal/core/domain"
	"bch-paywall/internal/core/ports"

	"github.com/rs/zerolog"
)

// ConfirmationPolicyImpl implements ports.ConfirmationPolicy. The mode is
// read from the source on every check, so a runtime flip takes effect on the
// next poll without touching in-flight sessions.
type ConfirmationPolicyImpl struct {
	oracle     ports.BalanceOracle
	modeSource ports.ModeSource
	clock      ports.Clock
	testDelay  time.Duration
	log        zerolog.Logger
}

// NewConfirmationPolicy creates a new ConfirmationPolicyImpl.
func NewConfirmationPolicy(
	oracle ports.BalanceOracle,
	modeSource ports.ModeSource,
	clock ports.Clock,
	testDelay time.Duration,
	log zerolog.Logger,
) *ConfirmationPolicyImpl {
	return &ConfirmationPolicyImpl{
		oracle:     oracle,
		modeSource: modeSource,
		clock:      clock,
		testDelay:  testDelay,
		log:        log,
	}
}

// IsConfirmed reports whether the session's payment threshold has been met.
// Fail-closed: when every provider is unreachable the answer is (false, nil)
// and the poller simply tries again later.
func (p *ConfirmationPolicyImpl) IsConfirmed(ctx context.Context, session *domain.PaymentSession) (bool, error) {
	if session.Paid {
		return true, nil
	}

	if p.modeSource.Mode() == ports.ModeTest {
		return p.clock.Now().Sub(session.CreatedAt) >= p.testDelay, nil
	}

	snap, err := p.oracle.QueryBalance(ctx, session.PaymentAddress)
	if err != nil {
		p.log.Warn().Err(err).
			Str("session_id", session.ID.String()).
			Str("address", session.PaymentAddress).
			Msg("balance lookup unavailable, session stays pending")
		return false, nil
	}

	if session.MeetsThreshold(snap.Total()) {
		return true, nil
	}

	// Secondary detection: one recent output that alone meets the threshold.
	// Best-effort; a scan failure leaves the balance verdict in place.
	ok, err := p.oracle.ScanOutputs(ctx, session.PaymentAddress, session.AmountRequired)
	if err != nil {
		p.log.Debug().Err(err).
			Str("session_id", session.ID.String()).
			Msg("output scan unavailable")
		return false, nil
	}
	return ok, nil
}
