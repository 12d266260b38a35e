package service

import (
	"context"
	"fmt"

	"bch-paywall/internal/core/domain"
	"bch-paywall/internal/core/ports"
	"bch-paywall/internal/metrics"
	"bch-paywall/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentSessionServiceImpl implements ports.PaymentSessionService.
type PaymentSessionServiceImpl struct {
	repo       ports.SessionRepository
	issuer     ports.AddressIssuer
	policy     ports.ConfirmationPolicy
	modeSource ports.ModeSource
	clock      ports.Clock
	log        zerolog.Logger
}

// NewPaymentSessionService creates a new PaymentSessionServiceImpl.
func NewPaymentSessionService(
	repo ports.SessionRepository,
	issuer ports.AddressIssuer,
	policy ports.ConfirmationPolicy,
	modeSource ports.ModeSource,
	clock ports.Clock,
	log zerolog.Logger,
) *PaymentSessionServiceImpl {
	return &PaymentSessionServiceImpl{
		repo:       repo,
		issuer:     issuer,
		policy:     policy,
		modeSource: modeSource,
		clock:      clock,
		log:        log,
	}
}

// CreateSession allocates a fresh address and persists a pending session.
func (s *PaymentSessionServiceImpl) CreateSession(ctx context.Context, amount decimal.Decimal) (*domain.PaymentSession, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	address, err := s.issuer.Issue(ctx)
	if err != nil {
		return nil, err
	}

	session := domain.NewPaymentSession(address, amount, s.clock.Now())
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create session: %w", err))
	}

	metrics.SessionsCreatedTotal.Inc()
	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("address", session.PaymentAddress).
		Str("amount", amount.String()).
		Msg("payment session created")

	return session, nil
}

// GetStatus resolves the session, runs the confirmation check for pending
// sessions, and promotes them to paid when the threshold is met. Paid is
// monotonic: once set it is never re-derived or reverted.
func (s *PaymentSessionServiceImpl) GetStatus(ctx context.Context, ref ports.SessionRef) (*ports.SessionStatus, error) {
	session, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if session == nil {
		metrics.StatusChecksTotal.WithLabelValues("not_found").Inc()
		return nil, apperror.ErrSessionNotFound()
	}

	if session.Paid {
		metrics.StatusChecksTotal.WithLabelValues("already_paid").Inc()
		return statusOf(session), nil
	}

	confirmed, err := s.policy.IsConfirmed(ctx, session)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("confirmation check: %w", err))
	}
	if !confirmed {
		metrics.StatusChecksTotal.WithLabelValues("pending").Inc()
		return statusOf(session), nil
	}

	// A concurrent poll may have marked the session already. The update is
	// conditional on paid = FALSE, so the flag is written exactly once and a
	// zero-row outcome is not an error.
	flipped, err := s.repo.MarkPaid(ctx, session.ID, s.clock.Now())
	if err != nil {
		// The payment is confirmed on chain. Report paid and let the next
		// poll retry the write.
		s.log.Error().Err(err).
			Str("session_id", session.ID.String()).
			Msg("failed to persist paid flag, will retry on next poll")
	} else if flipped {
		// Only the poll that performed the transition counts it; losers of
		// the race see flipped = false.
		mode := string(s.modeSource.Mode())
		metrics.SessionsConfirmedTotal.WithLabelValues(mode).Inc()
		s.log.Info().
			Str("session_id", session.ID.String()).
			Str("address", session.PaymentAddress).
			Str("mode", mode).
			Msg("payment session confirmed")
	}

	session.Paid = true
	metrics.StatusChecksTotal.WithLabelValues("confirmed").Inc()
	return statusOf(session), nil
}

// resolve looks the session up by ID when given, otherwise by address.
func (s *PaymentSessionServiceImpl) resolve(ctx context.Context, ref ports.SessionRef) (*domain.PaymentSession, error) {
	switch {
	case ref.SessionID != nil:
		session, err := s.repo.GetByID(ctx, *ref.SessionID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get session by id: %w", err))
		}
		return session, nil
	case ref.Address != "":
		session, err := s.repo.GetByAddress(ctx, ref.Address)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get session by address: %w", err))
		}
		return session, nil
	default:
		return nil, apperror.Validation("session_id or address is required")
	}
}

func statusOf(session *domain.PaymentSession) *ports.SessionStatus {
	return &ports.SessionStatus{
		SessionID: session.ID,
		Address:   session.PaymentAddress,
		Amount:    session.AmountRequired,
		Paid:      session.Paid,
	}
}
