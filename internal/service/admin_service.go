package service

import (
	"context"
	"fmt"
	"time"

	"bch-paywall/internal/core/ports"
	"bch-paywall/pkg/apperror"

	"github.com/rs/zerolog"
)

// adminSubject is the JWT subject for the single dashboard operator.
const adminSubject = "admin"

// AdminServiceImpl implements ports.AdminService. The dashboard has a single
// operator authenticated by one Argon2id-hashed password from configuration.
type AdminServiceImpl struct {
	passwordHash string
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
	log          zerolog.Logger
}

// NewAdminService creates a new AdminServiceImpl.
func NewAdminService(
	passwordHash string,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AdminServiceImpl {
	return &AdminServiceImpl{
		passwordHash: passwordHash,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
		log:          log,
	}
}

// Login validates the operator password and returns a JWT token.
func (s *AdminServiceImpl) Login(ctx context.Context, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("admin password hash not configured"))
	}

	valid, err := s.hashSvc.Verify(password, s.passwordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		s.log.Warn().Msg("admin login rejected: wrong password")
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(adminSubject)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Time("expires_at", expiry).Msg("admin login succeeded")
	return token, expiry, nil
}
