package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"bch-paywall/internal/core/ports"
	"bch-paywall/pkg/apperror"

	"github.com/rs/zerolog"
)

// CashAddr payload alphabet (bech32 charset).
const cashAddrCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

const (
	addrPayloadLen   = 42
	maxIssueAttempts = 5
)

// DemoAddressIssuer implements ports.AddressIssuer by generating random
// CashAddr-shaped addresses and rejecting ones already assigned to an unpaid
// session. Demo stand-in for a real HD-wallet derivation backend.
type DemoAddressIssuer struct {
	repo ports.SessionRepository
	log  zerolog.Logger
}

func NewDemoAddressIssuer(repo ports.SessionRepository, log zerolog.Logger) *DemoAddressIssuer {
	return &DemoAddressIssuer{repo: repo, log: log}
}

// Issue returns an address not assigned to any pending session. Gives up
// after a bounded number of collision retries.
func (i *DemoAddressIssuer) Issue(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		address, err := randomCashAddr()
		if err != nil {
			return "", apperror.ErrAddressExhausted(fmt.Errorf("generate address: %w", err))
		}

		inUse, err := i.repo.AddressInUse(ctx, address)
		if err != nil {
			lastErr = err
			continue
		}
		if inUse {
			i.log.Debug().Str("address", address).Msg("address collision, regenerating")
			continue
		}
		return address, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no free address after %d attempts", maxIssueAttempts)
	}
	return "", apperror.ErrAddressExhausted(lastErr)
}

func randomCashAddr() (string, error) {
	buf := make([]byte, addrPayloadLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("bitcoincash:q")
	for _, b := range buf[:addrPayloadLen-1] {
		sb.WriteByte(cashAddrCharset[int(b)%len(cashAddrCharset)])
	}
	return sb.String(), nil
}
