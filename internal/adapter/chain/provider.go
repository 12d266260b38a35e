// Package chain contains adapters for public BCH chain-data APIs. Each
// provider normalizes its native reporting units (decimal BCH or integer
// satoshis) to decimal BCH so the oracle can treat them interchangeably.
package chain

import (
	"context"
	"strings"

	"bch-paywall/internal/core/ports"

	"github.com/shopspring/decimal"
)

// Provider fetches balance data for a single address from an external
// blockchain API.
type Provider interface {
	// Name returns the provider's display name (e.g. "bitcoin.com").
	Name() string

	// QueryBalance returns the address's confirmed and unconfirmed balance
	// in BCH. Implementations honor ctx cancellation and deadlines.
	QueryBalance(ctx context.Context, address string) (ports.BalanceSnapshot, error)
}

// TxLister is implemented by providers that can enumerate recent transaction
// output values for an address. Used by the oracle's secondary detection
// mode: looking for one output that alone meets the payment threshold.
type TxLister interface {
	ListRecentOutputs(ctx context.Context, address string) ([]decimal.Decimal, error)
}

var satoshisPerBCH = decimal.New(1, 8) // 1e8

// satoshisToBCH converts integer base units to decimal BCH.
func satoshisToBCH(sat int64) decimal.Decimal {
	return decimal.NewFromInt(sat).Div(satoshisPerBCH)
}

// stripCashAddrPrefix removes the "bitcoincash:" prefix. Some APIs accept
// both forms, some only the bare payload.
func stripCashAddrPrefix(address string) string {
	return strings.TrimPrefix(address, "bitcoincash:")
}
