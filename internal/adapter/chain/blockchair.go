package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bch-paywall/internal/core/ports"
)

// BlockchairProvider queries the Blockchair dashboards API. Balances are
// reported in integer satoshis.
type BlockchairProvider struct {
	baseURL string
	client  *http.Client
}

func NewBlockchairProvider(baseURL string, client *http.Client) *BlockchairProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &BlockchairProvider{baseURL: baseURL, client: client}
}

func (p *BlockchairProvider) Name() string { return "blockchair" }

type blockchairAddress struct {
	Balance            int64 `json:"balance"`
	UnconfirmedBalance int64 `json:"unconfirmed_balance"`
}

type blockchairDashboard struct {
	Data map[string]struct {
		Address blockchairAddress `json:"address"`
	} `json:"data"`
}

func (p *BlockchairProvider) QueryBalance(ctx context.Context, address string) (ports.BalanceSnapshot, error) {
	var snap ports.BalanceSnapshot

	url := fmt.Sprintf("%s/bitcoin-cash/dashboards/address/%s", p.baseURL, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return snap, fmt.Errorf("blockchair: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return snap, fmt.Errorf("blockchair: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("blockchair: unexpected status %d", resp.StatusCode)
	}

	var dashboard blockchairDashboard
	if err := json.NewDecoder(resp.Body).Decode(&dashboard); err != nil {
		return snap, fmt.Errorf("blockchair: decode response: %w", err)
	}

	// The data map is keyed by the queried address in whichever form
	// Blockchair normalized it to, so take the single entry.
	entry, ok := dashboard.Data[address]
	if !ok {
		if bare := stripCashAddrPrefix(address); bare != address {
			entry, ok = dashboard.Data[bare]
		}
		if !ok {
			for _, v := range dashboard.Data {
				entry = v
				ok = true
				break
			}
		}
	}
	if !ok {
		return snap, fmt.Errorf("blockchair: address %s missing from response", address)
	}

	snap.Confirmed = satoshisToBCH(entry.Address.Balance)
	snap.Unconfirmed = satoshisToBCH(entry.Address.UnconfirmedBalance)
	return snap, nil
}
