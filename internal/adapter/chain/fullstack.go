package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bch-paywall/internal/core/ports"
)

// FullstackProvider queries the FullStack.cash ElectrumX gateway. Balances
// are reported in integer satoshis.
type FullstackProvider struct {
	baseURL string
	client  *http.Client
}

func NewFullstackProvider(baseURL string, client *http.Client) *FullstackProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &FullstackProvider{baseURL: baseURL, client: client}
}

func (p *FullstackProvider) Name() string { return "fullstack.cash" }

type fullstackBalance struct {
	Success bool `json:"success"`
	Balance struct {
		Confirmed   int64 `json:"confirmed"`
		Unconfirmed int64 `json:"unconfirmed"`
	} `json:"balance"`
}

func (p *FullstackProvider) QueryBalance(ctx context.Context, address string) (ports.BalanceSnapshot, error) {
	var snap ports.BalanceSnapshot

	url := fmt.Sprintf("%s/electrumx/balance/%s", p.baseURL, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return snap, fmt.Errorf("fullstack.cash: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return snap, fmt.Errorf("fullstack.cash: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("fullstack.cash: unexpected status %d", resp.StatusCode)
	}

	var body fullstackBalance
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return snap, fmt.Errorf("fullstack.cash: decode response: %w", err)
	}
	if !body.Success {
		return snap, fmt.Errorf("fullstack.cash: request unsuccessful")
	}

	snap.Confirmed = satoshisToBCH(body.Balance.Confirmed)
	snap.Unconfirmed = satoshisToBCH(body.Balance.Unconfirmed)
	return snap, nil
}
