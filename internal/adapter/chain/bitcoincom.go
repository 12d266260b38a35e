package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bch-paywall/internal/core/ports"

	"github.com/shopspring/decimal"
)

// BitcoinComProvider queries the rest.bitcoin.com v2 REST API. Balances are
// reported as decimal BCH strings/numbers, not satoshis.
type BitcoinComProvider struct {
	baseURL string
	client  *http.Client
}

func NewBitcoinComProvider(baseURL string, client *http.Client) *BitcoinComProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &BitcoinComProvider{baseURL: baseURL, client: client}
}

func (p *BitcoinComProvider) Name() string { return "bitcoin.com" }

type bitcoinComDetails struct {
	Balance            json.Number `json:"balance"`
	UnconfirmedBalance json.Number `json:"unconfirmedBalance"`
}

func (p *BitcoinComProvider) QueryBalance(ctx context.Context, address string) (ports.BalanceSnapshot, error) {
	var snap ports.BalanceSnapshot

	url := fmt.Sprintf("%s/address/details/%s", p.baseURL, stripCashAddrPrefix(address))
	var details bitcoinComDetails
	if err := p.getJSON(ctx, url, &details); err != nil {
		return snap, err
	}

	confirmed, err := decimal.NewFromString(details.Balance.String())
	if err != nil {
		return snap, fmt.Errorf("bitcoin.com: parse balance %q: %w", details.Balance, err)
	}
	unconfirmed, err := decimal.NewFromString(details.UnconfirmedBalance.String())
	if err != nil {
		return snap, fmt.Errorf("bitcoin.com: parse unconfirmed balance %q: %w", details.UnconfirmedBalance, err)
	}

	snap.Confirmed = confirmed
	snap.Unconfirmed = unconfirmed
	return snap, nil
}

type bitcoinComTxPage struct {
	Txs []struct {
		Vout []struct {
			Value        string `json:"value"`
			ScriptPubKey struct {
				CashAddrs []string `json:"cashAddrs"`
			} `json:"scriptPubKey"`
		} `json:"vout"`
	} `json:"txs"`
}

// ListRecentOutputs returns the values of outputs paying the address in its
// most recent page of transactions.
func (p *BitcoinComProvider) ListRecentOutputs(ctx context.Context, address string) ([]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/address/transactions/%s", p.baseURL, stripCashAddrPrefix(address))
	var page bitcoinComTxPage
	if err := p.getJSON(ctx, url, &page); err != nil {
		return nil, err
	}

	full := address
	bare := stripCashAddrPrefix(address)
	var outputs []decimal.Decimal
	for _, tx := range page.Txs {
		for _, vout := range tx.Vout {
			if !addrListContains(vout.ScriptPubKey.CashAddrs, full, bare) {
				continue
			}
			value, err := decimal.NewFromString(vout.Value)
			if err != nil {
				continue
			}
			outputs = append(outputs, value)
		}
	}
	return outputs, nil
}

func addrListContains(addrs []string, full, bare string) bool {
	for _, a := range addrs {
		if a == full || a == bare || stripCashAddrPrefix(a) == bare {
			return true
		}
	}
	return false
}

func (p *BitcoinComProvider) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("bitcoin.com: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("bitcoin.com: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bitcoin.com: unexpected status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("bitcoin.com: decode response: %w", err)
	}
	return nil
}
