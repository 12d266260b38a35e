package chain

import (
	"context"
	"time"

	"bch-paywall/internal/core/ports"
	"bch-paywall/internal/metrics"
	"bch-paywall/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FailoverOracle implements ports.BalanceOracle over a ranked provider list.
// Providers are tried in order with a per-provider timeout; a failure is
// logged and the next provider is tried. Only exhaustion of the whole list
// surfaces an error.
type FailoverOracle struct {
	providers []Provider
	cache     ports.SnapshotCache
	timeout   time.Duration
	cacheTTL  time.Duration
	log       zerolog.Logger
}

// NewFailoverOracle creates an oracle over the given providers. cache may be
// nil to disable snapshot caching.
func NewFailoverOracle(
	providers []Provider,
	cache ports.SnapshotCache,
	timeout time.Duration,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *FailoverOracle {
	return &FailoverOracle{
		providers: providers,
		cache:     cache,
		timeout:   timeout,
		cacheTTL:  cacheTTL,
		log:       log,
	}
}

// QueryBalance returns the first usable snapshot from the provider list.
func (o *FailoverOracle) QueryBalance(ctx context.Context, address string) (ports.BalanceSnapshot, error) {
	if o.cache != nil {
		cached, err := o.cache.Get(ctx, address)
		if err != nil {
			o.log.Warn().Err(err).Str("address", address).Msg("snapshot cache read failed, querying providers")
		}
		if cached != nil {
			metrics.SnapshotCacheHitsTotal.WithLabelValues("hit").Inc()
			return *cached, nil
		}
		metrics.SnapshotCacheHitsTotal.WithLabelValues("miss").Inc()
	}

	var lastErr error
	for _, p := range o.providers {
		snap, err := o.queryProvider(ctx, p, address)
		if err != nil {
			lastErr = err
			o.log.Warn().Err(err).
				Str("provider", p.Name()).
				Str("address", address).
				Msg("provider query failed, trying next")
			continue
		}

		if o.cache != nil {
			if err := o.cache.Set(ctx, address, snap, o.cacheTTL); err != nil {
				o.log.Warn().Err(err).Str("address", address).Msg("snapshot cache write failed")
			}
		}
		return snap, nil
	}

	metrics.OracleExhaustedTotal.Inc()
	return ports.BalanceSnapshot{}, apperror.ErrAllProvidersFailed(lastErr)
}

func (o *FailoverOracle) queryProvider(ctx context.Context, p Provider, address string) (ports.BalanceSnapshot, error) {
	pctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	snap, err := p.QueryBalance(pctx, address)
	metrics.ProviderQueryDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderQueriesTotal.WithLabelValues(p.Name(), "error").Inc()
		return ports.BalanceSnapshot{}, apperror.ErrProviderFailed(p.Name(), err)
	}
	metrics.ProviderQueriesTotal.WithLabelValues(p.Name(), "success").Inc()
	return snap, nil
}

// ScanOutputs reports whether any single recent output to the address meets
// the threshold. The first provider able to list transactions is
// authoritative.
func (o *FailoverOracle) ScanOutputs(ctx context.Context, address string, threshold decimal.Decimal) (bool, error) {
	var lastErr error
	for _, p := range o.providers {
		lister, ok := p.(TxLister)
		if !ok {
			continue
		}

		pctx, cancel := context.WithTimeout(ctx, o.timeout)
		outputs, err := lister.ListRecentOutputs(pctx, address)
		cancel()
		if err != nil {
			lastErr = apperror.ErrProviderFailed(p.Name(), err)
			o.log.Warn().Err(lastErr).
				Str("address", address).
				Msg("output scan failed, trying next")
			continue
		}

		for _, value := range outputs {
			if value.GreaterThanOrEqual(threshold) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, apperror.ErrAllProvidersFailed(lastErr)
}
