package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bch-paywall/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// SnapshotCache implements ports.SnapshotCache using Redis. It holds oracle
// balance snapshots for a short TTL so that a client polling every couple of
// seconds does not translate into one provider round-trip per poll.
type SnapshotCache struct {
	client *goredis.Client
	prefix string
}

// NewSnapshotCache creates a new Redis-backed snapshot cache.
func NewSnapshotCache(client *goredis.Client) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		prefix: "balance:",
	}
}

// Get retrieves a cached snapshot for the address.
// Returns nil, nil if the key does not exist.
func (c *SnapshotCache) Get(ctx context.Context, address string) (*ports.BalanceSnapshot, error) {
	val, err := c.client.Get(ctx, c.prefix+address).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis snapshot get: %w", err)
	}

	var snap ports.BalanceSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("redis snapshot decode: %w", err)
	}
	return &snap, nil
}

// Set stores a snapshot for the address with TTL.
func (c *SnapshotCache) Set(ctx context.Context, address string, snap ports.BalanceSnapshot, ttl time.Duration) error {
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis snapshot encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+address, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis snapshot set: %w", err)
	}
	return nil
}
