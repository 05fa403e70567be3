// Package cache stores computed analytics snapshots so repeated dashboard loads do not
// rescan every ticket.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helpline/support-desk/internal/domain"
)

// Generation numbers the cache contents. Invalidate starts a new generation, so a
// snapshot computed before an invalidation is stored under a retired generation and is
// never served.
type Generation int64

// SnapshotCache stores analytics snapshots keyed by date range.
type SnapshotCache interface {
	// Get returns the cached snapshot, or nil and no error on a miss, together with the
	// generation the lookup ran in. Pass that generation to Set.
	Get(ctx context.Context, key string) (*domain.Snapshot, Generation, error)
	Set(ctx context.Context, gen Generation, key string, snapshot *domain.Snapshot) error
	// Invalidate retires every cached snapshot.
	Invalidate(ctx context.Context) error
}

const (
	keyPrefix     = "support-desk:analytics:"
	generationKey = keyPrefix + "generation"
)

// Key derives the cache key for an optional range.
func Key(dateRange *domain.DateRange) string {
	if dateRange == nil {
		return "all"
	}
	return fmt.Sprintf("%d-%d", dateRange.From.UTC().Unix(), dateRange.To.UTC().Unix())
}

func entryKey(gen Generation, key string) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, gen, key)
}

type redisSnapshotCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSnapshotCache returns a cache backed by Redis. A nil client or a zero ttl
// yields a no-op cache. Entries of retired generations expire with their ttl.
func NewRedisSnapshotCache(client redis.UniversalClient, ttl time.Duration) SnapshotCache {
	if client == nil || ttl <= 0 {
		return Noop{}
	}
	return &redisSnapshotCache{client: client, ttl: ttl}
}

func (c *redisSnapshotCache) generation(ctx context.Context) (Generation, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return Generation(gen), nil
}

func (c *redisSnapshotCache) Get(ctx context.Context, key string) (*domain.Snapshot, Generation, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}
	raw, err := c.client.Get(ctx, entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	if err != nil {
		return nil, gen, fmt.Errorf("cache get: %w", err)
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, gen, fmt.Errorf("cache decode: %w", err)
	}
	return &snapshot, gen, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, gen Generation, key string, snapshot *domain.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, entryKey(gen, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *redisSnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Snapshot, Generation, error) { return nil, 0, nil }
func (Noop) Set(context.Context, Generation, string, *domain.Snapshot) error   { return nil }
func (Noop) Invalidate(context.Context) error                                  { return nil }
