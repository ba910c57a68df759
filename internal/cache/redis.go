package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matchfeed/internal/config"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

// populationKey versions the candidate population. Every write that can change
// whether a user is eligible for someone else's feed bumps it.
const populationKey = "feed:population"

// KeyForEligibleCount builds the key of a viewer's eligible-candidate count.
// The fingerprint encodes the preferences the count was computed under and
// version the population it was computed over, so neither a preferences
// change nor a profile change reads a stale count.
func (c *RedisCache) KeyForEligibleCount(viewerID, fingerprint string, version int64) string {
	return fmt.Sprintf("feed:eligible:%s:%s:v%d", viewerID, fingerprint, version)
}

// PopulationVersion returns the current population version, 0 if never bumped.
func (c *RedisCache) PopulationVersion(ctx context.Context) (int64, error) {
	n, ok, err := c.GetCount(ctx, populationKey)
	if err != nil || !ok {
		return 0, err
	}
	return n, nil
}

// BumpPopulation invalidates every cached eligible count at once.
func (c *RedisCache) BumpPopulation(ctx context.Context) error {
	return c.Client.Incr(ctx, populationKey).Err()
}

// GetCount reads a cached counter. ok is false on a miss.
func (c *RedisCache) GetCount(ctx context.Context, key string) (n int64, ok bool, err error) {
	val, err := c.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SetCount stores a counter for ttl. A non-positive ttl is a no-op.
func (c *RedisCache) SetCount(ctx context.Context, key string, n int64, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.Set(ctx, key, n, ttl)
}
