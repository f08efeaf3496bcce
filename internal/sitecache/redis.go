package sitecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rotisserie/eris"
)

const redisKeyPrefix = "kondo:sitecache:"

// redisClient is the part of *redis.Client RedisCache needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache stores entries as JSON strings with the TTL as key expiry.
type RedisCache struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisCache connects lazily to addr.
func NewRedisCache(addr string, db int, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context, domain string) (*Entry, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+domain).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sitecache: redis get %s", domain)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, eris.Wrapf(err, "sitecache: decode %s", domain)
	}
	return &e, nil
}

func (c *RedisCache) Put(ctx context.Context, domain string, e Entry) error {
	e.Domain = domain
	data, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "sitecache: encode entry")
	}
	return eris.Wrapf(c.client.Set(ctx, redisKeyPrefix+domain, data, c.ttl).Err(), "sitecache: redis set %s", domain)
}
