package geocache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newsglobe/backend/internal/models"
)

const redisPrefix = "geocode:"

// Redis caches geocode results in a shared Redis instance so a fleet of
// workers pays for each provider query once. Failures degrade to cache
// misses; the caller falls through to the provider.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis wraps an existing client. ttl <= 0 defaults to one hour.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string) (*models.ResolvedLocation, bool) {
	data, err := c.rdb.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var loc models.ResolvedLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, false
	}
	return &loc, true
}

func (c *Redis) Set(ctx context.Context, key string, loc *models.ResolvedLocation) {
	if loc == nil {
		return
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, redisPrefix+key, data, c.ttl)
}
