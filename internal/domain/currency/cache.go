package currency

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache stores currencies by id. Currencies never change once created,
// so entries carry no expiry.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (*Currency, bool)
	Set(ctx context.Context, c *Currency)
}

type LocalCache struct {
	c *gocache.Cache
}

func NewLocalCache() *LocalCache {
	return &LocalCache{c: gocache.New(gocache.NoExpiration, 0)}
}

func (l *LocalCache) Get(_ context.Context, id uuid.UUID) (*Currency, bool) {
	v, ok := l.c.Get(id.String())
	if !ok {
		return nil, false
	}
	c := v.(Currency)
	return &c, true
}

func (l *LocalCache) Set(_ context.Context, c *Currency) {
	l.c.Set(c.ID.String(), *c, gocache.NoExpiration)
}

// RedisCache shares entries across processes. Redis errors degrade to
// cache misses.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func redisKey(id uuid.UUID) string {
	return "ledger:currency:" + id.String()
}

func (r *RedisCache) Get(ctx context.Context, id uuid.UUID) (*Currency, bool) {
	raw, err := r.rdb.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("currency_id", id.String()).Msg("currency cache read failed")
		}
		return nil, false
	}
	var c Currency
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false
	}
	return &c, true
}

func (r *RedisCache) Set(ctx context.Context, c *Currency) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, redisKey(c.ID), raw, 0).Err(); err != nil {
		log.Warn().Err(err).Str("currency_id", c.ID.String()).Msg("currency cache write failed")
	}
}

// NewCache prefers Redis when a client is available.
func NewCache(rdb *redis.Client) Cache {
	if rdb == nil {
		return NewLocalCache()
	}
	return NewRedisCache(rdb)
}
