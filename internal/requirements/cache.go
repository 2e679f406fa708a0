package requirements

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"loanops/internal/model"
	"loanops/internal/repository"
)

const cacheKeyPrefix = "lender_reqs:"

// CachedProducts is a cache-aside decorator over a LenderProductRepository.
// Redis failures are logged and fall through to the underlying repository;
// missing products are never cached.
type CachedProducts struct {
	next repository.LenderProductRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

var _ repository.LenderProductRepository = (*CachedProducts)(nil)

func NewCachedProducts(next repository.LenderProductRepository, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedProducts {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedProducts{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedProducts) FindProduct(ctx context.Context, id string) (*model.LenderProduct, error) {
	key := cacheKeyPrefix + "product:" + id
	var cached model.LenderProduct
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := c.next.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, p)
	return p, nil
}

func (c *CachedProducts) ListActive(ctx context.Context, cat, country string) ([]model.LenderProduct, error) {
	scope := country
	if scope == "" {
		scope = "*"
	}
	key := cacheKeyPrefix + "active:" + cat + ":" + scope
	var cached []model.LenderProduct
	if c.get(ctx, key, &cached) {
		return cached, nil
	}

	products, err := c.next.ListActive(ctx, cat, country)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, products)
	return products, nil
}

// Invalidate drops every cached lender product entry, for use after
// configuration changes.
func (c *CachedProducts) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *CachedProducts) get(ctx context.Context, key string, dst any) bool {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("requirements cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(val, dst); err != nil {
		c.log.Warn("requirements cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedProducts) set(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("requirements cache write failed", zap.String("key", key), zap.Error(err))
	}
}
