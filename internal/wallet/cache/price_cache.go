// Package cache provides redis-backed caching for the withdrawal flow
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

var (
	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")
)

// Client is the subset of redis.Cmdable used by the caches.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// PriceSource returns a currency's USD price.
type PriceSource interface {
	Price(ctx context.Context, currencyID string) (*models.CurrencyPrice, error)
}

// RedisPriceCache caches USD prices in front of a slower PriceSource.
// Redis failures degrade to the source rather than failing the lookup.
type RedisPriceCache struct {
	client Client
	source PriceSource
	log    *zap.Logger
	prefix string
	ttl    time.Duration
}

// NewRedisPriceCache creates a new redis-based price cache
func NewRedisPriceCache(client Client, source PriceSource, log *zap.Logger, prefix string, ttl time.Duration) *RedisPriceCache {
	return &RedisPriceCache{
		client: client,
		source: source,
		log:    log,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Price returns the cached price of currencyID, loading it from the source
// on a miss. A nil price from the source is not cached.
func (c *RedisPriceCache) Price(ctx context.Context, currencyID string) (*models.CurrencyPrice, error) {
	price, err := c.GetPrice(ctx, currencyID)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn("price cache unavailable, using source", zap.String("currency_id", currencyID), zap.Error(err))
	}

	price, err = c.source.Price(ctx, currencyID)
	if err != nil || price == nil {
		return price, err
	}
	if err := c.SetPrice(ctx, currencyID, price); err != nil {
		c.log.Warn("failed to cache price", zap.String("currency_id", currencyID), zap.Error(err))
	}
	return price, nil
}

// GetPrice retrieves a cached price
func (c *RedisPriceCache) GetPrice(ctx context.Context, currencyID string) (*models.CurrencyPrice, error) {
	key := c.priceKey(currencyID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var price models.CurrencyPrice
	if err := json.Unmarshal([]byte(data), &price); err != nil {
		c.log.Error("failed to unmarshal cached price", zap.Error(err), zap.String("key", key))
		return nil, err
	}
	return &price, nil
}

// SetPrice stores a price in cache
func (c *RedisPriceCache) SetPrice(ctx context.Context, currencyID string, price *models.CurrencyPrice) error {
	data, err := json.Marshal(price)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.priceKey(currencyID), data, c.ttl).Err()
}

// InvalidatePrice removes a price from cache
func (c *RedisPriceCache) InvalidatePrice(ctx context.Context, currencyID string) error {
	key := c.priceKey(currencyID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Error("failed to invalidate price cache", zap.Error(err), zap.String("key", key))
		return err
	}
	return nil
}

func (c *RedisPriceCache) priceKey(currencyID string) string {
	return c.prefix + ":price:" + currencyID
}
