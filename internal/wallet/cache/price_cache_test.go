package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// memClient is an in-memory Client.
type memClient struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemClient() *memClient {
	return &memClient{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *memClient) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingSource struct {
	calls int
	price *models.CurrencyPrice
	err   error
}

func (s *countingSource) Price(ctx context.Context, currencyID string) (*models.CurrencyPrice, error) {
	s.calls++
	return s.price, s.err
}

func TestPriceCacheLoadsOnce(t *testing.T) {
	client := newMemClient()
	source := &countingSource{price: &models.CurrencyPrice{USDPrice: decimal.RequireFromString("1999.5")}}
	c := NewRedisPriceCache(client, source, zap.NewNop(), "console", time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		price, err := c.Price(ctx, "eth")
		require.NoError(t, err)
		assert.Equal(t, "1999.5", price.USDPrice.String())
	}
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, time.Minute, client.ttls["console:price:eth"])

	require.NoError(t, c.InvalidatePrice(ctx, "eth"))
	_, err := c.Price(ctx, "eth")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestPriceCacheDoesNotCacheMissingPrice(t *testing.T) {
	client := newMemClient()
	source := &countingSource{}
	c := NewRedisPriceCache(client, source, zap.NewNop(), "console", time.Minute)

	price, err := c.Price(context.Background(), "shib")
	require.NoError(t, err)
	assert.Nil(t, price)
	_, err = c.GetPrice(context.Background(), "shib")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestPriceCacheFallsBackWhenRedisDown(t *testing.T) {
	client := newMemClient()
	client.err = fmt.Errorf("connection refused")
	source := &countingSource{price: &models.CurrencyPrice{USDPrice: decimal.NewFromInt(1)}}
	c := NewRedisPriceCache(client, source, zap.NewNop(), "console", time.Minute)

	price, err := c.Price(context.Background(), "usdt")
	require.NoError(t, err)
	assert.Equal(t, "1", price.USDPrice.String())
	assert.Equal(t, 1, source.calls)
}

func TestPriceCacheSourceError(t *testing.T) {
	c := NewRedisPriceCache(newMemClient(), &countingSource{err: fmt.Errorf("rate limited")}, zap.NewNop(), "console", time.Minute)
	_, err := c.Price(context.Background(), "eth")
	assert.ErrorContains(t, err, "rate limited")
}
