package market

import (
	"context"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// QuoteCache stores recently resolved per-symbol prices so a refresh cycle
// does not re-fetch instruments another process already resolved. Cache
// failures are soft: a miss is returned and the caller fetches live.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (decimal.Decimal, bool)
	Set(ctx context.Context, symbol string, price decimal.Decimal)
}

// RedisQuoteCache shares quotes across processes via Redis.
type RedisQuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQuoteCache creates a Redis-backed quote cache.
func NewRedisQuoteCache(client *redis.Client, ttl time.Duration) *RedisQuoteCache {
	return &RedisQuoteCache{client: client, ttl: ttl}
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}

func (c *RedisQuoteCache) Get(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	val, err := c.client.Get(ctx, quoteKey(symbol)).Result()
	if err == redis.Nil {
		return decimal.Zero, false
	}
	if err != nil {
		log.Printf("quote cache read failed for %s: %v", symbol, err)
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

func (c *RedisQuoteCache) Set(ctx context.Context, symbol string, price decimal.Decimal) {
	if err := c.client.Set(ctx, quoteKey(symbol), price.String(), c.ttl).Err(); err != nil {
		log.Printf("quote cache write failed for %s: %v", symbol, err)
	}
}

// MemoryQuoteCache is the in-process fallback used when Redis is not
// configured, and by tests.
type MemoryQuoteCache struct {
	cache *gocache.Cache
}

// NewMemoryQuoteCache creates an in-process quote cache.
func NewMemoryQuoteCache(ttl time.Duration) *MemoryQuoteCache {
	return &MemoryQuoteCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryQuoteCache) Get(_ context.Context, symbol string) (decimal.Decimal, bool) {
	if val, ok := c.cache.Get(symbol); ok {
		return val.(decimal.Decimal), true
	}
	return decimal.Zero, false
}

func (c *MemoryQuoteCache) Set(_ context.Context, symbol string, price decimal.Decimal) {
	c.cache.Set(symbol, price, gocache.DefaultExpiration)
}
