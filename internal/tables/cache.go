package tables

import (
	"context"
	"encoding/json"
	"time"

	"pos-core/internal/eventbus"
	"pos-core/internal/models"

	"github.com/go-redis/redis/v8"
)

const cacheKey = "pos:tables"

// Cache keeps the table grid in Redis for the polling waiter clients.
// A nil client degrades to a pass-through.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl}
}

func (c *Cache) Get(ctx context.Context) ([]models.Table, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}

	raw, err := c.Client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil, false
	}

	var tables []models.Table
	if err := json.Unmarshal(raw, &tables); err != nil {
		return nil, false
	}
	return tables, true
}

func (c *Cache) Set(ctx context.Context, tables []models.Table) {
	if c == nil || c.Client == nil {
		return
	}

	raw, err := json.Marshal(tables)
	if err != nil {
		return
	}
	c.Client.Set(ctx, cacheKey, raw, c.TTL)
}

func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.Client == nil {
		return
	}
	c.Client.Del(ctx, cacheKey)
}

// WatchBus drops the cached grid whenever a table-grid change is published,
// so order mutations show up on the next fetch instead of after the TTL.
func (c *Cache) WatchBus(bus *eventbus.Bus) *eventbus.Subscription {
	return bus.Subscribe(func(ev eventbus.Event) {
		if ev.Kind == eventbus.KindTables {
			c.Invalidate(context.Background())
		}
	})
}
