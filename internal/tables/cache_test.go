package tables_test

import (
	"context"
	"testing"
	"time"

	"pos-core/internal/eventbus"
	"pos-core/internal/models"
	"pos-core/internal/tables"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) *tables.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return tables.NewCache(client, time.Minute)
}

func TestCacheDroppedOnPublishedGridChange(t *testing.T) {
	ctx := context.Background()
	cache := setupCache(t)
	bus := eventbus.New()
	cache.WatchBus(bus)

	cache.Set(ctx, []models.Table{{ID: 1, Name: "Table 1"}})
	_, ok := cache.Get(ctx)
	require.True(t, ok)

	// Order mutations publish a grid change rather than touching the
	// cache themselves.
	bus.Publish(eventbus.KindTables, 1)
	_, ok = cache.Get(ctx)
	assert.False(t, ok, "a published grid change must drop the cached grid")
}

func TestCacheKeptOnUnrelatedEvents(t *testing.T) {
	ctx := context.Background()
	cache := setupCache(t)
	bus := eventbus.New()
	cache.WatchBus(bus)

	cache.Set(ctx, []models.Table{{ID: 1, Name: "Table 1"}})
	bus.Publish(eventbus.KindSales, 0)

	_, ok := cache.Get(ctx)
	assert.True(t, ok)
}

func TestCacheWatchCancel(t *testing.T) {
	ctx := context.Background()
	cache := setupCache(t)
	bus := eventbus.New()

	sub := cache.WatchBus(bus)
	sub.Cancel()

	cache.Set(ctx, []models.Table{{ID: 1, Name: "Table 1"}})
	bus.Publish(eventbus.KindTables, 1)

	_, ok := cache.Get(ctx)
	assert.True(t, ok, "a cancelled watch must not keep invalidating")
}
