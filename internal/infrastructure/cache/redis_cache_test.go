package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
	"github.com/jhoicas/Caja-api/internal/infrastructure/cache"
)

// Requiere un Redis real: TEST_REDIS_ADDR=localhost:6379
func redisCache(t *testing.T) *cache.RedisBalanceCache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR no definido")
	}
	c := cache.NewRedisBalanceCache(addr, "", 0, time.Minute)
	require.NoError(t, c.Ping(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisBalanceCache_NoPisaVersionMasNueva(t *testing.T) {
	c := redisCache(t)
	ctx := context.Background()
	id := uuid.New().String()
	t.Cleanup(func() { _ = c.Delete(ctx, id) })

	newer := &entity.CashRegister{ID: id, Version: 5, CurrentBalance: money.MustParse("710.50", "USD"), Currency: "USD"}
	stale := &entity.CashRegister{ID: id, Version: 4, CurrentBalance: money.MustParse("500.00", "USD"), Currency: "USD"}

	require.NoError(t, c.Set(ctx, newer))
	require.NoError(t, c.Set(ctx, stale))

	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(5), got.Version)
	assert.True(t, got.CurrentBalance.Equal(newer.CurrentBalance))
}

func TestRedisBalanceCache_MissDevuelveNil(t *testing.T) {
	c := redisCache(t)
	got, err := c.Get(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNoopBalanceCache(t *testing.T) {
	var c cache.NoopBalanceCache
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, &entity.CashRegister{ID: "x", Version: 1}))
	got, err := c.Get(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, got)
}
