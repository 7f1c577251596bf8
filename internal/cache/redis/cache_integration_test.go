//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/shestoi/stockkeeper/internal/repository"
)

func TestStockCache_Integration(t *testing.T) {
	ctx := context.Background()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, redisC.Terminate(ctx)) }()

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	cache := NewStockCache(client, zap.NewNop(), time.Minute)
	key := repository.Key{ProductID: "p-1", LocationCode: "MAIN"}

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	rec := repository.StockRecord{
		ID:           "id-1",
		ProductID:    "p-1",
		LocationCode: "MAIN",
		Quantity:     3,
		Status:       repository.StatusLowStock,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, cache.Set(ctx, rec))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Quantity, got.Quantity)
	require.Equal(t, rec.Status, got.Status)

	ttl, err := client.TTL(ctx, stockKey(key)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Evict(ctx, key))
	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}
