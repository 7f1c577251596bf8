//go:build integration

package mongo

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/stockkeeper/internal/repository"
)

func TestRepository_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoC, err := mongodb.RunContainer(ctx, tc.WithImage("mongo:6"))
	require.NoError(t, err)
	defer func() { require.NoError(t, mongoC.Terminate(ctx)) }()

	mongoURI, err := mongoC.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()

	// Ждём готовности MongoDB (ping с retry)
	var pingErr error
	for i := 0; i < 20; i++ {
		pingErr = client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		if pingErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, pingErr, "MongoDB did not become ready in time")

	repo := NewRepository(client, "inventory")
	key := repository.Key{ProductID: "product-1", LocationCode: "MAIN"}

	require.NoError(t, repo.Create(ctx, repository.StockRecord{
		ProductID:    key.ProductID,
		LocationCode: key.LocationCode,
		Quantity:     10,
		Status:       repository.StatusInStock,
	}))
	err = repo.Create(ctx, repository.StockRecord{
		ProductID:    key.ProductID,
		LocationCode: key.LocationCode,
		Quantity:     3,
		Status:       repository.StatusLowStock,
	})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	t.Run("Concurrent reserve lets exactly one win", func(t *testing.T) {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Apply(ctx, key, repository.Mutation{ReservedDelta: 6, Guard: repository.GuardAvailable, GuardAmount: 6})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})

	t.Run("Guards", func(t *testing.T) {
		got, err := repo.Apply(ctx, key, repository.Mutation{QuantityDelta: -6, ReservedDelta: -6, Guard: repository.GuardReserved, GuardAmount: 6})
		require.NoError(t, err)
		require.Equal(t, int32(4), got.Quantity)
		require.Equal(t, int32(0), got.ReservedQuantity)

		_, err = repo.Apply(ctx, key, repository.Mutation{ReservedDelta: -1, Guard: repository.GuardReserved, GuardAmount: 1})
		require.ErrorIs(t, err, repository.ErrConditionFailed)

		_, err = repo.Apply(ctx, key, repository.Mutation{QuantityDelta: math.MaxInt32 - 1, Guard: repository.GuardCapacity, GuardAmount: math.MaxInt32 - 1})
		require.ErrorIs(t, err, repository.ErrConditionFailed)
		unchanged, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, int32(4), unchanged.Quantity)

		_, err = repo.Get(ctx, repository.Key{ProductID: "missing", LocationCode: "MAIN"})
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Status and lists", func(t *testing.T) {
		updated, err := repo.UpdateDerivedStatus(ctx, key, repository.StatusLowStock)
		require.NoError(t, err)
		require.True(t, updated)

		_, err = repo.SetStatus(ctx, key, repository.StatusDiscontinued)
		require.NoError(t, err)

		updated, err = repo.UpdateDerivedStatus(ctx, key, repository.StatusInStock)
		require.NoError(t, err)
		require.False(t, updated)

		byAvailable, err := repo.ListByMaxAvailable(ctx, "MAIN", 4)
		require.NoError(t, err)
		require.Len(t, byAvailable, 1)

		byQuantity, err := repo.ListByMaxQuantity(ctx, "MAIN", 3)
		require.NoError(t, err)
		require.Empty(t, byQuantity)
	})
}
