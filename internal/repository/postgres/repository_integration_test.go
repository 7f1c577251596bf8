//go:build integration

package postgres

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/shestoi/stockkeeper/internal/repository"
	"github.com/shestoi/stockkeeper/migrations"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()

	// Поднимаем PostgreSQL контейнер через testcontainers
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("inventory"),
		postgres.WithUsername("inventory_user"),
		postgres.WithPassword("inventory_password"),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, postgresContainer.Terminate(ctx))
	}()

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Миграции с retry: контейнер может ещё принимать соединения не сразу
	var migrateErr error
	for i := 0; i < 10; i++ {
		migrateErr = migrations.Up(ctx, dsn)
		if migrateErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, migrateErr, "Failed to run migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)
	key := repository.Key{ProductID: "product-1", LocationCode: "MAIN"}

	t.Run("Create and Get", func(t *testing.T) {
		err := repo.Create(ctx, repository.StockRecord{
			ProductID:    key.ProductID,
			LocationCode: key.LocationCode,
			Quantity:     10,
			Status:       repository.StatusInStock,
		})
		require.NoError(t, err)

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.NotEmpty(t, got.ID)
		require.Equal(t, int32(10), got.Quantity)
		require.Equal(t, int32(0), got.ReservedQuantity)
	})

	t.Run("Create duplicate", func(t *testing.T) {
		err := repo.Create(ctx, repository.StockRecord{
			ProductID:    key.ProductID,
			LocationCode: key.LocationCode,
			Quantity:     1,
			Status:       repository.StatusLowStock,
		})
		require.ErrorIs(t, err, repository.ErrAlreadyExists)
	})

	t.Run("Get NotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, repository.Key{ProductID: "missing", LocationCode: "MAIN"})
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

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

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, int32(6), got.ReservedQuantity)
	})

	t.Run("Ship and release guards", func(t *testing.T) {
		got, err := repo.Apply(ctx, key, repository.Mutation{QuantityDelta: -2, ReservedDelta: -2, Guard: repository.GuardReserved, GuardAmount: 2})
		require.NoError(t, err)
		require.Equal(t, int32(8), got.Quantity)
		require.Equal(t, int32(4), got.ReservedQuantity)

		_, err = repo.Apply(ctx, key, repository.Mutation{ReservedDelta: -5, Guard: repository.GuardReserved, GuardAmount: 5})
		require.ErrorIs(t, err, repository.ErrConditionFailed)

		_, err = repo.Apply(ctx, key, repository.Mutation{QuantityDelta: math.MaxInt32 - 1, Guard: repository.GuardCapacity, GuardAmount: math.MaxInt32 - 1})
		require.ErrorIs(t, err, repository.ErrConditionFailed)
		unchanged, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, int32(8), unchanged.Quantity)

		_, err = repo.Apply(ctx, repository.Key{ProductID: "missing", LocationCode: "MAIN"}, repository.Mutation{QuantityDelta: 1})
		require.ErrorIs(t, err, repository.ErrConditionFailed)
	})

	t.Run("Status writes respect DISCONTINUED", func(t *testing.T) {
		updated, err := repo.UpdateDerivedStatus(ctx, key, repository.StatusLowStock)
		require.NoError(t, err)
		require.True(t, updated)

		_, err = repo.SetStatus(ctx, key, repository.StatusDiscontinued)
		require.NoError(t, err)

		updated, err = repo.UpdateDerivedStatus(ctx, key, repository.StatusInStock)
		require.NoError(t, err)
		require.False(t, updated)

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, repository.StatusDiscontinued, got.Status)
	})

	t.Run("Lists", func(t *testing.T) {
		byQuantity, err := repo.ListByMaxQuantity(ctx, "MAIN", 8)
		require.NoError(t, err)
		require.Len(t, byQuantity, 1)

		byAvailable, err := repo.ListByMaxAvailable(ctx, "MAIN", 3)
		require.NoError(t, err)
		require.Empty(t, byAvailable)

		many, err := repo.GetMany(ctx, []string{key.ProductID, "missing"}, "MAIN")
		require.NoError(t, err)
		require.Len(t, many, 1)
	})
}
