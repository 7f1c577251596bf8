package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shestoi/stockkeeper/internal/repository"
)

func TestStockKey(t *testing.T) {
	require.Equal(t, "stock:MAIN:p-1", stockKey(repository.Key{ProductID: "p-1", LocationCode: "MAIN"}))
}

func TestDecodeRecord(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	rec := repository.StockRecord{
		ID:               "id-1",
		ProductID:        "p-1",
		LocationCode:     "MAIN",
		Quantity:         10,
		ReservedQuantity: 4,
		Status:           repository.StatusInStock,
		CreatedAt:        created,
		UpdatedAt:        created.Add(time.Minute),
	}

	fields := make(map[string]string)
	for k, v := range encodeRecord(rec) {
		fields[k] = v.(string)
	}

	got, err := decodeRecord(fields)
	require.NoError(t, err)
	require.Equal(t, rec, got)

	t.Run("broken invariant is rejected", func(t *testing.T) {
		fields[hashFieldReservedQuantity] = "11"
		_, err := decodeRecord(fields)
		require.ErrorIs(t, err, repository.ErrInvalidRecord)
	})

	t.Run("missing field is rejected", func(t *testing.T) {
		delete(fields, hashFieldQuantity)
		_, err := decodeRecord(fields)
		require.Error(t, err)
	})
}
