package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shestoi/stockkeeper/internal/repository"
)

const (
	hashFieldID               = "id"
	hashFieldProductID        = "product_id"
	hashFieldLocationCode     = "location_code"
	hashFieldQuantity         = "quantity"
	hashFieldReservedQuantity = "reserved_quantity"
	hashFieldStatus           = "status"
	hashFieldCreatedAt        = "created_at"
	hashFieldUpdatedAt        = "updated_at"
)

// StockCache реализует кэш складских записей используя Redis hash
// Каждая запись живёт не дольше ttl и удаляется после любой мутации
type StockCache struct {
	client redis.Cmdable
	logger *zap.Logger
	ttl    time.Duration
}

// NewStockCache создаёт новый Redis кэш складских записей
func NewStockCache(client redis.Cmdable, logger *zap.Logger, ttl time.Duration) *StockCache {
	return &StockCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func stockKey(key repository.Key) string {
	return fmt.Sprintf("stock:%s:%s", key.LocationCode, key.ProductID)
}

// Get получает запись из Redis hash
// ok == false, если ключа нет или hash повреждён
func (c *StockCache) Get(ctx context.Context, key repository.Key) (repository.StockRecord, bool, error) {
	fields, err := c.client.HGetAll(ctx, stockKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return repository.StockRecord{}, false, nil
		}
		return repository.StockRecord{}, false, fmt.Errorf("failed to get cached stock: %w", err)
	}
	if len(fields) == 0 {
		return repository.StockRecord{}, false, nil
	}

	rec, err := decodeRecord(fields)
	if err != nil {
		c.logger.Warn("dropping malformed cached stock record",
			zap.String("product_id", key.ProductID),
			zap.Error(err),
		)
		_ = c.client.Del(ctx, stockKey(key)).Err()
		return repository.StockRecord{}, false, nil
	}
	return rec, true, nil
}

// Set кладёт запись в Redis hash с TTL
func (c *StockCache) Set(ctx context.Context, rec repository.StockRecord) error {
	key := stockKey(rec.Key())

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, encodeRecord(rec))
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache stock: %w", err)
	}
	return nil
}

// Evict удаляет запись из Redis
func (c *StockCache) Evict(ctx context.Context, key repository.Key) error {
	if err := c.client.Del(ctx, stockKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to evict cached stock: %w", err)
	}
	return nil
}

func encodeRecord(rec repository.StockRecord) map[string]interface{} {
	return map[string]interface{}{
		hashFieldID:               rec.ID,
		hashFieldProductID:        rec.ProductID,
		hashFieldLocationCode:     rec.LocationCode,
		hashFieldQuantity:         strconv.FormatInt(int64(rec.Quantity), 10),
		hashFieldReservedQuantity: strconv.FormatInt(int64(rec.ReservedQuantity), 10),
		hashFieldStatus:           string(rec.Status),
		hashFieldCreatedAt:        rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		hashFieldUpdatedAt:        rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeRecord(fields map[string]string) (repository.StockRecord, error) {
	quantity, err := strconv.ParseInt(fields[hashFieldQuantity], 10, 32)
	if err != nil {
		return repository.StockRecord{}, fmt.Errorf("quantity: %w", err)
	}
	reserved, err := strconv.ParseInt(fields[hashFieldReservedQuantity], 10, 32)
	if err != nil {
		return repository.StockRecord{}, fmt.Errorf("reserved_quantity: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[hashFieldCreatedAt])
	if err != nil {
		return repository.StockRecord{}, fmt.Errorf("created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields[hashFieldUpdatedAt])
	if err != nil {
		return repository.StockRecord{}, fmt.Errorf("updated_at: %w", err)
	}

	rec := repository.StockRecord{
		ID:               fields[hashFieldID],
		ProductID:        fields[hashFieldProductID],
		LocationCode:     fields[hashFieldLocationCode],
		Quantity:         int32(quantity),
		ReservedQuantity: int32(reserved),
		Status:           repository.Status(fields[hashFieldStatus]),
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
	if err := rec.Validate(); err != nil {
		return repository.StockRecord{}, err
	}
	return rec, nil
}
