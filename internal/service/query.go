package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/shestoi/stockkeeper/internal/repository"
	platformobservability "github.com/shestoi/stockkeeper/platform/observability"
)

// QueryService предоставляет чтение складских записей без побочных эффектов
// Чтения могут вернуть устаревшее состояние (кэш), но никогда не блокируют запись
type QueryService struct {
	logger       *zap.Logger
	repo         repository.StockRepository
	cache        StockCache
	locationCode string
}

// NewQueryService создаёт новый экземпляр QueryService
// cache может быть nil, тогда кэш не используется
func NewQueryService(logger *zap.Logger, repo repository.StockRepository, cache StockCache, locationCode string) *QueryService {
	if cache == nil {
		cache = nopCache{}
	}
	if locationCode == "" {
		locationCode = DefaultLocationCode
	}
	return &QueryService{
		logger:       logger,
		repo:         repo,
		cache:        cache,
		locationCode: locationCode,
	}
}

// GetByProductID возвращает складскую запись товара
// Возвращает ErrNotFound, если записи нет
func (s *QueryService) GetByProductID(ctx context.Context, productID string) (repository.StockRecord, error) {
	if productID == "" {
		return repository.StockRecord{}, ErrInvalidProductID
	}
	key := repository.Key{ProductID: productID, LocationCode: s.locationCode}
	logger := platformobservability.L(ctx, s.logger)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("stock cache read failed", zap.String("product_id", productID), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	rec, err := s.repo.Get(ctx, key)
	if err != nil {
		return repository.StockRecord{}, storeError(err)
	}

	if err := s.cache.Set(ctx, rec); err != nil {
		logger.Warn("stock cache write failed", zap.String("product_id", productID), zap.Error(err))
	}
	return rec, nil
}

// GetAvailable возвращает quantity - reserved_quantity
func (s *QueryService) GetAvailable(ctx context.Context, productID string) (int32, error) {
	rec, err := s.GetByProductID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return rec.Available(), nil
}

// GetManyByProductIDs возвращает записи по списку товаров
// Неизвестные, пустые и повторяющиеся идентификаторы молча пропускаются
func (s *QueryService) GetManyByProductIDs(ctx context.Context, productIDs []string) (map[string]repository.StockRecord, error) {
	seen := make(map[string]struct{}, len(productIDs))
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return map[string]repository.StockRecord{}, nil
	}

	records, err := s.repo.GetMany(ctx, ids, s.locationCode)
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

// ListBelowThreshold возвращает записи с общим количеством quantity <= threshold
// Доступное количество здесь не учитывается
func (s *QueryService) ListBelowThreshold(ctx context.Context, threshold int32) ([]repository.StockRecord, error) {
	records, err := s.repo.ListByMaxQuantity(ctx, s.locationCode, threshold)
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

// ListLowAvailable возвращает записи с доступным количеством quantity - reserved_quantity <= threshold
func (s *QueryService) ListLowAvailable(ctx context.Context, threshold int32) ([]repository.StockRecord, error) {
	records, err := s.repo.ListByMaxAvailable(ctx, s.locationCode, threshold)
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}
