package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/shestoi/stockkeeper/internal/repository"
	platformobservability "github.com/shestoi/stockkeeper/platform/observability"
)

// DefaultLocationCode - склад по умолчанию
const DefaultLocationCode = "MAIN"

// Options содержит параметры развёртывания движка
type Options struct {
	// LocationCode склад, с записями которого работает экземпляр сервиса
	LocationCode string
	// LowStockThreshold порог LOW_STOCK, одинаковый для всех записей
	LowStockThreshold int32
}

func (o Options) withDefaults() Options {
	if o.LocationCode == "" {
		o.LocationCode = DefaultLocationCode
	}
	if o.LowStockThreshold < 0 {
		o.LowStockThreshold = DefaultLowStockThreshold
	}
	return o
}

// operation описывает одно из четырёх движений товара
type operation struct {
	name  string
	event EventKind
	// mutation строит условное изменение для количества amount
	mutation func(amount int32) repository.Mutation
	// rejected != nil: при невыполненном условии запись перечитывается,
	// чтобы отличить отсутствие записи от отказа по количествам
	rejected func(current repository.StockRecord, amount int32) error
}

func insufficient(current repository.StockRecord, amount int32) error {
	return newInsufficientStockError(current, amount)
}

func overflow(current repository.StockRecord, amount int32) error {
	return fmt.Errorf("%w: quantity %d + %d", ErrQuantityOverflow, current.Quantity, amount)
}

var (
	opReserve = operation{
		name:  "reserve",
		event: EventStockReserved,
		mutation: func(amount int32) repository.Mutation {
			return repository.Mutation{ReservedDelta: amount, Guard: repository.GuardAvailable, GuardAmount: amount}
		},
		rejected: insufficient,
	}
	opRelease = operation{
		name:  "release",
		event: EventStockReleased,
		mutation: func(amount int32) repository.Mutation {
			return repository.Mutation{ReservedDelta: -amount, Guard: repository.GuardReserved, GuardAmount: amount}
		},
	}
	opReceive = operation{
		name:  "stock_in",
		event: EventStockIn,
		mutation: func(amount int32) repository.Mutation {
			return repository.Mutation{QuantityDelta: amount, Guard: repository.GuardCapacity, GuardAmount: amount}
		},
		rejected: overflow,
	}
	opShip = operation{
		name:  "stock_out",
		event: EventStockOut,
		mutation: func(amount int32) repository.Mutation {
			return repository.Mutation{QuantityDelta: -amount, ReservedDelta: -amount, Guard: repository.GuardReserved, GuardAmount: amount}
		},
		rejected: insufficient,
	}
)

// StockService содержит бизнес-логику резервирования и движения товара
// Каждое изменение - одна атомарная условная запись в repository,
// после неё статус пересчитывается отдельной best-effort записью и публикуются события
type StockService struct {
	logger    *zap.Logger
	repo      repository.StockRepository
	publisher EventPublisher
	cache     StockCache
	opts      Options
	ops       metric.Int64Counter
	now       func() time.Time
}

// NewStockService создаёт новый экземпляр StockService
// cache может быть nil, тогда кэш не используется
func NewStockService(logger *zap.Logger, repo repository.StockRepository, publisher EventPublisher, cache StockCache, opts Options) *StockService {
	if cache == nil {
		cache = nopCache{}
	}
	counter, err := otel.Meter("inventory").Int64Counter("inventory.stock.operations",
		metric.WithDescription("Stock engine operations by outcome"),
	)
	if err != nil {
		logger.Warn("failed to create stock operations counter", zap.Error(err))
		counter = noop.Int64Counter{}
	}

	return &StockService{
		logger:    logger,
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		opts:      opts.withDefaults(),
		ops:       counter,
		now:       time.Now,
	}
}

// LocationCode возвращает склад экземпляра сервиса
func (s *StockService) LocationCode() string {
	return s.opts.LocationCode
}

func (s *StockService) key(productID string) repository.Key {
	return repository.Key{ProductID: productID, LocationCode: s.opts.LocationCode}
}

// Reserve резервирует amount единиц товара: reserved += amount при условии available >= amount
func (s *StockService) Reserve(ctx context.Context, productID string, amount int32) error {
	return s.apply(ctx, opReserve, productID, amount)
}

// Release снимает резерв: reserved -= amount при условии reserved >= amount
// Отказ условия и отсутствие записи неразличимы и оба возвращают ErrNotFound
func (s *StockService) Release(ctx context.Context, productID string, amount int32) error {
	return s.apply(ctx, opRelease, productID, amount)
}

// ReceiveStock принимает товар на склад: quantity += amount
// Возвращает ErrQuantityOverflow, если quantity вышло бы за пределы int32
func (s *StockService) ReceiveStock(ctx context.Context, productID string, amount int32) error {
	return s.apply(ctx, opReceive, productID, amount)
}

// ShipStock отгружает ранее зарезервированный товар: quantity и reserved уменьшаются на amount
func (s *StockService) ShipStock(ctx context.Context, productID string, amount int32) error {
	return s.apply(ctx, opShip, productID, amount)
}

func (s *StockService) apply(ctx context.Context, op operation, productID string, amount int32) (err error) {
	logger := platformobservability.L(ctx, s.logger)
	defer func() { s.record(ctx, op.name, err) }()

	if productID == "" {
		return ErrInvalidProductID
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	key := s.key(productID)
	rec, err := s.repo.Apply(ctx, key, op.mutation(amount))
	if err != nil {
		err = s.explain(ctx, op, key, amount, err)
		logger.Info("stock operation rejected",
			zap.String("operation", op.name),
			zap.String("product_id", productID),
			zap.Int32("amount", amount),
			zap.Error(err),
		)
		return err
	}

	logger.Info("stock operation committed",
		zap.String("operation", op.name),
		zap.String("product_id", productID),
		zap.Int32("amount", amount),
		zap.Int32("quantity", rec.Quantity),
		zap.Int32("reserved_quantity", rec.ReservedQuantity),
	)

	newStatus, changed := s.refreshStatus(ctx, rec)
	// Кэш сбрасывается после записи статуса, иначе чтение между двумя записями
	// закэширует новые количества со старым статусом
	s.evict(ctx, key)

	s.publisher.Publish(ctx, Event{
		Kind:         op.event,
		ProductID:    productID,
		LocationCode: key.LocationCode,
		Amount:       amount,
		OccurredAt:   s.now().UTC(),
	})
	if changed {
		s.publishStatusChanged(ctx, key, newStatus)
	}
	return nil
}

// explain превращает отказ атомарной записи в ошибку service слоя
func (s *StockService) explain(ctx context.Context, op operation, key repository.Key, amount int32, err error) error {
	if !errors.Is(err, repository.ErrConditionFailed) {
		return storeError(err)
	}
	if op.rejected == nil {
		return ErrNotFound
	}

	current, getErr := s.repo.Get(ctx, key)
	if getErr != nil {
		return storeError(getErr)
	}
	return op.rejected(current, amount)
}

// refreshStatus пересчитывает статус по состоянию после коммита
// Ошибка записи статуса логируется и не откатывает уже применённое изменение количества
func (s *StockService) refreshStatus(ctx context.Context, rec repository.StockRecord) (repository.Status, bool) {
	if rec.Status == repository.StatusDiscontinued {
		return rec.Status, false
	}
	derived := DeriveStatus(rec.Available(), s.opts.LowStockThreshold)
	if derived == rec.Status {
		return rec.Status, false
	}

	updated, err := s.repo.UpdateDerivedStatus(ctx, rec.Key(), derived)
	if err != nil {
		platformobservability.L(ctx, s.logger).Warn("failed to update derived status",
			zap.String("product_id", rec.ProductID),
			zap.String("location_code", rec.LocationCode),
			zap.String("status", string(derived)),
			zap.Error(err),
		)
		return rec.Status, false
	}
	return derived, updated
}

// CreateStock создаёт складскую запись для товара на складе сервиса
// Статус вычисляется из начального количества, reserved == 0
func (s *StockService) CreateStock(ctx context.Context, productID string, quantity int32) (rec repository.StockRecord, err error) {
	defer func() { s.record(ctx, "create", err) }()

	if productID == "" {
		return repository.StockRecord{}, ErrInvalidProductID
	}
	if quantity < 0 {
		return repository.StockRecord{}, ErrInvalidAmount
	}

	now := s.now().UTC()
	rec = repository.StockRecord{
		ProductID:    productID,
		LocationCode: s.opts.LocationCode,
		Quantity:     quantity,
		Status:       DeriveStatus(quantity, s.opts.LowStockThreshold),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return repository.StockRecord{}, storeError(err)
	}

	created, err := s.repo.Get(ctx, rec.Key())
	if err != nil {
		// Запись уже создана, поэтому возвращаем то, что записывали
		platformobservability.L(ctx, s.logger).Warn("failed to read created stock record",
			zap.String("product_id", productID),
			zap.Error(err),
		)
		created = rec
	}

	platformobservability.L(ctx, s.logger).Info("stock record created",
		zap.String("product_id", productID),
		zap.String("location_code", rec.LocationCode),
		zap.Int32("quantity", quantity),
	)

	s.publisher.Publish(ctx, Event{
		Kind:         EventProductCreated,
		ProductID:    productID,
		LocationCode: rec.LocationCode,
		Amount:       quantity,
		OccurredAt:   now,
	})
	return created, nil
}

// SetDiscontinued ставит или снимает статус DISCONTINUED
// При снятии статус заново вычисляется из текущих количеств
func (s *StockService) SetDiscontinued(ctx context.Context, productID string, discontinued bool) (rec repository.StockRecord, err error) {
	defer func() { s.record(ctx, "set_discontinued", err) }()

	if productID == "" {
		return repository.StockRecord{}, ErrInvalidProductID
	}

	key := s.key(productID)
	current, err := s.repo.Get(ctx, key)
	if err != nil {
		return repository.StockRecord{}, storeError(err)
	}

	target := repository.StatusDiscontinued
	if !discontinued {
		target = DeriveStatus(current.Available(), s.opts.LowStockThreshold)
	}
	if current.Status == target {
		return current, nil
	}

	rec, err = s.repo.SetStatus(ctx, key, target)
	if err != nil {
		return repository.StockRecord{}, storeError(err)
	}

	platformobservability.L(ctx, s.logger).Info("stock status set",
		zap.String("product_id", productID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(target)),
	)

	s.evict(ctx, key)
	s.publishStatusChanged(ctx, key, target)
	return rec, nil
}

func (s *StockService) publishStatusChanged(ctx context.Context, key repository.Key, status repository.Status) {
	s.publisher.Publish(ctx, Event{
		Kind:         EventStatusChanged,
		ProductID:    key.ProductID,
		LocationCode: key.LocationCode,
		NewStatus:    status,
		OccurredAt:   s.now().UTC(),
	})
}

func (s *StockService) evict(ctx context.Context, key repository.Key) {
	if err := s.cache.Evict(ctx, key); err != nil {
		platformobservability.L(ctx, s.logger).Warn("failed to evict stock cache",
			zap.String("product_id", key.ProductID),
			zap.Error(err),
		)
	}
}

func (s *StockService) record(ctx context.Context, op string, err error) {
	s.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome(err)),
	))
}
