package service

import (
	"context"
	"time"

	"github.com/shestoi/stockkeeper/internal/repository"
)

// EventKind - тип события, каждый тип публикуется в свой топик
type EventKind string

const (
	EventStockReserved  EventKind = "stock.reserved"
	EventStockReleased  EventKind = "stock.released"
	EventStockIn        EventKind = "stock.in"
	EventStockOut       EventKind = "stock.out"
	EventStatusChanged  EventKind = "status.changed"
	EventProductCreated EventKind = "product.created"
)

// Event представляет исходящее событие об изменении склада
// Amount заполняется для событий движения товара, NewStatus - для status.changed
type Event struct {
	Kind         EventKind
	ProductID    string
	LocationCode string
	Amount       int32
	NewStatus    repository.Status
	OccurredAt   time.Time
}

// EventPublisher определяет интерфейс для публикации событий склада
// Publish не возвращает ошибку: сбой транспорта логируется и не влияет на вызывающего
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// StockCache определяет интерфейс кэша складских записей для чтения
// Ошибки кэша никогда не ломают запрос: сервис только логирует их
type StockCache interface {
	// Get возвращает запись из кэша, ok == false при промахе
	Get(ctx context.Context, key repository.Key) (repository.StockRecord, bool, error)
	// Set кладёт запись в кэш
	Set(ctx context.Context, record repository.StockRecord) error
	// Evict удаляет запись из кэша
	Evict(ctx context.Context, key repository.Key) error
}

// nopCache используется, когда кэш не настроен
type nopCache struct{}

func (nopCache) Get(context.Context, repository.Key) (repository.StockRecord, bool, error) {
	return repository.StockRecord{}, false, nil
}

func (nopCache) Set(context.Context, repository.StockRecord) error { return nil }

func (nopCache) Evict(context.Context, repository.Key) error { return nil }
