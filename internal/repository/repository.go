package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Status - статус складской записи
type Status string

const (
	StatusInStock      Status = "IN_STOCK"
	StatusLowStock     Status = "LOW_STOCK"
	StatusOutOfStock   Status = "OUT_OF_STOCK"
	StatusDiscontinued Status = "DISCONTINUED"
)

// Valid сообщает, является ли значение одним из известных статусов
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusOutOfStock, StatusDiscontinued:
		return true
	}
	return false
}

// Key идентифицирует складскую запись: одна запись на пару (товар, склад)
type Key struct {
	ProductID    string
	LocationCode string
}

func (k Key) String() string {
	return k.ProductID + "@" + k.LocationCode
}

// StockRecord представляет доменную модель складской записи
// Quantity - физический остаток, ReservedQuantity - обещано незакрытым заказам
type StockRecord struct {
	ID               string
	ProductID        string
	LocationCode     string
	Quantity         int32
	ReservedQuantity int32
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Key возвращает ключ записи
func (r StockRecord) Key() Key {
	return Key{ProductID: r.ProductID, LocationCode: r.LocationCode}
}

// Available возвращает количество, доступное для продажи прямо сейчас
func (r StockRecord) Available() int32 {
	return r.Quantity - r.ReservedQuantity
}

// Validate проверяет инвариант 0 <= reserved <= quantity
func (r StockRecord) Validate() error {
	if r.ProductID == "" {
		return fmt.Errorf("%w: product_id is required", ErrInvalidRecord)
	}
	if r.LocationCode == "" {
		return fmt.Errorf("%w: location_code is required", ErrInvalidRecord)
	}
	if r.ReservedQuantity < 0 {
		return fmt.Errorf("%w: reserved_quantity %d is negative", ErrInvalidRecord, r.ReservedQuantity)
	}
	if r.ReservedQuantity > r.Quantity {
		return fmt.Errorf("%w: reserved_quantity %d exceeds quantity %d", ErrInvalidRecord, r.ReservedQuantity, r.Quantity)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	return nil
}

// Guard - условие, которое хранилище проверяет в момент записи
type Guard int

const (
	// GuardNone - без условия, запись должна только существовать
	GuardNone Guard = iota
	// GuardAvailable - quantity - reserved_quantity >= GuardAmount
	GuardAvailable
	// GuardReserved - reserved_quantity >= GuardAmount
	GuardReserved
	// GuardCapacity - quantity <= MaxInt32 - GuardAmount, приход не переполняет int32
	GuardCapacity
)

// CapacityLimit возвращает наибольшее quantity, к которому ещё можно прибавить amount
func CapacityLimit(amount int32) int32 {
	return math.MaxInt32 - amount
}

// Mutation описывает атомарное условное изменение одной записи:
// если Guard выполняется, к полям прибавляются дельты и обновляется updated_at
type Mutation struct {
	QuantityDelta int32
	ReservedDelta int32
	Guard         Guard
	GuardAmount   int32
}

// Holds проверяет условие мутации для переданной записи
// Используется реализациями, у которых нет собственного языка условий (memory)
func (m Mutation) Holds(r StockRecord) bool {
	switch m.Guard {
	case GuardAvailable:
		return r.Available() >= m.GuardAmount
	case GuardReserved:
		return r.ReservedQuantity >= m.GuardAmount
	case GuardCapacity:
		return r.Quantity <= CapacityLimit(m.GuardAmount)
	default:
		return true
	}
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=StockRepository --dir=. --output=./mocks --outpkg=mocks

// StockRepository определяет интерфейс хранилища складских записей
// Service слой зависит от этого интерфейса, а не от конкретной реализации (memory, MongoDB, PostgreSQL)
type StockRepository interface {
	// Create сохраняет новую запись
	// Возвращает ErrAlreadyExists, если запись для ключа уже есть
	Create(ctx context.Context, record StockRecord) error

	// Get получает запись по ключу
	// Возвращает ErrNotFound, если записи нет
	Get(ctx context.Context, key Key) (StockRecord, error)

	// GetMany получает записи по списку товаров на одном складе
	// Неизвестные товары просто отсутствуют в результате
	GetMany(ctx context.Context, productIDs []string, locationCode string) (map[string]StockRecord, error)

	// ListByMaxQuantity возвращает записи склада с quantity <= threshold
	ListByMaxQuantity(ctx context.Context, locationCode string, threshold int32) ([]StockRecord, error)

	// ListByMaxAvailable возвращает записи склада с quantity - reserved_quantity <= threshold
	ListByMaxAvailable(ctx context.Context, locationCode string, threshold int32) ([]StockRecord, error)

	// Apply атомарно проверяет условие мутации и применяет её одной операцией
	// Возвращает состояние записи после коммита
	// Возвращает ErrConditionFailed, если ни одна запись не подошла (нет записи или условие не выполнено)
	Apply(ctx context.Context, key Key, m Mutation) (StockRecord, error)

	// UpdateDerivedStatus записывает вычисленный статус, если текущий статус не DISCONTINUED
	// Возвращает false, если запись не изменилась (нет записи или она DISCONTINUED)
	UpdateDerivedStatus(ctx context.Context, key Key, status Status) (bool, error)

	// SetStatus безусловно записывает статус (административное действие)
	// Возвращает ErrNotFound, если записи нет
	SetStatus(ctx context.Context, key Key, status Status) (StockRecord, error)
}

var (
	// ErrNotFound возвращается, когда складская запись не найдена
	ErrNotFound = errors.New("stock record not found")
	// ErrConditionFailed возвращается, когда условная запись не затронула ни одной записи
	ErrConditionFailed = errors.New("stock record condition not met")
	// ErrAlreadyExists возвращается при повторном создании записи для того же ключа
	ErrAlreadyExists = errors.New("stock record already exists")
	// ErrInvalidRecord возвращается, когда запись нарушает инварианты
	ErrInvalidRecord = errors.New("invalid stock record")
)
