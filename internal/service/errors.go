package service

import (
	"errors"
	"fmt"

	"github.com/shestoi/stockkeeper/internal/repository"
)

var (
	// ErrInvalidAmount возвращается, когда количество не положительное (или отрицательное при создании записи)
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrQuantityOverflow возвращается, когда приход переполнил бы quantity
	ErrQuantityOverflow = fmt.Errorf("%w: quantity would exceed int32 range", ErrInvalidAmount)
	// ErrInvalidProductID возвращается при пустом product_id
	ErrInvalidProductID = errors.New("product_id is required")
	// ErrNotFound возвращается, когда складской записи для товара нет
	ErrNotFound = errors.New("stock record not found")
	// ErrAlreadyExists возвращается при повторном создании складской записи
	ErrAlreadyExists = errors.New("stock record already exists")
	// ErrInsufficientStock возвращается, когда условие резерва или отгрузки не выполнено
	// Конкретные цифры доступны через *InsufficientStockError
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUnavailable возвращается, когда хранилище недоступно или запрос не подтвердил коммит
	ErrUnavailable = errors.New("stock store unavailable")
)

// InsufficientStockError содержит последнее известное состояние записи на момент отказа
type InsufficientStockError struct {
	ProductID string
	Requested int32
	Quantity  int32
	Reserved  int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, quantity %d, reserved %d, available %d",
		e.ProductID, e.Requested, e.Quantity, e.Reserved, e.Available)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrInsufficientStock)
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

func newInsufficientStockError(rec repository.StockRecord, requested int32) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID: rec.ProductID,
		Requested: requested,
		Quantity:  rec.Quantity,
		Reserved:  rec.ReservedQuantity,
		Available: rec.Available(),
	}
}

// storeError переводит ошибки repository слоя в ошибки service слоя
// Всё, что не является известной ошибкой хранилища, считается недоступностью
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, repository.ErrInvalidRecord):
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// outcome возвращает короткую метку результата для метрик
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidProductID):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "unavailable"
	}
}
