package presentation

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shestoi/stockkeeper/internal/repository"
)

var (
	// ErrProductNotFound возвращается каталогом, когда товара нет
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound возвращается, когда категории нет
	ErrCategoryNotFound = errors.New("category not found")
)

// Product - товар из каталога (данные принадлежат каталогу, здесь только читаются)
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	Brand       string
	CategoryID  string
	Attributes  map[string]interface{}
	Tags        []string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category - категория каталога
type Category struct {
	ID          string
	Name        string
	Description string
	ParentID    string
	Level       int
	Path        string
	Active      bool
}

// Price - активная цена товара
// Скидочная цена действует только внутри окна [SaleStart, SaleEnd]
type Price struct {
	ProductID    string
	RegularPrice decimal.Decimal
	SalePrice    decimal.NullDecimal
	SaleStart    *time.Time
	SaleEnd      *time.Time
	CurrencyCode string
}

// OnSale сообщает, действует ли скидка в момент now
func (p Price) OnSale(now time.Time) bool {
	if !p.SalePrice.Valid || p.SaleStart == nil || p.SaleEnd == nil {
		return false
	}
	return !now.Before(*p.SaleStart) && !now.After(*p.SaleEnd)
}

// CurrentPrice возвращает действующую цену в момент now
func (p Price) CurrentPrice(now time.Time) decimal.Decimal {
	if p.OnSale(now) {
		return p.SalePrice.Decimal
	}
	return p.RegularPrice
}

// CatalogReader читает товары каталога
type CatalogReader interface {
	// GetProduct возвращает ErrProductNotFound, если товара нет
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// CategoryReader читает категории каталога
type CategoryReader interface {
	// GetCategory возвращает ErrCategoryNotFound, если категории нет
	GetCategory(ctx context.Context, categoryID string) (Category, error)
}

// PricingReader читает цены
type PricingReader interface {
	// GetActivePrice возвращает nil без ошибки, если активной цены нет
	GetActivePrice(ctx context.Context, productID string) (*Price, error)
}

// StockReader читает складские записи
type StockReader interface {
	GetByProductID(ctx context.Context, productID string) (repository.StockRecord, error)
}
