package presentation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	platformobservability "github.com/shestoi/stockkeeper/platform/observability"
)

// ProductView - товар вместе с категорией, ценой и складом
// Части, источник которых недоступен, остаются nil
type ProductView struct {
	ID          string                 `json:"id"`
	SKU         string                 `json:"sku"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Brand       string                 `json:"brand,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Active      bool                   `json:"active"`
	Category    *CategoryView          `json:"category,omitempty"`
	Price       *PriceView             `json:"price,omitempty"`
	Inventory   *InventoryView         `json:"inventory,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// CategoryView - категория в составе ProductView
type CategoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// PriceView - цена в составе ProductView
type PriceView struct {
	RegularPrice  decimal.Decimal     `json:"regularPrice"`
	SalePrice     decimal.NullDecimal `json:"salePrice"`
	CurrentPrice  decimal.Decimal     `json:"currentPrice"`
	CurrencyCode  string              `json:"currencyCode"`
	OnSale        bool                `json:"onSale"`
	SaleStartDate *time.Time          `json:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time          `json:"saleEndDate,omitempty"`
}

// InventoryView - склад в составе ProductView
type InventoryView struct {
	Status            string `json:"status"`
	Quantity          int32  `json:"quantity"`
	AvailableQuantity int32  `json:"availableQuantity"`
	LocationCode      string `json:"locationCode"`
}

// Composer собирает ProductView из каталога, категорий, цен и склада
// Обязателен только каталог: сбой любого другого источника лишь убирает его часть из ответа
type Composer struct {
	logger     *zap.Logger
	catalog    CatalogReader
	categories CategoryReader
	pricing    PricingReader
	stock      StockReader
	now        func() time.Time
}

// NewComposer создаёт новый Composer
// categories, pricing и stock могут быть nil
func NewComposer(logger *zap.Logger, catalog CatalogReader, categories CategoryReader, pricing PricingReader, stock StockReader) *Composer {
	return &Composer{
		logger:     logger,
		catalog:    catalog,
		categories: categories,
		pricing:    pricing,
		stock:      stock,
		now:        time.Now,
	}
}

// ProductView возвращает представление товара
// Возвращает ErrProductNotFound, если товара нет в каталоге
func (c *Composer) ProductView(ctx context.Context, productID string) (ProductView, error) {
	logger := platformobservability.L(ctx, c.logger)

	product, err := c.catalog.GetProduct(ctx, productID)
	if err != nil {
		return ProductView{}, fmt.Errorf("get product %s: %w", productID, err)
	}

	view := ProductView{
		ID:          product.ID,
		SKU:         product.SKU,
		Name:        product.Name,
		Description: product.Description,
		Brand:       product.Brand,
		Attributes:  product.Attributes,
		Tags:        product.Tags,
		Active:      product.Active,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}

	if c.categories != nil && product.CategoryID != "" {
		category, err := c.categories.GetCategory(ctx, product.CategoryID)
		if err != nil {
			logger.Warn("category lookup failed, omitting from view",
				zap.String("product_id", productID),
				zap.String("category_id", product.CategoryID),
				zap.Error(err),
			)
		} else {
			view.Category = &CategoryView{ID: category.ID, Name: category.Name, Path: category.Path}
		}
	}

	if c.pricing != nil {
		price, err := c.pricing.GetActivePrice(ctx, productID)
		switch {
		case err != nil:
			logger.Warn("price lookup failed, omitting from view",
				zap.String("product_id", productID),
				zap.Error(err),
			)
		case price != nil:
			now := c.now()
			view.Price = &PriceView{
				RegularPrice:  price.RegularPrice,
				SalePrice:     price.SalePrice,
				CurrentPrice:  price.CurrentPrice(now),
				CurrencyCode:  price.CurrencyCode,
				OnSale:        price.OnSale(now),
				SaleStartDate: price.SaleStart,
				SaleEndDate:   price.SaleEnd,
			}
		}
	}

	if c.stock != nil {
		rec, err := c.stock.GetByProductID(ctx, productID)
		if err != nil {
			logger.Warn("stock lookup failed, omitting from view",
				zap.String("product_id", productID),
				zap.Error(err),
			)
		} else {
			view.Inventory = &InventoryView{
				Status:            string(rec.Status),
				Quantity:          rec.Quantity,
				AvailableQuantity: rec.Available(),
				LocationCode:      rec.LocationCode,
			}
		}
	}

	return view, nil
}
