package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shestoi/stockkeeper/internal/presentation"
)

// PricingClient читает активные цены из PostgreSQL
type PricingClient struct {
	pool *pgxpool.Pool
}

// NewPricingClient создаёт новый клиент цен
func NewPricingClient(pool *pgxpool.Pool) *PricingClient {
	return &PricingClient{
		pool: pool,
	}
}

// GetActivePrice возвращает активную цену товара или nil, если её нет
// Если активных цен несколько, берётся самая свежая
func (c *PricingClient) GetActivePrice(ctx context.Context, productID string) (*presentation.Price, error) {
	var (
		regular   string
		sale      *string
		saleStart *time.Time
		saleEnd   *time.Time
		currency  string
	)
	err := c.pool.QueryRow(ctx,
		`SELECT regular_price::text, sale_price::text, sale_start_date, sale_end_date, currency_code
		 FROM prices
		 WHERE product_id = $1 AND is_active
		 ORDER BY created_at DESC
		 LIMIT 1`,
		productID).Scan(&regular, &sale, &saleStart, &saleEnd, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select active price: %w", err)
	}

	return buildPrice(productID, regular, sale, saleStart, saleEnd, currency)
}

func buildPrice(productID, regular string, sale *string, saleStart, saleEnd *time.Time, currency string) (*presentation.Price, error) {
	regularPrice, err := decimal.NewFromString(regular)
	if err != nil {
		return nil, fmt.Errorf("parse regular_price: %w", err)
	}
	price := &presentation.Price{
		ProductID:    productID,
		RegularPrice: regularPrice,
		SaleStart:    saleStart,
		SaleEnd:      saleEnd,
		CurrencyCode: currency,
	}
	if sale != nil {
		salePrice, err := decimal.NewFromString(*sale)
		if err != nil {
			return nil, fmt.Errorf("parse sale_price: %w", err)
		}
		price.SalePrice = decimal.NewNullDecimal(salePrice)
	}
	return price, nil
}
