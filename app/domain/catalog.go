package domain

import (
	"context"
	"database/sql"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type ProductVariant struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	SizeCode    *string
	Color       *string
	Price       decimal.Decimal
}

type CatalogRepository interface {
	FindVariantBySKU(ctx context.Context, sku string, tx *sql.Tx) (ProductVariant, error)
}
