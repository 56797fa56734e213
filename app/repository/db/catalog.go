package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/pkg"
)

type catalogRepository struct {
	conn *sql.DB
}

func NewCatalogRepository(db *sql.DB) domain.CatalogRepository {
	return &catalogRepository{db}
}

func (r *catalogRepository) FindVariantBySKU(ctx context.Context, sku string, tx *sql.Tx) (domain.ProductVariant, error) {
	query := `SELECT pv.id, pv.product_id, p.name, pv.sku, pv.size_code, pv.color, pv.price
	FROM product_variants pv
	JOIN products p ON p.id = pv.product_id
	WHERE pv.sku = $1`

	var v domain.ProductVariant
	var size, color sql.NullString
	err := pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, sku).Scan(&v.ID, &v.ProductID, &v.ProductName, &v.SKU,
		&size, &color, &v.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, fmt.Errorf("%w: variant %s", domain.ErrNotFound, sku)
		}
		slog.ErrorContext(ctx, "[catalogRepository] FindVariantBySKU", "queryRowContext", err)
		return v, err
	}
	v.SizeCode = nullStringPtr(size)
	v.Color = nullStringPtr(color)

	return v, nil
}
