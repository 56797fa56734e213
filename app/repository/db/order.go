package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storefront-service/app/domain"
	"storefront-service/pkg"

	"github.com/gofrs/uuid/v5"
)

const orderColumns = `id, order_number, customer_email, customer_name, customer_phone, status,
	subtotal, tax_amount, shipping_cost, total, currency, country_code, created_at, updated_at`

type orderRepository struct {
	conn *sql.DB
}

func NewOrderRepository(db *sql.DB) domain.OrderRepository {
	return &orderRepository{db}
}

// NextSequence issues the next order number suffix for day. The upsert
// row-locks the day's counter until the caller's transaction ends.
func (r *orderRepository) NextSequence(ctx context.Context, day time.Time, tx *sql.Tx) (int64, error) {
	query := `INSERT INTO order_number_sequences (day, last_value) VALUES ($1, 1)
	ON CONFLICT (day) DO UPDATE SET last_value = order_number_sequences.last_value + 1
	RETURNING last_value`

	var seq int64
	err := pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, day.UTC().Format(time.DateOnly)).Scan(&seq)
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] NextSequence", "queryRowContext", err)
		return 0, err
	}

	return seq, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order, tx *sql.Tx) error {
	query := `INSERT INTO orders (id, order_number, customer_email, customer_name, customer_phone, status,
	subtotal, tax_amount, shipping_cost, total, currency, country_code)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING created_at, updated_at`

	err := pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, order.ID, order.OrderNumber, order.CustomerEmail,
		order.CustomerName, order.CustomerPhone, order.Status, order.Subtotal, order.TaxAmount,
		order.ShippingCost, order.Total, order.Currency, order.CountryCode).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] Create", "queryRowContext", err)
		return err
	}

	return nil
}

func (r *orderRepository) CreateItems(ctx context.Context, items []domain.OrderItem, tx *sql.Tx) error {
	if len(items) == 0 {
		return nil
	}

	const cols = 11
	valuePlaceholders := make([]string, 0, len(items))
	valueArgs := make([]any, 0, len(items)*cols)
	for i, item := range items {
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", i*cols+j+1)
		}
		valuePlaceholders = append(valuePlaceholders, "("+strings.Join(ph, ", ")+")")
		valueArgs = append(valueArgs, item.ID, item.OrderID, item.VariantID, item.SKUSnapshot,
			item.ProductNameSnapshot, item.SizeSnapshot, item.ColorSnapshot, item.Quantity,
			item.UnitPrice, item.TotalPrice, item.FulfillmentStoreID)
	}

	query := fmt.Sprintf(`INSERT INTO order_items (id, order_id, variant_id, sku_snapshot, product_name_snapshot,
	size_snapshot, color_snapshot, quantity, unit_price, total_price, fulfillment_store_id) VALUES %s`,
		strings.Join(valuePlaceholders, ", "))

	res, err := pkg.Querier(r.conn, tx).ExecContext(ctx, query, valueArgs...)
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] CreateItems", "execContext", err)
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] CreateItems", "rowsAffected", err)
		return err
	}

	if rowsAffected != int64(len(items)) {
		slog.ErrorContext(ctx, "[orderRepository] CreateItems", "rowsAffected", rowsAffected, "expected", len(items))
		return fmt.Errorf("inserted %d of %d order items", rowsAffected, len(items))
	}

	return nil
}

func (r *orderRepository) CreateShippingAddress(ctx context.Context, addr *domain.ShippingAddress, tx *sql.Tx) error {
	query := `INSERT INTO shipping_addresses (id, order_id, full_name, address_line1, address_line2, city,
	region, postal_code, country_code, phone, delivery_instructions)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := pkg.Querier(r.conn, tx).ExecContext(ctx, query, addr.ID, addr.OrderID, addr.FullName,
		addr.AddressLine1, addr.AddressLine2, addr.City, addr.Region, addr.PostalCode, addr.CountryCode,
		addr.Phone, addr.DeliveryInstructions)
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] CreateShippingAddress", "execContext", err)
		return err
	}

	return nil
}

func (r *orderRepository) LockByIDForUpdate(ctx context.Context, id uuid.UUID, tx *sql.Tx) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
		}
		slog.ErrorContext(ctx, "[orderRepository] LockByIDForUpdate", "queryRowContext", err)
		return order, err
	}

	return order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, tx *sql.Tx) error {
	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`

	res, err := pkg.Querier(r.conn, tx).ExecContext(ctx, query, status, id)
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] UpdateStatus", "execContext", err)
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] UpdateStatus", "rowsAffected", err)
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}

	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[orderRepository] GetByID", "queryRowContext", err)
		return order, err
	}

	return order, nil
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	order, err := scanOrder(r.conn.QueryRowContext(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[orderRepository] GetByOrderNumber", "queryRowContext", err)
		return order, err
	}

	return order, nil
}

func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `SELECT id, order_id, variant_id, sku_snapshot, product_name_snapshot, size_snapshot, color_snapshot,
	quantity, unit_price, total_price, fulfillment_store_id, created_at
	FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

	rows, err := r.conn.QueryContext(ctx, query, orderID)
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] GetItems", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		var size, color sql.NullString
		if err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.SKUSnapshot, &item.ProductNameSnapshot,
			&size, &color, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.FulfillmentStoreID,
			&item.CreatedAt); err != nil {
			slog.ErrorContext(ctx, "[orderRepository] GetItems", "scan", err)
			return nil, err
		}
		item.SizeSnapshot = nullStringPtr(size)
		item.ColorSnapshot = nullStringPtr(color)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[orderRepository] GetItems", "rowError", err)
		return nil, err
	}

	return items, nil
}

func (r *orderRepository) GetShippingAddress(ctx context.Context, orderID uuid.UUID) (domain.ShippingAddress, error) {
	query := `SELECT id, order_id, full_name, address_line1, address_line2, city, region, postal_code,
	country_code, phone, delivery_instructions
	FROM shipping_addresses WHERE order_id = $1`

	var addr domain.ShippingAddress
	var line2, region, postalCode, instructions sql.NullString
	err := r.conn.QueryRowContext(ctx, query, orderID).Scan(&addr.ID, &addr.OrderID, &addr.FullName,
		&addr.AddressLine1, &line2, &addr.City, &region, &postalCode, &addr.CountryCode, &addr.Phone, &instructions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return addr, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[orderRepository] GetShippingAddress", "queryRowContext", err)
		return addr, err
	}
	addr.AddressLine2 = nullStringPtr(line2)
	addr.Region = nullStringPtr(region)
	addr.PostalCode = nullStringPtr(postalCode)
	addr.DeliveryInstructions = nullStringPtr(instructions)

	return addr, nil
}

func (r *orderRepository) List(ctx context.Context, param domain.ListOrdersRequest) ([]domain.Order, error) {
	where, args := orderFilter(param)

	sortOrder := "DESC"
	if strings.EqualFold(param.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at %s, id LIMIT $%d OFFSET $%d`,
		orderColumns, where, sortOrder, len(args)+1, len(args)+2)
	args = append(args, param.Limit, (param.Page-1)*param.Limit)

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "[orderRepository] List", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			slog.ErrorContext(ctx, "[orderRepository] List", "scan", err)
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[orderRepository] List", "rowError", err)
		return nil, err
	}

	return orders, nil
}

func (r *orderRepository) Count(ctx context.Context, param domain.ListOrdersRequest) (int64, error) {
	where, args := orderFilter(param)

	var count int64
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&count); err != nil {
		slog.ErrorContext(ctx, "[orderRepository] Count", "queryRowContext", err)
		return 0, err
	}

	return count, nil
}

func (r *orderRepository) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return withTransaction(ctx, r.conn, "[orderRepository]", fn)
}

func orderFilter(param domain.ListOrdersRequest) (string, []any) {
	if param.Status == "" {
		return "", nil
	}
	return "WHERE status = $1", []any{param.Status}
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var phone sql.NullString
	err := row.Scan(&order.ID, &order.OrderNumber, &order.CustomerEmail, &order.CustomerName, &phone,
		&order.Status, &order.Subtotal, &order.TaxAmount, &order.ShippingCost, &order.Total,
		&order.Currency, &order.CountryCode, &order.CreatedAt, &order.UpdatedAt)
	order.CustomerPhone = nullStringPtr(phone)
	return order, err
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
