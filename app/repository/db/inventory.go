package db

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"storefront-service/app/domain"

	"github.com/gofrs/uuid/v5"
)

type inventoryRepository struct {
	conn *sql.DB
}

func NewInventoryRepository(db *sql.DB) domain.InventoryRepository {
	return &inventoryRepository{db}
}

func (r *inventoryRepository) GetBySKU(ctx context.Context, sku string, storeID *uuid.UUID) ([]domain.StoreInventory, error) {
	query := `SELECT si.id, si.store_id, s.name, si.sku, si.quantity, si.last_synced_at
	FROM store_inventory si
	JOIN stores s ON s.id = si.store_id
	WHERE si.sku = $1
	AND s.is_active = TRUE
	AND s.is_fulfillment_enabled = TRUE`
	args := []any{sku}
	if storeID != nil {
		query += ` AND si.store_id = $2`
		args = append(args, *storeID)
	}
	query += ` ORDER BY si.quantity DESC, si.store_id`

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] GetBySKU", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	inventories, err := scanInventories(rows)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] GetBySKU", "scan", err)
		return nil, err
	}

	return inventories, nil
}

// LockCandidatesForUpdate row-locks the sku's inventory at every store that
// may fulfil it, fullest store first. Concurrent reservations for the same
// sku serialize on these locks until the transaction ends.
func (r *inventoryRepository) LockCandidatesForUpdate(ctx context.Context, sku string, tx *sql.Tx) ([]domain.StoreInventory, error) {
	query := `SELECT si.id, si.store_id, s.name, si.sku, si.quantity, si.last_synced_at
	FROM store_inventory si
	JOIN stores s ON s.id = si.store_id
	WHERE si.sku = $1
	AND s.is_active = TRUE
	AND s.is_fulfillment_enabled = TRUE
	ORDER BY si.quantity DESC, si.store_id
	FOR UPDATE OF si`

	rows, err := tx.QueryContext(ctx, query, sku)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] LockCandidatesForUpdate", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	inventories, err := scanInventories(rows)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] LockCandidatesForUpdate", "scan", err)
		return nil, err
	}

	return inventories, nil
}

func (r *inventoryRepository) ListSKUs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT sku FROM store_inventory ORDER BY sku`

	rows, err := r.conn.QueryContext(ctx, query)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] ListSKUs", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	var skus []string
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			slog.ErrorContext(ctx, "[inventoryRepository] ListSKUs", "scan", err)
			return nil, err
		}
		skus = append(skus, sku)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] ListSKUs", "rowError", err)
		return nil, err
	}

	return skus, nil
}

func (r *inventoryRepository) CountFulfillmentStores(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM stores WHERE is_active = TRUE AND is_fulfillment_enabled = TRUE`

	var count int64
	if err := r.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] CountFulfillmentStores", "queryRowContext", err)
		return 0, err
	}

	return count, nil
}

// MarkSynced stamps last_synced_at on every row of an active store. It is
// the only write this service makes to store_inventory.
func (r *inventoryRepository) MarkSynced(ctx context.Context, syncedAt time.Time) (int64, error) {
	query := `UPDATE store_inventory si SET last_synced_at = $1, updated_at = NOW()
	FROM stores s
	WHERE s.id = si.store_id AND s.is_active = TRUE`

	res, err := r.conn.ExecContext(ctx, query, syncedAt)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] MarkSynced", "execContext", err)
		return 0, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryRepository] MarkSynced", "rowsAffected", err)
		return 0, err
	}

	return rowsAffected, nil
}

func scanInventories(rows *sql.Rows) ([]domain.StoreInventory, error) {
	var inventories []domain.StoreInventory
	for rows.Next() {
		var inv domain.StoreInventory
		var lastSyncedAt sql.NullTime
		if err := rows.Scan(&inv.ID, &inv.StoreID, &inv.StoreName, &inv.SKU, &inv.Quantity, &lastSyncedAt); err != nil {
			return nil, err
		}
		if lastSyncedAt.Valid {
			inv.LastSyncedAt = &lastSyncedAt.Time
		}
		inventories = append(inventories, inv)
	}

	return inventories, rows.Err()
}
