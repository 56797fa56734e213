package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofrs/uuid/v5"
)

type Store struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Code               string    `json:"code,omitempty"`
	FulfillmentEnabled bool      `json:"fulfillmentEnabled,omitempty"`
	Active             bool      `json:"active,omitempty"`
	CreatedAt          time.Time `json:"createdAt,omitzero"`
	UpdatedAt          time.Time `json:"updatedAt,omitzero"`
}

// StoreInventory is the physical count of one sku at one store.
type StoreInventory struct {
	ID           uuid.UUID  `json:"id"`
	StoreID      uuid.UUID  `json:"storeId"`
	StoreName    string     `json:"storeName"`
	SKU          string     `json:"sku"`
	Quantity     int64      `json:"quantity"`
	LastSyncedAt *time.Time `json:"lastSyncedAt"`
}

const DefaultLowStockThreshold = 5

type LowStockStore struct {
	StoreName string `json:"storeName"`
	Sellable  int64  `json:"sellable"`
}

type LowStockItem struct {
	SKU           string          `json:"sku"`
	TotalSellable int64           `json:"totalSellable"`
	Stores        []LowStockStore `json:"stores"`
}

type LowStockRequest struct {
	Threshold *int64 `query:"threshold" validate:"omitempty,gte=0"`
}

type SyncResult struct {
	StoresSynced int64     `json:"storesSynced"`
	RowsTouched  int64     `json:"rowsTouched"`
	SyncedAt     time.Time `json:"syncedAt"`
}

type InventoryRepository interface {
	// GetBySKU reads inventory rows of active, fulfillment-enabled stores.
	GetBySKU(ctx context.Context, sku string, storeID *uuid.UUID) ([]StoreInventory, error)
	LockCandidatesForUpdate(ctx context.Context, sku string, tx *sql.Tx) ([]StoreInventory, error)
	ListSKUs(ctx context.Context) ([]string, error)
	CountFulfillmentStores(ctx context.Context) (int64, error)
	MarkSynced(ctx context.Context, syncedAt time.Time) (int64, error)
}

type InventoryUsecase interface {
	GetLowStock(ctx context.Context, req LowStockRequest) ([]LowStockItem, error)
	SyncInventory(ctx context.Context) (SyncResult, error)
}
