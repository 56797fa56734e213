package usecase

import (
	"context"
	"log/slog"
	"time"

	"storefront-service/app/domain"
)

type inventoryUsecase struct {
	inventoryRepo domain.InventoryRepository
	stock         domain.StockUsecase
	now           func() time.Time
}

func NewInventoryUsecase(inventoryRepo domain.InventoryRepository, stock domain.StockUsecase) domain.InventoryUsecase {
	return &inventoryUsecase{
		inventoryRepo: inventoryRepo,
		stock:         stock,
		now:           time.Now,
	}
}

// GetLowStock lists every sku whose sellable stock is below the threshold.
func (u *inventoryUsecase) GetLowStock(ctx context.Context, req domain.LowStockRequest) ([]domain.LowStockItem, error) {
	threshold := int64(domain.DefaultLowStockThreshold)
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	skus, err := u.inventoryRepo.ListSKUs(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryUsecase] GetLowStock", "listSKUs", err)
		return nil, err
	}

	items := []domain.LowStockItem{}
	for _, sku := range skus {
		info, err := u.stock.GetSellableStock(ctx, sku, nil)
		if err != nil {
			slog.ErrorContext(ctx, "[inventoryUsecase] GetLowStock", "getSellableStock", err, "sku", sku)
			return nil, err
		}
		if info.SellableStock >= threshold {
			continue
		}

		stores := make([]domain.LowStockStore, 0, len(info.StoreBreakdown))
		for _, s := range info.StoreBreakdown {
			stores = append(stores, domain.LowStockStore{StoreName: s.StoreName, Sellable: s.Sellable})
		}
		items = append(items, domain.LowStockItem{
			SKU:           sku,
			TotalSellable: info.SellableStock,
			Stores:        stores,
		})
	}

	return items, nil
}

// SyncInventory is a placeholder for pulling physical counts from the
// point-of-sale system. It only stamps the sync time.
func (u *inventoryUsecase) SyncInventory(ctx context.Context) (domain.SyncResult, error) {
	stores, err := u.inventoryRepo.CountFulfillmentStores(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryUsecase] SyncInventory", "countStores", err)
		return domain.SyncResult{}, err
	}

	syncedAt := u.now()
	touched, err := u.inventoryRepo.MarkSynced(ctx, syncedAt)
	if err != nil {
		slog.ErrorContext(ctx, "[inventoryUsecase] SyncInventory", "markSynced", err)
		return domain.SyncResult{}, err
	}

	slog.InfoContext(ctx, "[inventoryUsecase] SyncInventory", "stores", stores, "rows", touched)
	return domain.SyncResult{StoresSynced: stores, RowsTouched: touched, SyncedAt: syncedAt}, nil
}
