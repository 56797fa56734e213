package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"storefront-service/app/domain"
	"storefront-service/config"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
)

type stockUsecase struct {
	inventoryRepo   domain.InventoryRepository
	reservationRepo domain.ReservationRepository
	cache           domain.Cache
	cfg             *config.Config
	now             func() time.Time
}

func NewStockUsecase(inventoryRepo domain.InventoryRepository, reservationRepo domain.ReservationRepository, cache domain.Cache, cfg *config.Config) domain.StockUsecase {
	return &stockUsecase{
		inventoryRepo:   inventoryRepo,
		reservationRepo: reservationRepo,
		cache:           cache,
		cfg:             cfg,
		now:             time.Now,
	}
}

func (u *stockUsecase) GetSellableStock(ctx context.Context, sku string, storeID *uuid.UUID) (domain.StockInfo, error) {
	ctx, span := tracer.Start(ctx, "stockUsecase.GetSellableStock")
	defer span.End()
	span.SetAttributes(attribute.String("sku", sku))

	inventories, err := u.inventoryRepo.GetBySKU(ctx, sku, storeID)
	if err != nil {
		slog.ErrorContext(ctx, "[stockUsecase] GetSellableStock", "getInventory", err)
		return domain.StockInfo{}, err
	}

	reservedByStore, err := u.reservationRepo.SumActiveReservedByStore(ctx, sku, u.now())
	if err != nil {
		slog.ErrorContext(ctx, "[stockUsecase] GetSellableStock", "sumReserved", err)
		return domain.StockInfo{}, err
	}

	return domain.ComputeStockInfo(sku, inventories, reservedByStore, u.cfg.Business.SafetyBuffer), nil
}

// GetStockSummary serves the public stock figure, read-through the cache.
// Cache failures fall back to the database.
func (u *stockUsecase) GetStockSummary(ctx context.Context, sku string) (domain.StockSummary, error) {
	key := domain.StockCacheKey(sku)

	if cached, ok, err := u.cache.Get(ctx, key); err == nil && ok {
		var summary domain.StockSummary
		if err := json.Unmarshal([]byte(cached), &summary); err == nil {
			return summary, nil
		}
	}

	info, err := u.GetSellableStock(ctx, sku, nil)
	if err != nil {
		return domain.StockSummary{}, err
	}
	summary := info.Summary()

	if ttl := u.cfg.Redis.StockCacheTTL(); ttl > 0 {
		if raw, err := json.Marshal(summary); err == nil {
			if err := u.cache.Set(ctx, key, string(raw), ttl); err != nil {
				slog.WarnContext(ctx, "[stockUsecase] GetStockSummary", "cacheSet", err)
			}
		}
	}

	return summary, nil
}
