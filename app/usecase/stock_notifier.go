package usecase

import (
	"context"
	"log/slog"

	"storefront-service/app/domain"
)

// stockNotifier drops cached stock figures and announces the fresh ones
// once a transaction that moved reservations has committed.
type stockNotifier struct {
	stock     domain.StockUsecase
	cache     domain.Cache
	publisher domain.BrokerPublisher
}

func (n stockNotifier) notify(ctx context.Context, skus ...string) {
	seen := make(map[string]struct{}, len(skus))
	keys := make([]string, 0, len(skus))
	for _, sku := range skus {
		if _, ok := seen[sku]; ok {
			continue
		}
		seen[sku] = struct{}{}
		keys = append(keys, domain.StockCacheKey(sku))
	}
	if len(keys) == 0 {
		return
	}

	if err := n.cache.Delete(ctx, keys...); err != nil {
		slog.WarnContext(ctx, "[stockNotifier] notify", "cacheDelete", err)
	}

	for sku := range seen {
		info, err := n.stock.GetSellableStock(ctx, sku, nil)
		if err != nil {
			slog.WarnContext(ctx, "[stockNotifier] notify", "getSellableStock", err, "sku", sku)
			continue
		}
		summary := info.Summary()
		err = n.publisher.PublishStockChanged(ctx, domain.StockMessage{
			SKU:           summary.SKU,
			SellableStock: summary.SellableStock,
			InStock:       summary.InStock,
		})
		if err != nil {
			slog.WarnContext(ctx, "[stockNotifier] notify", "publishStockChanged", err, "sku", sku)
		}
	}
}

func reservationSKUs(reservations []domain.Reservation) []string {
	skus := make([]string, 0, len(reservations))
	for _, r := range reservations {
		skus = append(skus, r.SKU)
	}
	return skus
}
