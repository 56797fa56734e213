package domain

import (
	"context"
	"time"
)

type Cache interface {
	// Get reports false without an error on a miss.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func StockCacheKey(sku string) string {
	return "stock:sellable:" + sku
}
