package domain

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type StoreStock struct {
	StoreID   uuid.UUID `json:"storeId"`
	StoreName string    `json:"storeName"`
	Physical  int64     `json:"physical"`
	Reserved  int64     `json:"reserved"`
	Sellable  int64     `json:"sellable"`
}

type StockInfo struct {
	SKU            string       `json:"sku"`
	PhysicalStock  int64        `json:"physicalStock"`
	ReservedStock  int64        `json:"reservedStock"`
	SafetyBuffer   int64        `json:"safetyBuffer"`
	SellableStock  int64        `json:"sellableStock"`
	StoreBreakdown []StoreStock `json:"storeBreakdown"`
}

type StockSummary struct {
	SKU           string `json:"sku"`
	SellableStock int64  `json:"sellableStock"`
	InStock       bool   `json:"inStock"`
}

// Sellable is the quantity that can still be promised out of physical
// stock once reservations and the safety buffer are held back.
func Sellable(physical, reserved, buffer int64) int64 {
	sellable := physical - reserved - buffer
	if sellable < 0 {
		return 0
	}
	return sellable
}

// ComputeStockInfo aggregates per-store inventory into a StockInfo. The
// buffer is held back once per store, both per row and in the total.
func ComputeStockInfo(sku string, inventories []StoreInventory, reservedByStore map[uuid.UUID]int64, buffer int64) StockInfo {
	info := StockInfo{
		SKU:            sku,
		StoreBreakdown: make([]StoreStock, 0, len(inventories)),
	}

	for _, inv := range inventories {
		reserved := reservedByStore[inv.StoreID]
		info.PhysicalStock += inv.Quantity
		info.ReservedStock += reserved
		info.StoreBreakdown = append(info.StoreBreakdown, StoreStock{
			StoreID:   inv.StoreID,
			StoreName: inv.StoreName,
			Physical:  inv.Quantity,
			Reserved:  reserved,
			Sellable:  Sellable(inv.Quantity, reserved, buffer),
		})
	}

	info.SafetyBuffer = buffer * int64(len(inventories))
	info.SellableStock = Sellable(info.PhysicalStock, info.ReservedStock, info.SafetyBuffer)
	return info
}

func (s StockInfo) Summary() StockSummary {
	return StockSummary{
		SKU:           s.SKU,
		SellableStock: s.SellableStock,
		InStock:       s.SellableStock > 0,
	}
}

type StockUsecase interface {
	GetSellableStock(ctx context.Context, sku string, storeID *uuid.UUID) (StockInfo, error)
	GetStockSummary(ctx context.Context, sku string) (StockSummary, error)
}
