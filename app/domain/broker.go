package domain

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type StockMessage struct {
	SKU           string `json:"sku"`
	SellableStock int64  `json:"sellableStock"`
	InStock       bool   `json:"inStock"`
}

type OrderEventType string

const (
	OrderEventCreated         OrderEventType = "order_created"
	OrderEventPaid            OrderEventType = "order_paid"
	OrderEventCancelled       OrderEventType = "order_cancelled"
	OrderEventPaymentRefunded OrderEventType = "payment_refunded"
)

type OrderEventMessage struct {
	Type        OrderEventType  `json:"type"`
	OrderID     uuid.UUID       `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

type BrokerPublisher interface {
	PublishOrderEvent(ctx context.Context, data OrderEventMessage) error
	PublishStockChanged(ctx context.Context, data StockMessage) error
}
