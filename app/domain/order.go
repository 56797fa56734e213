package domain

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID              uuid.UUID        `json:"id"`
	OrderNumber     string           `json:"orderNumber"`
	CustomerEmail   string           `json:"customerEmail"`
	CustomerName    string           `json:"customerName"`
	CustomerPhone   *string          `json:"customerPhone"`
	Status          OrderStatus      `json:"status"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	TaxAmount       decimal.Decimal  `json:"taxAmount"`
	ShippingCost    decimal.Decimal  `json:"shippingCost"`
	Total           decimal.Decimal  `json:"total"`
	Currency        string           `json:"currency"`
	CountryCode     string           `json:"countryCode"`
	Items           []OrderItem      `json:"items,omitempty"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	Payment         *Payment         `json:"payment,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// OrderItem is a snapshot of the variant at checkout time and is never
// updated afterwards.
type OrderItem struct {
	ID                  uuid.UUID       `json:"id"`
	OrderID             uuid.UUID       `json:"orderId"`
	VariantID           uuid.UUID       `json:"variantId"`
	SKUSnapshot         string          `json:"skuSnapshot"`
	ProductNameSnapshot string          `json:"productNameSnapshot"`
	SizeSnapshot        *string         `json:"sizeSnapshot"`
	ColorSnapshot       *string         `json:"colorSnapshot"`
	Quantity            int64           `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	TotalPrice          decimal.Decimal `json:"totalPrice"`
	FulfillmentStoreID  uuid.UUID       `json:"fulfillmentStoreId"`
	CreatedAt           time.Time       `json:"createdAt"`
}

type ShippingAddress struct {
	ID                   uuid.UUID `json:"id"`
	OrderID              uuid.UUID `json:"orderId"`
	FullName             string    `json:"fullName"`
	AddressLine1         string    `json:"addressLine1"`
	AddressLine2         *string   `json:"addressLine2"`
	City                 string    `json:"city"`
	Region               *string   `json:"region"`
	PostalCode           *string   `json:"postalCode"`
	CountryCode          string    `json:"countryCode"`
	Phone                string    `json:"phone"`
	DeliveryInstructions *string   `json:"deliveryInstructions"`
}

type OrderTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

type PricingPolicy struct {
	VatRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// ComputeTotals applies VAT rounded to two places and the flat shipping
// fee below the free shipping threshold.
func (p PricingPolicy) ComputeTotals(subtotal decimal.Decimal) OrderTotals {
	tax := subtotal.Mul(p.VatRate).Round(2)
	shipping := p.FlatShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// FormatOrderNumber renders {country}-{YYYYMMDD}-{NNNN}. Sequences past
// 9999 keep their full width.
func FormatOrderNumber(countryCode string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", countryCode, day.UTC().Format("20060102"), seq)
}

type ListOrdersRequest struct {
	Status    string `query:"status" validate:"omitempty,oneof=pending paid processing shipped delivered cancelled"`
	Page      int64  `query:"page"`
	Limit     int64  `query:"limit"`
	SortOrder string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type GetOrderByNumberRequest struct {
	OrderNumber string `validate:"required"`
	Email       string `query:"email" validate:"required,email"`
}

type Metadata struct {
	TotalData int64  `json:"total_data"`
	TotalPage int64  `json:"total_page"`
	Page      int64  `json:"page"`
	Limit     int64  `json:"limit"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

type OrderRepository interface {
	NextSequence(ctx context.Context, day time.Time, tx *sql.Tx) (int64, error)
	Create(ctx context.Context, order *Order, tx *sql.Tx) error
	CreateItems(ctx context.Context, items []OrderItem, tx *sql.Tx) error
	CreateShippingAddress(ctx context.Context, addr *ShippingAddress, tx *sql.Tx) error
	LockByIDForUpdate(ctx context.Context, id uuid.UUID, tx *sql.Tx) (Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus, tx *sql.Tx) error
	GetByID(ctx context.Context, id uuid.UUID) (Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (Order, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	GetShippingAddress(ctx context.Context, orderID uuid.UUID) (ShippingAddress, error)
	List(ctx context.Context, param ListOrdersRequest) ([]Order, error)
	Count(ctx context.Context, param ListOrdersRequest) (int64, error)

	WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error
}

type OrderUsecase interface {
	GetOrderByNumber(ctx context.Context, req GetOrderByNumberRequest) (Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error)
	ListOrders(ctx context.Context, param ListOrdersRequest) ([]Order, Metadata, error)
}
