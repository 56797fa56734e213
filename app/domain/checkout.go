package domain

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type CustomerInfo struct {
	Email string  `json:"email" validate:"required,email"`
	Name  string  `json:"name" validate:"required,max=255"`
	Phone *string `json:"phone" validate:"omitempty,max=50"`
}

type ShippingInfo struct {
	FullName             string  `json:"fullName" validate:"required,max=255"`
	AddressLine1         string  `json:"addressLine1" validate:"required,max=255"`
	AddressLine2         *string `json:"addressLine2" validate:"omitempty,max=255"`
	City                 string  `json:"city" validate:"required,max=100"`
	Region               *string `json:"region" validate:"omitempty,max=100"`
	PostalCode           *string `json:"postalCode" validate:"omitempty,max=20"`
	Phone                string  `json:"phone" validate:"required,max=50"`
	DeliveryInstructions *string `json:"deliveryInstructions" validate:"omitempty,max=500"`
}

type CheckoutRequest struct {
	SessionID string       `json:"sessionId" validate:"required"`
	Customer  CustomerInfo `json:"customer"`
	Shipping  ShippingInfo `json:"shipping"`
}

type CheckoutResult struct {
	Order           Order
	PaymentIntentID string
	CheckoutURL     string
}

type CheckoutOrderResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Status      OrderStatus     `json:"status"`
}

type CheckoutPaymentResponse struct {
	IntentID    string `json:"intentId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type CheckoutResponse struct {
	Order   CheckoutOrderResponse   `json:"order"`
	Payment CheckoutPaymentResponse `json:"payment"`
}

type CheckoutUsecase interface {
	ProcessCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
}
