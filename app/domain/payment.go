package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusSucceeded: {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
}

func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Payment struct {
	ID              uuid.UUID           `json:"id"`
	OrderID         uuid.UUID           `json:"orderId"`
	Provider        string              `json:"provider"`
	PaymentIntentID string              `json:"paymentIntentId"`
	CheckoutURL     string              `json:"checkoutUrl"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	Status          PaymentStatus       `json:"status"`
	FailureReason   *string             `json:"failureReason"`
	RefundAmount    decimal.NullDecimal `json:"refundAmount"`
	RefundedAt      *time.Time          `json:"refundedAt"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventRefundProcessed  = "refund.processed"

	DefaultFailureReason = "Unknown error"
)

type WebhookEvent struct {
	ID   string           `json:"id" validate:"required"`
	Type string           `json:"type" validate:"required"`
	Data WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	PaymentIntentID string           `json:"paymentIntentId"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Currency        *string          `json:"currency,omitempty"`
	Status          *string          `json:"status,omitempty"`
	FailureReason   *string          `json:"failureReason,omitempty"`
	RefundAmount    *decimal.Decimal `json:"refundAmount,omitempty"`
}

type EventOutcome string

const (
	EventOutcomeProcessed EventOutcome = "processed"
	EventOutcomeFailed    EventOutcome = "failed"
	EventOutcomeIgnored   EventOutcome = "ignored"
)

// ProcessedEvent is one append-only row of the webhook ledger.
type ProcessedEvent struct {
	ID           uuid.UUID
	EventID      string
	EventType    string
	Provider     string
	Payload      []byte
	Outcome      EventOutcome
	ErrorMessage *string
	ProcessedAt  time.Time
}

type SimulatePaymentRequest struct {
	PaymentIntentID string  `json:"paymentIntentId" validate:"required"`
	Outcome         string  `json:"outcome" validate:"required,oneof=succeeded failed"`
	FailureReason   *string `json:"failureReason"`
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment, tx *sql.Tx) error
	LockByIntentIDForUpdate(ctx context.Context, intentID string, tx *sql.Tx) (Payment, error)
	UpdateSettlement(ctx context.Context, p *Payment, tx *sql.Tx) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (Payment, error)

	WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error
}

type EventLedgerRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	// Insert returns ErrDuplicateEvent when the event id is already recorded.
	Insert(ctx context.Context, e *ProcessedEvent, tx *sql.Tx) error
	GetByEventID(ctx context.Context, eventID string) (ProcessedEvent, error)
}

type PaymentUsecase interface {
	VerifySignature(ctx context.Context, payload []byte, signature string) bool
	ProcessEvent(ctx context.Context, provider string, event WebhookEvent, payload []byte) error
	SimulatePayment(ctx context.Context, req SimulatePaymentRequest) error
}
