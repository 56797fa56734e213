package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storefront-service/app/domain"
	"storefront-service/config"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type paymentUsecase struct {
	paymentRepo     domain.PaymentRepository
	orderRepo       domain.OrderRepository
	reservationRepo domain.ReservationRepository
	ledgerRepo      domain.EventLedgerRepository
	publisher       domain.BrokerPublisher
	notifier        stockNotifier
	cfg             *config.Config
	now             func() time.Time
}

// settlement is what a committed event changed, used for post-commit
// notifications.
type settlement struct {
	order     domain.Order
	eventType domain.OrderEventType
	skus      []string
}

type settleFunc func(ctx context.Context, tx *sql.Tx, payment *domain.Payment, event domain.WebhookEvent) (settlement, error)

func NewPaymentUsecase(paymentRepo domain.PaymentRepository, orderRepo domain.OrderRepository, reservationRepo domain.ReservationRepository, ledgerRepo domain.EventLedgerRepository, stock domain.StockUsecase, cache domain.Cache, publisher domain.BrokerPublisher, cfg *config.Config) domain.PaymentUsecase {
	return &paymentUsecase{
		paymentRepo:     paymentRepo,
		orderRepo:       orderRepo,
		reservationRepo: reservationRepo,
		ledgerRepo:      ledgerRepo,
		publisher:       publisher,
		notifier:        stockNotifier{stock: stock, cache: cache, publisher: publisher},
		cfg:             cfg,
		now:             time.Now,
	}
}

// VerifySignature checks a hex HMAC-SHA256 of the raw body. An optional
// "sha256=" prefix is accepted. With no secret configured every payload
// is accepted.
func (u *paymentUsecase) VerifySignature(ctx context.Context, payload []byte, signature string) bool {
	secret := u.cfg.Payment.WebhookSecret
	if secret == "" {
		slog.WarnContext(ctx, "[paymentUsecase] VerifySignature", "skipped", "webhook secret not configured")
		return true
	}

	signature = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(signature)), "sha256=")
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

// ProcessEvent applies a provider event at most once. A replayed event id
// returns nil without side effects. A handler error is recorded in the
// ledger and returned so the caller can report it.
func (u *paymentUsecase) ProcessEvent(ctx context.Context, provider string, event domain.WebhookEvent, payload []byte) error {
	ctx, span := tracer.Start(ctx, "paymentUsecase.ProcessEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", event.ID), attribute.String("event.type", event.Type))

	if event.ID == "" || event.Type == "" {
		return fmt.Errorf("%w: event id and type are required", domain.ErrValidation)
	}

	exists, err := u.ledgerRepo.Exists(ctx, event.ID)
	if err != nil {
		slog.ErrorContext(ctx, "[paymentUsecase] ProcessEvent", "ledgerExists", err)
		return err
	}
	if exists {
		slog.InfoContext(ctx, "[paymentUsecase] ProcessEvent", "duplicate", event.ID)
		return nil
	}

	if payload == nil {
		payload, _ = json.Marshal(event)
	}

	var apply settleFunc
	switch event.Type {
	case domain.EventPaymentSucceeded:
		apply = u.applySucceeded
	case domain.EventPaymentFailed:
		apply = u.applyFailed
	case domain.EventRefundProcessed:
		apply = u.applyRefund
	default:
		err := u.record(ctx, provider, event, payload, domain.EventOutcomeIgnored, nil, nil)
		if err != nil && !errors.Is(err, domain.ErrDuplicateEvent) {
			return err
		}
		slog.InfoContext(ctx, "[paymentUsecase] ProcessEvent", "ignored", event.Type, "eventId", event.ID)
		return nil
	}

	var result settlement
	err = u.paymentRepo.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Claiming the event id first makes a concurrent redelivery block on
		// the unique index and then fail as a duplicate.
		if err := u.record(ctx, provider, event, payload, domain.EventOutcomeProcessed, nil, tx); err != nil {
			return err
		}

		payment, err := u.paymentRepo.LockByIntentIDForUpdate(ctx, event.Data.PaymentIntentID, tx)
		if err != nil {
			return err
		}

		result, err = apply(ctx, tx, &payment, event)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateEvent) {
		slog.InfoContext(ctx, "[paymentUsecase] ProcessEvent", "duplicate", event.ID)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "[paymentUsecase] ProcessEvent", "settle", err, "eventId", event.ID)
		msg := err.Error()
		if recordErr := u.record(ctx, provider, event, payload, domain.EventOutcomeFailed, &msg, nil); recordErr != nil && !errors.Is(recordErr, domain.ErrDuplicateEvent) {
			slog.ErrorContext(ctx, "[paymentUsecase] ProcessEvent", "recordFailure", recordErr)
		}
		return err
	}

	u.afterSettlement(ctx, result)

	slog.InfoContext(ctx, "[paymentUsecase] ProcessEvent",
		"eventId", event.ID,
		"type", event.Type,
		"orderNumber", result.order.OrderNumber)
	return nil
}

func (u *paymentUsecase) SimulatePayment(ctx context.Context, req domain.SimulatePaymentRequest) error {
	event := domain.WebhookEvent{
		ID:   "evt_sim_" + hexUUID(uuid.Must(uuid.NewV4())),
		Type: "payment." + req.Outcome,
		Data: domain.WebhookEventData{
			PaymentIntentID: req.PaymentIntentID,
			FailureReason:   req.FailureReason,
		},
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return u.ProcessEvent(ctx, u.cfg.Payment.Provider, event, payload)
}

func (u *paymentUsecase) applySucceeded(ctx context.Context, tx *sql.Tx, payment *domain.Payment, event domain.WebhookEvent) (settlement, error) {
	if err := u.transitionPayment(ctx, tx, payment, domain.PaymentStatusSucceeded); err != nil {
		return settlement{}, err
	}

	order, err := u.transitionOrder(ctx, tx, payment.OrderID, domain.OrderStatusPaid)
	if err != nil {
		return settlement{}, err
	}

	skus, err := u.reservationRepo.ConvertByOrder(ctx, order.ID, tx)
	if err != nil {
		slog.ErrorContext(ctx, "[paymentUsecase] applySucceeded", "convertReservations", err)
		return settlement{}, err
	}

	slog.InfoContext(ctx, "[paymentUsecase] applySucceeded", "orderId", order.ID, "converted", len(skus))
	return settlement{order: order, eventType: domain.OrderEventPaid, skus: skus}, nil
}

func (u *paymentUsecase) applyFailed(ctx context.Context, tx *sql.Tx, payment *domain.Payment, event domain.WebhookEvent) (settlement, error) {
	reason := domain.DefaultFailureReason
	if event.Data.FailureReason != nil && *event.Data.FailureReason != "" {
		reason = *event.Data.FailureReason
	}
	if payment.Status != domain.PaymentStatusFailed {
		payment.FailureReason = &reason
	}

	if err := u.transitionPayment(ctx, tx, payment, domain.PaymentStatusFailed); err != nil {
		return settlement{}, err
	}

	order, err := u.transitionOrder(ctx, tx, payment.OrderID, domain.OrderStatusCancelled)
	if err != nil {
		return settlement{}, err
	}

	cancelled, err := u.reservationRepo.CancelByOrder(ctx, order.ID, tx)
	if err != nil {
		slog.ErrorContext(ctx, "[paymentUsecase] applyFailed", "cancelReservations", err)
		return settlement{}, err
	}

	return settlement{order: order, eventType: domain.OrderEventCancelled, skus: reservationSKUs(cancelled)}, nil
}

func (u *paymentUsecase) applyRefund(ctx context.Context, tx *sql.Tx, payment *domain.Payment, event domain.WebhookEvent) (settlement, error) {
	if payment.Status != domain.PaymentStatusRefunded {
		amount := payment.Amount
		if event.Data.RefundAmount != nil {
			amount = *event.Data.RefundAmount
		}
		refundedAt := u.now()
		payment.RefundAmount = decimal.NewNullDecimal(amount)
		payment.RefundedAt = &refundedAt
	}

	if err := u.transitionPayment(ctx, tx, payment, domain.PaymentStatusRefunded); err != nil {
		return settlement{}, err
	}

	order, err := u.orderRepo.LockByIDForUpdate(ctx, payment.OrderID, tx)
	if err != nil {
		slog.ErrorContext(ctx, "[paymentUsecase] applyRefund", "lockOrder", err)
		return settlement{}, err
	}

	return settlement{order: order, eventType: domain.OrderEventPaymentRefunded}, nil
}

// transitionPayment persists payment at status next. Re-applying the
// current status is a no-op.
func (u *paymentUsecase) transitionPayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment, next domain.PaymentStatus) error {
	if payment.Status == next {
		return nil
	}
	if !payment.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: payment %s from %s to %s", domain.ErrInvalidTransition, payment.PaymentIntentID, payment.Status, next)
	}

	payment.Status = next
	if err := u.paymentRepo.UpdateSettlement(ctx, payment, tx); err != nil {
		slog.ErrorContext(ctx, "[paymentUsecase] transitionPayment", "updateSettlement", err)
		return err
	}
	return nil
}

func (u *paymentUsecase) transitionOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, next domain.OrderStatus) (domain.Order, error) {
	order, err := u.orderRepo.LockByIDForUpdate(ctx, orderID, tx)
	if err != nil {
		slog.ErrorContext(ctx, "[paymentUsecase] transitionOrder", "lockOrder", err)
		return order, err
	}

	if order.Status == next {
		return order, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return order, fmt.Errorf("%w: order %s from %s to %s", domain.ErrInvalidTransition, order.OrderNumber, order.Status, next)
	}

	if err := u.orderRepo.UpdateStatus(ctx, order.ID, next, tx); err != nil {
		slog.ErrorContext(ctx, "[paymentUsecase] transitionOrder", "updateStatus", err)
		return order, err
	}
	order.Status = next
	return order, nil
}

func (u *paymentUsecase) record(ctx context.Context, provider string, event domain.WebhookEvent, payload []byte, outcome domain.EventOutcome, errMsg *string, tx *sql.Tx) error {
	return u.ledgerRepo.Insert(ctx, &domain.ProcessedEvent{
		ID:           uuid.Must(uuid.NewV4()),
		EventID:      event.ID,
		EventType:    event.Type,
		Provider:     provider,
		Payload:      payload,
		Outcome:      outcome,
		ErrorMessage: errMsg,
	}, tx)
}

func (u *paymentUsecase) afterSettlement(ctx context.Context, result settlement) {
	u.notifier.notify(ctx, result.skus...)

	err := u.publisher.PublishOrderEvent(ctx, domain.OrderEventMessage{
		Type:        result.eventType,
		OrderID:     result.order.ID,
		OrderNumber: result.order.OrderNumber,
		Status:      result.order.Status,
		Total:       result.order.Total,
		Currency:    result.order.Currency,
		OccurredAt:  u.now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "[paymentUsecase] afterSettlement", "publishOrderEvent", err)
	}
}
