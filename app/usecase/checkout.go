package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"storefront-service/app/domain"
	"storefront-service/config"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type checkoutUsecase struct {
	reservationRepo domain.ReservationRepository
	orderRepo       domain.OrderRepository
	paymentRepo     domain.PaymentRepository
	catalogRepo     domain.CatalogRepository
	publisher       domain.BrokerPublisher
	cfg             *config.Config
	now             func() time.Time
}

func NewCheckoutUsecase(reservationRepo domain.ReservationRepository, orderRepo domain.OrderRepository, paymentRepo domain.PaymentRepository, catalogRepo domain.CatalogRepository, publisher domain.BrokerPublisher, cfg *config.Config) domain.CheckoutUsecase {
	return &checkoutUsecase{
		reservationRepo: reservationRepo,
		orderRepo:       orderRepo,
		paymentRepo:     paymentRepo,
		catalogRepo:     catalogRepo,
		publisher:       publisher,
		cfg:             cfg,
		now:             time.Now,
	}
}

// ProcessCheckout turns the session's reservations into a pending order
// and payment intent. Everything happens in one transaction; on any error
// nothing is persisted and the reservations stay as they were.
func (u *checkoutUsecase) ProcessCheckout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResult, error) {
	ctx, span := tracer.Start(ctx, "checkoutUsecase.ProcessCheckout")
	defer span.End()

	var result domain.CheckoutResult
	err := u.orderRepo.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		now := u.now()

		reservations, err := u.reservationRepo.LockActiveBySessionForUpdate(ctx, req.SessionID, tx)
		if err != nil {
			slog.ErrorContext(ctx, "[checkoutUsecase] ProcessCheckout", "lockReservations", err)
			return err
		}
		if len(reservations) == 0 {
			return fmt.Errorf("%w: no active reservations for session", domain.ErrEmptyCart)
		}

		for _, r := range reservations {
			if r.IsExpired(now) {
				return fmt.Errorf("%w: reservation for %s has expired, please add items to cart again",
					domain.ErrReservationExpired, r.SKU)
			}
		}

		orderID := uuid.Must(uuid.NewV4())
		items := make([]domain.OrderItem, 0, len(reservations))
		reservationIDs := make([]uuid.UUID, 0, len(reservations))
		subtotal := decimal.Zero
		for _, r := range reservations {
			variant, err := u.catalogRepo.FindVariantBySKU(ctx, r.SKU, tx)
			if err != nil {
				slog.ErrorContext(ctx, "[checkoutUsecase] ProcessCheckout", "findVariant", err, "sku", r.SKU)
				return err
			}

			reservationIDs = append(reservationIDs, r.ID)
			lineTotal := variant.Price.Mul(decimal.NewFromInt(r.Quantity))
			subtotal = subtotal.Add(lineTotal)
			items = append(items, domain.OrderItem{
				ID:                  uuid.Must(uuid.NewV4()),
				OrderID:             orderID,
				VariantID:           variant.ID,
				SKUSnapshot:         variant.SKU,
				ProductNameSnapshot: variant.ProductName,
				SizeSnapshot:        variant.SizeCode,
				ColorSnapshot:       variant.Color,
				Quantity:            r.Quantity,
				UnitPrice:           variant.Price,
				TotalPrice:          lineTotal,
				FulfillmentStoreID:  r.StoreID,
			})
		}

		totals := u.pricing().ComputeTotals(subtotal)

		seq, err := u.orderRepo.NextSequence(ctx, now, tx)
		if err != nil {
			slog.ErrorContext(ctx, "[checkoutUsecase] ProcessCheckout", "nextSequence", err)
			return err
		}

		order := domain.Order{
			ID:            orderID,
			OrderNumber:   domain.FormatOrderNumber(u.cfg.Business.CountryCode, now, seq),
			CustomerEmail: req.Customer.Email,
			CustomerName:  req.Customer.Name,
			CustomerPhone: req.Customer.Phone,
			Status:        domain.OrderStatusPending,
			Subtotal:      totals.Subtotal,
			TaxAmount:     totals.Tax,
			ShippingCost:  totals.Shipping,
			Total:         totals.Total,
			Currency:      u.cfg.Business.Currency,
			CountryCode:   u.cfg.Business.CountryCode,
		}
		if err := u.orderRepo.Create(ctx, &order, tx); err != nil {
			slog.ErrorContext(ctx, "[checkoutUsecase] ProcessCheckout", "createOrder", err)
			return err
		}

		if err := u.orderRepo.CreateItems(ctx, items, tx); err != nil {
			slog.ErrorContext(ctx, "[checkoutUsecase] ProcessCheckout", "createItems", err)
			return err
		}

		address := domain.ShippingAddress{
			ID:                   uuid.Must(uuid.NewV4()),
			OrderID:              orderID,
			FullName:             req.Shipping.FullName,
			AddressLine1:         req.Shipping.AddressLine1,
			AddressLine2:         req.Shipping.AddressLine2,
			City:                 req.Shipping.City,
			Region:               req.Shipping.Region,
			PostalCode:           req.Shipping.PostalCode,
			CountryCode:          u.cfg.Business.CountryCode,
			Phone:                req.Shipping.Phone,
			DeliveryInstructions: req.Shipping.DeliveryInstructions,
		}
		if err := u.orderRepo.CreateShippingAddress(ctx, &address, tx); err != nil {
			slog.ErrorContext(ctx, "[checkoutUsecase] ProcessCheckout", "createShippingAddress", err)
			return err
		}

		// only the rows locked and priced above; a reservation committed for
		// the session after the lock stays in the cart
		linked, err := u.reservationRepo.LinkByIDs(ctx, reservationIDs, orderID, tx)
		if err != nil {
			slog.ErrorContext(ctx, "[checkoutUsecase] ProcessCheckout", "linkReservations", err)
			return err
		}
		if linked != int64(len(reservationIDs)) {
			return fmt.Errorf("%w: linked %d of %d reservations", domain.ErrTransactionFailure, linked, len(reservationIDs))
		}

		intentID := "pi_" + hexUUID(uuid.Must(uuid.NewV4()))
		payment := domain.Payment{
			ID:              uuid.Must(uuid.NewV4()),
			OrderID:         orderID,
			Provider:        u.cfg.Payment.Provider,
			PaymentIntentID: intentID,
			CheckoutURL:     u.checkoutURL(order.OrderNumber, intentID),
			Amount:          totals.Total,
			Currency:        u.cfg.Business.Currency,
			Status:          domain.PaymentStatusPending,
		}
		if err := u.paymentRepo.Create(ctx, &payment, tx); err != nil {
			slog.ErrorContext(ctx, "[checkoutUsecase] ProcessCheckout", "createPayment", err)
			return err
		}

		order.Items = items
		order.ShippingAddress = &address
		order.Payment = &payment
		result = domain.CheckoutResult{
			Order:           order,
			PaymentIntentID: intentID,
			CheckoutURL:     payment.CheckoutURL,
		}
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "[checkoutUsecase] ProcessCheckout", "sessionId", req.SessionID, "error", err)
		return domain.CheckoutResult{}, err
	}

	span.SetAttributes(attribute.String("order.number", result.Order.OrderNumber))

	err = u.publisher.PublishOrderEvent(ctx, domain.OrderEventMessage{
		Type:        domain.OrderEventCreated,
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		Status:      result.Order.Status,
		Total:       result.Order.Total,
		Currency:    result.Order.Currency,
		OccurredAt:  u.now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "[checkoutUsecase] ProcessCheckout", "publishOrderCreated", err)
	}

	slog.InfoContext(ctx, "[checkoutUsecase] ProcessCheckout",
		"orderNumber", result.Order.OrderNumber,
		"total", result.Order.Total.String(),
		"items", len(result.Order.Items))
	return result, nil
}

func (u *checkoutUsecase) pricing() domain.PricingPolicy {
	return domain.PricingPolicy{
		VatRate:               u.cfg.Business.VatRate,
		FreeShippingThreshold: u.cfg.Business.FreeShippingThreshold,
		FlatShippingFee:       u.cfg.Business.FlatShippingFee,
	}
}

func (u *checkoutUsecase) checkoutURL(orderNumber, intentID string) string {
	q := url.Values{}
	q.Set("order", orderNumber)
	q.Set("intent", intentID)
	return u.cfg.Payment.CheckoutBaseURL + "?" + q.Encode()
}

func hexUUID(id uuid.UUID) string {
	return fmt.Sprintf("%x", id.Bytes())
}
