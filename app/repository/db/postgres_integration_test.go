package db_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-service/app/domain"
	"storefront-service/app/repository/db"
	"storefront-service/app/usecase"
	"storefront-service/config"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"
)

type noopCache struct{}

func (noopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (noopCache) Set(context.Context, string, string, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error { return nil }

type noopPublisher struct{}

func (noopPublisher) PublishOrderEvent(context.Context, domain.OrderEventMessage) error { return nil }
func (noopPublisher) PublishStockChanged(context.Context, domain.StockMessage) error { return nil }

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgC.Terminate(context.Background())
	})

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := db.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(ctx, conn))
	// idempotent
	require.NoError(t, db.Migrate(ctx, conn))

	return conn
}

func seedStore(t *testing.T, conn *sql.DB, code string, sku string, qty int64) uuid.UUID {
	t.Helper()
	storeID := uuid.Must(uuid.NewV4())
	_, err := conn.Exec(`INSERT INTO stores (id, name, code) VALUES ($1, $2, $3)`, storeID, "Store "+code, code)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO store_inventory (store_id, sku, quantity) VALUES ($1, $2, $3)`, storeID, sku, qty)
	require.NoError(t, err)
	return storeID
}

func seedVariant(t *testing.T, conn *sql.DB, name string, sku string, price string) {
	t.Helper()
	productID := uuid.Must(uuid.NewV4())
	_, err := conn.Exec(`INSERT INTO products (id, name) VALUES ($1, $2)`, productID, name)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO product_variants (product_id, sku, size_code, price) VALUES ($1, $2, 'M', $3)`,
		productID, sku, price)
	require.NoError(t, err)
}

func TestPostgresRepositories(t *testing.T) {
	conn := setupPostgres(t)
	ctx := context.Background()

	cfg := &config.Config{
		Business: config.BusinessConfig{
			ReservationWindowMinutes: 10,
			SafetyBuffer:             1,
			VatRate:                  decimal.RequireFromString("0.125"),
			Currency:                 "GHS",
			CountryCode:              "GH",
			FreeShippingThreshold:    decimal.NewFromInt(500),
			FlatShippingFee:          decimal.NewFromInt(25),
		},
		Payment: config.PaymentConfig{
			Provider:        "polar",
			CheckoutBaseURL: "https://pay.example.com/checkout",
			SignatureHeader: "X-Webhook-Signature",
		},
	}
	inventoryRepo := db.NewInventoryRepository(conn)
	reservationRepo := db.NewReservationRepository(conn)
	orderRepo := db.NewOrderRepository(conn)
	paymentRepo := db.NewPaymentRepository(conn)
	catalogRepo := db.NewCatalogRepository(conn)
	ledgerRepo := db.NewEventLedgerRepository(conn)

	stockUsecase := usecase.NewStockUsecase(inventoryRepo, reservationRepo, noopCache{}, cfg)
	reservationUsecase := usecase.NewReservationUsecase(reservationRepo, inventoryRepo, stockUsecase, noopCache{}, noopPublisher{}, cfg)
	checkoutUsecase := usecase.NewCheckoutUsecase(reservationRepo, orderRepo, paymentRepo, catalogRepo, noopPublisher{}, cfg)
	paymentUsecase := usecase.NewPaymentUsecase(paymentRepo, orderRepo, reservationRepo, ledgerRepo, stockUsecase, noopCache{}, noopPublisher{}, cfg)

	t.Run("concurrent reservations never oversell", func(t *testing.T) {
		seedStore(t, conn, "ACC", "TEE-L", 10)

		var (
			wg        sync.WaitGroup
			succeeded atomic.Int64
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := reservationUsecase.CreateReservation(ctx, domain.CreateReservationRequest{
					SKU:       "TEE-L",
					Quantity:  1,
					SessionID: "race",
				})
				if err == nil {
					succeeded.Add(1)
					return
				}
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(9), succeeded.Load())

		summary, err := stockUsecase.GetStockSummary(ctx, "TEE-L")
		require.NoError(t, err)
		assert.Equal(t, int64(0), summary.SellableStock)
	})

	t.Run("release returns stock", func(t *testing.T) {
		seedStore(t, conn, "KSI", "CAP-OS", 3)

		result, err := reservationUsecase.CreateReservation(ctx, domain.CreateReservationRequest{
			SKU:       "CAP-OS",
			Quantity:  2,
			SessionID: "release",
		})
		require.NoError(t, err)

		require.NoError(t, reservationUsecase.ReleaseReservation(ctx, result.Reservation.ID))

		reservation, err := reservationRepo.GetByID(ctx, result.Reservation.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusCancelled, reservation.Status)

		summary, err := stockUsecase.GetStockSummary(ctx, "CAP-OS")
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.SellableStock)
	})

	t.Run("order sequence is per day", func(t *testing.T) {
		day := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
		var first, second, nextDay int64
		err := orderRepo.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			var err error
			if first, err = orderRepo.NextSequence(ctx, day, tx); err != nil {
				return err
			}
			if second, err = orderRepo.NextSequence(ctx, day, tx); err != nil {
				return err
			}
			nextDay, err = orderRepo.NextSequence(ctx, day.Add(2*time.Hour), tx)
			return err
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1), first)
		assert.Equal(t, int64(2), second)
		assert.Equal(t, int64(1), nextDay)
	})

	t.Run("checkout settles and replays once", func(t *testing.T) {
		seedStore(t, conn, "TMA", "KENTE-M", 50)
		seedVariant(t, conn, "Kente Tee", "KENTE-M", "200.00")

		// more sessions than pooled connections
		const sessions = 12
		reservationIDs := make([]uuid.UUID, sessions)
		for i := range sessions {
			result, err := reservationUsecase.CreateReservation(ctx, domain.CreateReservationRequest{
				SKU:       "KENTE-M",
				Quantity:  1,
				SessionID: fmt.Sprintf("checkout-%d", i),
			})
			require.NoError(t, err)
			reservationIDs[i] = result.Reservation.ID
		}

		results := make([]domain.CheckoutResult, sessions)
		g, gctx := errgroup.WithContext(ctx)
		for i := range sessions {
			g.Go(func() error {
				result, err := checkoutUsecase.ProcessCheckout(gctx, domain.CheckoutRequest{
					SessionID: fmt.Sprintf("checkout-%d", i),
					Customer:  domain.CustomerInfo{Email: "ama@example.com", Name: "Ama Mensah"},
					Shipping: domain.ShippingInfo{
						FullName:     "Ama Mensah",
						AddressLine1: "12 Oxford Street",
						City:         "Accra",
						Phone:        "+233201234567",
					},
				})
				results[i] = result
				return err
			})
		}
		require.NoError(t, g.Wait())

		numbers := map[string]bool{}
		for i, result := range results {
			numbers[result.Order.OrderNumber] = true
			assert.True(t, result.Order.Total.Equal(decimal.NewFromInt(250)), result.Order.Total.String())

			reservation, err := reservationRepo.GetByID(ctx, reservationIDs[i])
			require.NoError(t, err)
			assert.Equal(t, domain.ReservationStatusActive, reservation.Status)
			assert.Equal(t, uuid.NullUUID{UUID: result.Order.ID, Valid: true}, reservation.OrderID)
		}
		assert.Len(t, numbers, sessions)

		paid := results[0]
		event := domain.WebhookEvent{
			ID:   "evt_" + paid.PaymentIntentID,
			Type: domain.EventPaymentSucceeded,
			Data: domain.WebhookEventData{PaymentIntentID: paid.PaymentIntentID},
		}
		payload, err := json.Marshal(event)
		require.NoError(t, err)

		require.NoError(t, paymentUsecase.ProcessEvent(ctx, "polar", event, payload))
		// replayed delivery is a no-op
		require.NoError(t, paymentUsecase.ProcessEvent(ctx, "polar", event, payload))

		order, err := orderRepo.GetByID(ctx, paid.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPaid, order.Status)

		payment, err := paymentRepo.GetByOrderID(ctx, paid.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusSucceeded, payment.Status)
		assert.False(t, payment.RefundAmount.Valid)

		reservation, err := reservationRepo.GetByID(ctx, reservationIDs[0])
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusConverted, reservation.Status)

		exists, err := ledgerRepo.Exists(ctx, event.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		var ledgerRows int
		require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM processed_events WHERE event_id = $1`, event.ID).Scan(&ledgerRows))
		assert.Equal(t, 1, ledgerRows)

		other, err := orderRepo.GetByID(ctx, results[1].Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusPending, other.Status)
	})

	t.Run("ledger rejects duplicate event ids", func(t *testing.T) {
		event := &domain.ProcessedEvent{
			ID:        uuid.Must(uuid.NewV4()),
			EventID:   "evt_dup",
			EventType: domain.EventPaymentSucceeded,
			Provider:  "polar",
			Payload:   []byte(`{"id":"evt_dup"}`),
			Outcome:   domain.EventOutcomeProcessed,
		}
		require.NoError(t, ledgerRepo.Insert(ctx, event, nil))

		exists, err := ledgerRepo.Exists(ctx, "evt_dup")
		require.NoError(t, err)
		assert.True(t, exists)

		again := *event
		again.ID = uuid.Must(uuid.NewV4())
		err = ledgerRepo.Insert(ctx, &again, nil)
		assert.ErrorIs(t, err, domain.ErrDuplicateEvent)
	})
}
