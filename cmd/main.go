package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/app/domain"
	handler "storefront-service/app/handler/api"
	"storefront-service/app/middleware"
	"storefront-service/app/repository/broker"
	"storefront-service/app/repository/cache"
	"storefront-service/app/repository/db"
	"storefront-service/app/usecase"
	"storefront-service/app/worker"
	"storefront-service/config"
	"storefront-service/pkg/logger"
	"storefront-service/pkg/tracing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	slogfiber "github.com/samber/slog-fiber"
)

func main() {
	// init logger
	logger.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init config
	cfg, err := config.InitConfig(ctx)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		return
	}
	logger.SetLevel(cfg.LogLevel)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Otel.ServiceName, cfg.Otel.Endpoint)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		return
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// init database
	dbConn, err := db.NewPostgres(cfg.Db)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		return
	}
	defer dbConn.Close()

	if cfg.Db.AutoMigrate {
		if err := db.Migrate(ctx, dbConn); err != nil {
			slog.Error("DB migration failed", "error", err)
			return
		}
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("Redis connection failed", "error", err)
		return
	}
	defer rdb.Close()

	publisher, closeBroker, err := newPublisher(ctx, cfg)
	if err != nil {
		slog.Error("broker init failed", "kind", cfg.Broker.Kind, "error", err)
		return
	}
	defer closeBroker()

	reqValidator := validator.New()
	stockCache := cache.NewRedisCache(rdb)

	inventoryRepo := db.NewInventoryRepository(dbConn)
	reservationRepo := db.NewReservationRepository(dbConn)
	orderRepo := db.NewOrderRepository(dbConn)
	paymentRepo := db.NewPaymentRepository(dbConn)
	ledgerRepo := db.NewEventLedgerRepository(dbConn)
	catalogRepo := db.NewCatalogRepository(dbConn)

	stockUsecase := usecase.NewStockUsecase(inventoryRepo, reservationRepo, stockCache, cfg)
	reservationUsecase := usecase.NewReservationUsecase(reservationRepo, inventoryRepo, stockUsecase, stockCache, publisher, cfg)
	checkoutUsecase := usecase.NewCheckoutUsecase(reservationRepo, orderRepo, paymentRepo, catalogRepo, publisher, cfg)
	paymentUsecase := usecase.NewPaymentUsecase(paymentRepo, orderRepo, reservationRepo, ledgerRepo, stockUsecase, stockCache, publisher, cfg)
	inventoryUsecase := usecase.NewInventoryUsecase(inventoryRepo, stockUsecase)
	orderUsecase := usecase.NewOrderUsecase(orderRepo, paymentRepo)

	handlers := handler.Handlers{
		Stock:       handler.NewStockHandler(stockUsecase),
		Reservation: handler.NewReservationHandler(reservationUsecase, reqValidator),
		Checkout:    handler.NewCheckoutHandler(checkoutUsecase, reqValidator),
		Order:       handler.NewOrderHandler(orderUsecase, reqValidator),
		Payment:     handler.NewPaymentHandler(paymentUsecase, reqValidator, cfg),
		Inventory:   handler.NewInventoryHandler(inventoryUsecase, reqValidator),
	}

	// Initialize HTTP web framework
	app := fiber.New()
	app.Use(healthcheck.New(healthcheck.Config{
		LivenessProbe: func(c *fiber.Ctx) bool {
			return true
		},
		LivenessEndpoint: "/live",
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return dbConn.PingContext(c.Context()) == nil
		},
		ReadinessEndpoint: "/ready",
	}))
	app.Use(slogfiber.New(slog.Default()))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(middleware.RequestIDMiddleware())

	handler.SetupRouter(app, handlers, cfg)

	if cfg.Scheduler.Enabled {
		scheduler := worker.NewScheduler(reservationUsecase, inventoryUsecase,
			cfg.Scheduler.ExpiryInterval(), cfg.Scheduler.InventorySyncInterval())
		go func() {
			if err := scheduler.Run(ctx); err != nil {
				slog.Error("scheduler stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Failed to listen", "port", cfg.Port, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Gracefully shutdown")
	err = app.ShutdownWithTimeout(10 * time.Second)
	if err != nil {
		slog.Warn("Unfortunately the shutdown wasn't smooth", "err", err)
	}
}

// newPublisher connects the configured event broker. The returned func
// releases the connection.
func newPublisher(ctx context.Context, cfg *config.Config) (domain.BrokerPublisher, func(), error) {
	switch cfg.Broker.Kind {
	case "kafka":
		writer := broker.NewKafkaWriter(cfg.Broker.KafkaBrokers)
		return broker.NewKafkaBrokerPublisher(writer), func() {
			if err := writer.Close(); err != nil {
				slog.Warn("kafka writer close failed", "error", err)
			}
		}, nil
	default:
		nc, err := nats.Connect(cfg.Broker.NatsUrl)
		if err != nil {
			return nil, nil, err
		}

		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}

		if err := broker.NewNatsStream(ctx, js, cfg.Broker.NatsStreamName); err != nil {
			nc.Close()
			return nil, nil, err
		}

		return broker.NewNatsBrokerPublisher(js, cfg.Broker.NatsStreamName), func() {
			if err := nc.Drain(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		}, nil
	}
}
