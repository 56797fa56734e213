package handler

import (
	"storefront-service/app/middleware"
	"storefront-service/config"
	"storefront-service/pkg"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Stock       *StockHandler
	Reservation *ReservationHandler
	Checkout    *CheckoutHandler
	Order       *OrderHandler
	Payment     *PaymentHandler
	Inventory   *InventoryHandler
}

func SetupRouter(app *fiber.App, h Handlers, cfg *config.Config) {
	admin := app.Group("/storefront-service/admin",
		middleware.Auth(cfg.Jwt.SecretKey),
		middleware.RequireRole(pkg.RoleAdmin))
	admin.Get("/stock/:sku", h.Stock.GetDetail)
	admin.Get("/low-stock", h.Inventory.LowStock)
	admin.Get("/orders", h.Order.List)
	admin.Get("/orders/:id", h.Order.GetByID)

	api := app.Group("/storefront-service")
	api.Get("/stock/:sku", h.Stock.GetSummary)
	api.Post("/reserve", h.Reservation.Create)
	api.Post("/reserve/:id/release", h.Reservation.Release)
	api.Get("/reservations", h.Reservation.ListBySession)
	api.Post("/reservations/cancel", h.Reservation.ClearCart)
	api.Post("/checkout", h.Checkout.Checkout)
	api.Get("/orders/:orderNumber", h.Order.GetByNumber)
	api.Post("/webhooks/:provider", h.Payment.Webhook)

	internal := app.Group("/internal/storefront-service").Use(middleware.AuthInternal(cfg))
	internal.Post("/reservations/expire", h.Reservation.Expire)
	internal.Post("/reservations/link", h.Reservation.Link)
	internal.Post("/reservations/convert", h.Reservation.Convert)
	internal.Post("/reservations/cancel", h.Reservation.Cancel)
	internal.Post("/inventory/sync", h.Inventory.Sync)
	internal.Post("/payments/simulate", h.Payment.Simulate)
}
