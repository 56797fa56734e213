package handler

import (
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/app/handler/api/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	inventoryUsecase domain.InventoryUsecase
	validator        *validator.Validate
}

func NewInventoryHandler(inventoryUsecase domain.InventoryUsecase, validator *validator.Validate) *InventoryHandler {
	return &InventoryHandler{
		inventoryUsecase: inventoryUsecase,
		validator:        validator,
	}
}

func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	var req domain.LowStockRequest
	if err := c.QueryParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[inventoryHandler] LowStock", "queryParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(c.Context(), "[inventoryHandler] LowStock", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Validation(err))
	}

	items, err := h.inventoryUsecase.GetLowStock(c.Context(), req)
	if err != nil {
		slog.ErrorContext(c.Context(), "[inventoryHandler] LowStock", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(items))
}

func (h *InventoryHandler) Sync(c *fiber.Ctx) error {
	result, err := h.inventoryUsecase.SyncInventory(c.Context())
	if err != nil {
		slog.ErrorContext(c.Context(), "[inventoryHandler] Sync", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(result))
}
