package handler

import (
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/app/handler/api/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"
)

type StockHandler struct {
	stockUsecase domain.StockUsecase
}

func NewStockHandler(stockUsecase domain.StockUsecase) *StockHandler {
	return &StockHandler{
		stockUsecase: stockUsecase,
	}
}

func (h *StockHandler) GetSummary(c *fiber.Ctx) error {
	sku := c.Params("sku")
	if sku == "" {
		slog.ErrorContext(c.Context(), "[stockHandler] GetSummary", "sku", "missing")
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	summary, err := h.stockUsecase.GetStockSummary(c.Context(), sku)
	if err != nil {
		slog.ErrorContext(c.Context(), "[stockHandler] GetSummary", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(summary))
}

// GetDetail returns the full breakdown, optionally narrowed by ?storeId=.
func (h *StockHandler) GetDetail(c *fiber.Ctx) error {
	sku := c.Params("sku")
	if sku == "" {
		slog.ErrorContext(c.Context(), "[stockHandler] GetDetail", "sku", "missing")
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	var storeID *uuid.UUID
	if raw := c.Query("storeId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			slog.ErrorContext(c.Context(), "[stockHandler] GetDetail", "parseStoreId:"+raw, err)
			return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
		}
		storeID = &id
	}

	info, err := h.stockUsecase.GetSellableStock(c.Context(), sku, storeID)
	if err != nil {
		slog.ErrorContext(c.Context(), "[stockHandler] GetDetail", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(info))
}
