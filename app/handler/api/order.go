package handler

import (
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/app/handler/api/response"
	"storefront-service/pkg/ctxutil"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"
)

type OrderHandler struct {
	orderUsecase domain.OrderUsecase
	validator    *validator.Validate
}

func NewOrderHandler(orderUsecase domain.OrderUsecase, validator *validator.Validate) *OrderHandler {
	return &OrderHandler{
		orderUsecase: orderUsecase,
		validator:    validator,
	}
}

// GetByNumber is the guest order lookup, keyed by order number and email.
func (h *OrderHandler) GetByNumber(c *fiber.Ctx) error {
	req := domain.GetOrderByNumberRequest{
		OrderNumber: c.Params("orderNumber"),
		Email:       c.Query("email"),
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(c.Context(), "[orderHandler] GetByNumber", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Validation(err))
	}

	order, err := h.orderUsecase.GetOrderByNumber(c.Context(), req)
	if err != nil {
		slog.WarnContext(c.Context(), "[orderHandler] GetByNumber", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(order))
}

func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	idStr := c.Params("id")
	id, err := uuid.FromString(idStr)
	if err != nil {
		slog.ErrorContext(c.Context(), "[orderHandler] GetByID", "parseId:"+idStr, err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	order, err := h.orderUsecase.GetOrderByID(c.Context(), id)
	if err != nil {
		slog.ErrorContext(c.Context(), "[orderHandler] GetByID", "usecase", err, "admin", ctxutil.GetUserID(c.Context()))
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(order))
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	param := domain.ListOrdersRequest{}
	if err := c.QueryParser(&param); err != nil {
		slog.WarnContext(c.Context(), "[orderHandler] List", "queryParser", err)
	}

	if err := h.validator.Struct(param); err != nil {
		slog.ErrorContext(c.Context(), "[orderHandler] List", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Validation(err))
	}

	if param.Page <= 0 {
		param.Page = 1
	}
	if param.Limit <= 0 {
		param.Limit = 10
	}
	if param.SortOrder == "" {
		param.SortOrder = "desc"
	}

	orders, metadata, err := h.orderUsecase.ListOrders(c.Context(), param)
	if err != nil {
		slog.ErrorContext(c.Context(), "[orderHandler] List", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.SuccessWithMetadata(orders, metadata))
}
