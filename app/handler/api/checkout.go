package handler

import (
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/app/handler/api/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type CheckoutHandler struct {
	checkoutUsecase domain.CheckoutUsecase
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutUsecase domain.CheckoutUsecase, validator *validator.Validate) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutUsecase: checkoutUsecase,
		validator:       validator,
	}
}

func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	var req domain.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[checkoutHandler] Checkout", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(c.Context(), "[checkoutHandler] Checkout", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Validation(err))
	}

	result, err := h.checkoutUsecase.ProcessCheckout(c.Context(), req)
	if err != nil {
		slog.WarnContext(c.Context(), "[checkoutHandler] Checkout", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusCreated).JSON(response.Success(domain.CheckoutResponse{
		Order: domain.CheckoutOrderResponse{
			ID:          result.Order.ID,
			OrderNumber: result.Order.OrderNumber,
			Total:       result.Order.Total,
			Currency:    result.Order.Currency,
			Status:      result.Order.Status,
		},
		Payment: domain.CheckoutPaymentResponse{
			IntentID:    result.PaymentIntentID,
			CheckoutURL: result.CheckoutURL,
		},
	}))
}
