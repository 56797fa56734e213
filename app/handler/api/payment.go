package handler

import (
	"encoding/json"
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/app/handler/api/response"
	"storefront-service/config"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	paymentUsecase domain.PaymentUsecase
	validator      *validator.Validate
	cfg            *config.Config
}

func NewPaymentHandler(paymentUsecase domain.PaymentUsecase, validator *validator.Validate, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		validator:      validator,
		cfg:            cfg,
	}
}

type webhookAck struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

// Webhook acknowledges every correctly signed delivery with 200 so the
// provider stops retrying; processing errors are reported in the body.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	provider := c.Params("provider")
	// fasthttp reuses the request buffer after the handler returns
	payload := append([]byte(nil), c.Body()...)

	if !h.paymentUsecase.VerifySignature(c.Context(), payload, c.Get(h.cfg.Payment.SignatureHeader)) {
		slog.WarnContext(c.Context(), "[paymentHandler] Webhook", "signature", "invalid", "provider", provider)
		return c.Status(fiber.StatusUnauthorized).JSON(response.Error(domain.ErrSignatureInvalid))
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		slog.ErrorContext(c.Context(), "[paymentHandler] Webhook", "unmarshal", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	// a signed event the provider cannot fix by retrying is acked with the reason
	if err := h.validator.Struct(event); err != nil {
		slog.ErrorContext(c.Context(), "[paymentHandler] Webhook", "validation", err)
		return c.Status(fiber.StatusOK).JSON(webhookAck{Received: true, Error: response.Validation(err).Error})
	}

	if err := h.paymentUsecase.ProcessEvent(c.Context(), provider, event, payload); err != nil {
		slog.ErrorContext(c.Context(), "[paymentHandler] Webhook", "usecase", err, "eventId", event.ID)
		return c.Status(fiber.StatusOK).JSON(webhookAck{Received: true, Error: err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(webhookAck{Received: true})
}

func (h *PaymentHandler) Simulate(c *fiber.Ctx) error {
	var req domain.SimulatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[paymentHandler] Simulate", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(c.Context(), "[paymentHandler] Simulate", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Validation(err))
	}

	if err := h.paymentUsecase.SimulatePayment(c.Context(), req); err != nil {
		slog.ErrorContext(c.Context(), "[paymentHandler] Simulate", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(nil))
}
