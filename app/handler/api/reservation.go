package handler

import (
	"fmt"
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/app/handler/api/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"
)

type ReservationHandler struct {
	reservationUsecase domain.ReservationUsecase
	validator          *validator.Validate
}

func NewReservationHandler(reservationUsecase domain.ReservationUsecase, validator *validator.Validate) *ReservationHandler {
	return &ReservationHandler{
		reservationUsecase: reservationUsecase,
		validator:          validator,
	}
}

func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var req domain.CreateReservationRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Create", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Create", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Validation(err))
	}

	result, err := h.reservationUsecase.CreateReservation(c.Context(), req)
	if err != nil {
		slog.WarnContext(c.Context(), "[reservationHandler] Create", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusCreated).JSON(response.Success(domain.ReservationResponse{
		ReservationID: result.Reservation.ID,
		SKU:           result.Reservation.SKU,
		Quantity:      result.Reservation.Quantity,
		ExpiresAt:     result.Reservation.ExpiresAt,
		Store:         domain.StoreRef{ID: result.Store.ID, Name: result.Store.Name},
	}))
}

func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	idStr := c.Params("id")
	id, err := uuid.FromString(idStr)
	if err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Release", "parseId:"+idStr, err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.reservationUsecase.ReleaseReservation(c.Context(), id); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Release", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(nil))
}

func (h *ReservationHandler) ListBySession(c *fiber.Ctx) error {
	reservations, err := h.reservationUsecase.GetSessionReservations(c.Context(), c.Query("sessionId"))
	if err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] ListBySession", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	resp := make([]domain.SessionReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		resp = append(resp, domain.SessionReservationResponse{
			ID:        r.ID,
			SKU:       r.SKU,
			Quantity:  r.Quantity,
			ExpiresAt: r.ExpiresAt,
			Store:     domain.StoreRef{ID: r.StoreID, Name: r.StoreName},
		})
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(resp))
}

// ClearCart cancels every active reservation of a session.
func (h *ReservationHandler) ClearCart(c *fiber.Ctx) error {
	var req domain.CancelReservationsRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] ClearCart", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(fmt.Errorf("%w: sessionId is required", domain.ErrValidation)))
	}

	cancelled, err := h.reservationUsecase.CancelReservations(c.Context(), domain.CancelReservationsRequest{SessionID: req.SessionID})
	if err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] ClearCart", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(fiber.Map{"cancelled": cancelled}))
}

// Cancel is the internal variant that also accepts an order id.
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	var req domain.CancelReservationsRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Cancel", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	cancelled, err := h.reservationUsecase.CancelReservations(c.Context(), req)
	if err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Cancel", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(fiber.Map{"cancelled": cancelled}))
}

func (h *ReservationHandler) Expire(c *fiber.Ctx) error {
	expired, err := h.reservationUsecase.ExpireReservations(c.Context())
	if err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Expire", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(fiber.Map{"expired": expired}))
}

func (h *ReservationHandler) Link(c *fiber.Ctx) error {
	var req domain.LinkReservationsRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Link", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Link", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Validation(err))
	}

	linked, err := h.reservationUsecase.LinkReservationsToOrder(c.Context(), req.SessionID, req.OrderID)
	if err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Link", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(fiber.Map{"linked": linked}))
}

func (h *ReservationHandler) Convert(c *fiber.Ctx) error {
	var req domain.ConvertReservationsRequest
	if err := c.BodyParser(&req); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Convert", "bodyParser", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Error(domain.ErrBadRequest))
	}

	if err := h.validator.Struct(req); err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Convert", "validation", err)
		return c.Status(fiber.StatusBadRequest).JSON(response.Validation(err))
	}

	converted, err := h.reservationUsecase.ConvertReservations(c.Context(), req.OrderID)
	if err != nil {
		slog.ErrorContext(c.Context(), "[reservationHandler] Convert", "usecase", err)
		status, resp := response.FromError(err)
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(response.Success(fiber.Map{"converted": converted}))
}
