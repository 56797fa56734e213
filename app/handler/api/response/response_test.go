package response

import (
	"errors"
	"fmt"
	"testing"

	"storefront-service/app/domain"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{
			name:   "insufficient stock keeps detail",
			err:    fmt.Errorf("%w for SKU TEE-M. Requested: 3", domain.ErrInsufficientStock),
			status: fiber.StatusBadRequest,
			code:   CodeInsufficientStock,
			msg:    "insufficient stock for SKU TEE-M. Requested: 3",
		},
		{
			name:   "empty cart",
			err:    fmt.Errorf("%w: no active reservations for session", domain.ErrEmptyCart),
			status: fiber.StatusBadRequest,
			code:   CodeEmptyCart,
		},
		{
			name:   "expired",
			err:    domain.ErrReservationExpired,
			status: fiber.StatusBadRequest,
			code:   CodeReservationExpired,
		},
		{
			name:   "not found",
			err:    domain.ErrNotFound,
			status: fiber.StatusNotFound,
			code:   CodeNotFound,
		},
		{
			name:   "forbidden",
			err:    domain.ErrForbidden,
			status: fiber.StatusForbidden,
			code:   CodeForbidden,
		},
		{
			name:   "transition",
			err:    domain.ErrInvalidTransition,
			status: fiber.StatusConflict,
			code:   CodeInvalidTransition,
		},
		{
			name:   "transaction failure is hidden",
			err:    fmt.Errorf("%w: begin: connection refused", domain.ErrTransactionFailure),
			status: fiber.StatusInternalServerError,
			code:   CodeInternal,
			msg:    "internal server error",
		},
		{
			name:   "unknown error is hidden",
			err:    errors.New("pq: relation does not exist"),
			status: fiber.StatusInternalServerError,
			code:   CodeInternal,
			msg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := FromError(tt.err)

			assert.Equal(t, tt.status, status)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, resp.Error)
			}
		})
	}
}

func TestError(t *testing.T) {
	resp := Error(domain.ErrValidation)

	assert.Equal(t, "validation error", resp.Error)
	assert.Equal(t, CodeValidation, resp.Code)
}

func TestValidation(t *testing.T) {
	type request struct {
		SKU      string `validate:"required"`
		Quantity int64  `validate:"gt=0"`
	}
	err := validator.New().Struct(request{Quantity: 0})

	resp := Validation(err)

	assert.Equal(t, CodeValidation, resp.Code)
	assert.Contains(t, resp.Error, "SKU is required")
	assert.Contains(t, resp.Error, "Quantity must satisfy gt=0")

	status, _ := FromError(fmt.Errorf("%w: sessionId is required", domain.ErrValidation))
	assert.Equal(t, fiber.StatusBadRequest, status)
}
