package response

import (
	"errors"
	"fmt"
	"strings"

	"storefront-service/app/domain"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeEmptyCart          = "EMPTY_CART"
	CodeReservationExpired = "RESERVATION_EXPIRED"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeInternal           = "INTERNAL_ERROR"
)

type Response struct {
	Success  bool             `json:"success"`
	Metadata *domain.Metadata `json:"meta,omitempty"`
	Data     any              `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
}

func Success(data any) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

func SuccessWithMetadata(data any, metadata domain.Metadata) *Response {
	return &Response{
		Success:  true,
		Data:     data,
		Metadata: &metadata,
	}
}

func Error(err error) *Response {
	_, code := classify(err)
	return &Response{
		Success: false,
		Error:   err.Error(),
		Code:    code,
	}
}

// Validation names every field the validator rejected.
func Validation(err error) *Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Error(fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}

	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch {
		case fe.Tag() == "required":
			reasons = append(reasons, fe.Field()+" is required")
		case fe.Param() != "":
			reasons = append(reasons, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			reasons = append(reasons, fmt.Sprintf("%s must be a valid %s", fe.Field(), fe.Tag()))
		}
	}
	return Error(fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(reasons, ", ")))
}

// FromError maps a domain error to its HTTP status. Server errors never
// leak their message.
func FromError(err error) (int, *Response) {
	status, code := classify(err)
	if status >= fiber.StatusInternalServerError {
		return status, &Response{Success: false, Error: domain.ErrInternal.Error(), Code: code}
	}
	return status, &Response{Success: false, Error: err.Error(), Code: code}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusBadRequest, CodeInsufficientStock
	case errors.Is(err, domain.ErrEmptyCart):
		return fiber.StatusBadRequest, CodeEmptyCart
	case errors.Is(err, domain.ErrReservationExpired):
		return fiber.StatusBadRequest, CodeReservationExpired
	case errors.Is(err, domain.ErrInvalidArgument):
		return fiber.StatusBadRequest, CodeInvalidArgument
	case errors.Is(err, domain.ErrBadRequest):
		return fiber.StatusBadRequest, CodeBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, domain.ErrSignatureInvalid):
		return fiber.StatusUnauthorized, CodeInvalidSignature
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, CodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict, CodeInvalidTransition
	default:
		return fiber.StatusInternalServerError, CodeInternal
	}
}
