package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrBadRequest         = errors.New("bad request")
	ErrValidation         = errors.New("validation error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal server error")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrReservationExpired = errors.New("reservation expired")
	ErrSignatureInvalid   = errors.New("invalid signature")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDuplicateEvent     = errors.New("event already processed")
	ErrTransactionFailure = errors.New("transaction failure")
)
