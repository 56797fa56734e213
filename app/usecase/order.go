package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"storefront-service/app/domain"

	"github.com/gofrs/uuid/v5"
)

const (
	maxListLimit = 100
	maxListPage  = math.MaxInt64 / maxListLimit
)

type orderUsecase struct {
	orderRepo   domain.OrderRepository
	paymentRepo domain.PaymentRepository
}

func NewOrderUsecase(orderRepo domain.OrderRepository, paymentRepo domain.PaymentRepository) domain.OrderUsecase {
	return &orderUsecase{orderRepo, paymentRepo}
}

// GetOrderByNumber is the guest lookup. A wrong email reads as not found.
func (u *orderUsecase) GetOrderByNumber(ctx context.Context, req domain.GetOrderByNumberRequest) (domain.Order, error) {
	order, err := u.orderRepo.GetByOrderNumber(ctx, req.OrderNumber)
	if err != nil {
		slog.WarnContext(ctx, "[orderUsecase] GetOrderByNumber", "getOrder", err)
		return domain.Order{}, err
	}

	if !strings.EqualFold(order.CustomerEmail, req.Email) {
		slog.WarnContext(ctx, "[orderUsecase] GetOrderByNumber", "emailMismatch", req.OrderNumber)
		return domain.Order{}, domain.ErrNotFound
	}

	return u.withDetails(ctx, order)
}

func (u *orderUsecase) GetOrderByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "[orderUsecase] GetOrderByID", "getOrder", err)
		return domain.Order{}, err
	}

	return u.withDetails(ctx, order)
}

func (u *orderUsecase) ListOrders(ctx context.Context, param domain.ListOrdersRequest) ([]domain.Order, domain.Metadata, error) {
	var metadata domain.Metadata
	if param.Page < 1 {
		param.Page = 1
	}
	if param.Limit < 1 {
		param.Limit = 10
	}
	param.Limit = min(param.Limit, maxListLimit)
	// keeps (page-1)*limit inside int64
	param.Page = min(param.Page, maxListPage)

	orders, err := u.orderRepo.List(ctx, param)
	if err != nil {
		slog.ErrorContext(ctx, "[orderUsecase] ListOrders", "list", err)
		return nil, metadata, err
	}

	total, err := u.orderRepo.Count(ctx, param)
	if err != nil {
		slog.ErrorContext(ctx, "[orderUsecase] ListOrders", "count", err)
		return nil, metadata, err
	}

	sortOrder := param.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}
	metadata = domain.Metadata{
		TotalData: total,
		TotalPage: int64(math.Ceil(float64(total) / float64(param.Limit))),
		Page:      param.Page,
		Limit:     param.Limit,
		SortBy:    "created_at",
		SortOrder: sortOrder,
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, metadata, nil
}

func (u *orderUsecase) withDetails(ctx context.Context, order domain.Order) (domain.Order, error) {
	items, err := u.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		slog.ErrorContext(ctx, "[orderUsecase] withDetails", "getItems", err)
		return domain.Order{}, err
	}
	order.Items = items

	address, err := u.orderRepo.GetShippingAddress(ctx, order.ID)
	switch {
	case err == nil:
		order.ShippingAddress = &address
	case !errors.Is(err, domain.ErrNotFound):
		slog.ErrorContext(ctx, "[orderUsecase] withDetails", "getShippingAddress", err)
		return domain.Order{}, err
	}

	payment, err := u.paymentRepo.GetByOrderID(ctx, order.ID)
	switch {
	case err == nil:
		order.Payment = &payment
	case !errors.Is(err, domain.ErrNotFound):
		slog.ErrorContext(ctx, "[orderUsecase] withDetails", "getPayment", err)
		return domain.Order{}, err
	}

	return order, nil
}
