package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"storefront-service/app/domain"
	"storefront-service/config"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
)

type reservationUsecase struct {
	reservationRepo domain.ReservationRepository
	inventoryRepo   domain.InventoryRepository
	notifier        stockNotifier
	cfg             *config.Config
	now             func() time.Time
}

func NewReservationUsecase(reservationRepo domain.ReservationRepository, inventoryRepo domain.InventoryRepository, stock domain.StockUsecase, cache domain.Cache, publisher domain.BrokerPublisher, cfg *config.Config) domain.ReservationUsecase {
	return &reservationUsecase{
		reservationRepo: reservationRepo,
		inventoryRepo:   inventoryRepo,
		notifier:        stockNotifier{stock: stock, cache: cache, publisher: publisher},
		cfg:             cfg,
		now:             time.Now,
	}
}

// CreateReservation holds quantity units of sku at the single fullest store
// that can cover the whole request. Candidate inventory rows stay locked
// until commit, so concurrent requests for the same sku see each other's
// reservations.
func (u *reservationUsecase) CreateReservation(ctx context.Context, req domain.CreateReservationRequest) (domain.ReservationResult, error) {
	ctx, span := tracer.Start(ctx, "reservationUsecase.CreateReservation")
	defer span.End()
	span.SetAttributes(attribute.String("sku", req.SKU), attribute.Int64("quantity", req.Quantity))

	if req.Quantity <= 0 {
		return domain.ReservationResult{}, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	var result domain.ReservationResult
	err := u.reservationRepo.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		now := u.now()

		candidates, err := u.inventoryRepo.LockCandidatesForUpdate(ctx, req.SKU, tx)
		if err != nil {
			slog.ErrorContext(ctx, "[reservationUsecase] CreateReservation", "lockCandidates", err)
			return err
		}

		for _, candidate := range candidates {
			reserved, err := u.reservationRepo.SumActiveReserved(ctx, req.SKU, candidate.StoreID, now, tx)
			if err != nil {
				slog.ErrorContext(ctx, "[reservationUsecase] CreateReservation", "sumReserved", err)
				return err
			}

			if domain.Sellable(candidate.Quantity, reserved, u.cfg.Business.SafetyBuffer) < req.Quantity {
				continue
			}

			reservation := domain.Reservation{
				ID:        uuid.Must(uuid.NewV4()),
				StoreID:   candidate.StoreID,
				StoreName: candidate.StoreName,
				SKU:       req.SKU,
				Quantity:  req.Quantity,
				ExpiresAt: now.Add(u.cfg.Business.ReservationWindow()),
				SessionID: req.SessionID,
				Status:    domain.ReservationStatusActive,
			}
			if err := u.reservationRepo.Create(ctx, &reservation, tx); err != nil {
				slog.ErrorContext(ctx, "[reservationUsecase] CreateReservation", "createReservation", err)
				return err
			}

			result = domain.ReservationResult{
				Reservation: reservation,
				Store:       domain.Store{ID: candidate.StoreID, Name: candidate.StoreName},
			}
			return nil
		}

		return fmt.Errorf("%w for SKU %s. Requested: %d", domain.ErrInsufficientStock, req.SKU, req.Quantity)
	})
	if err != nil {
		slog.WarnContext(ctx, "[reservationUsecase] CreateReservation", "sku", req.SKU, "error", err)
		return domain.ReservationResult{}, err
	}

	u.notifier.notify(ctx, req.SKU)

	slog.InfoContext(ctx, "[reservationUsecase] CreateReservation",
		"reservationId", result.Reservation.ID,
		"storeId", result.Store.ID,
		"sku", req.SKU,
		"quantity", req.Quantity)
	return result, nil
}

func (u *reservationUsecase) ReleaseReservation(ctx context.Context, id uuid.UUID) error {
	reservation, err := u.reservationRepo.GetByID(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "[reservationUsecase] ReleaseReservation", "getReservation", err, "id", id)
		return err
	}

	if reservation.Status.IsTerminal() {
		slog.InfoContext(ctx, "[reservationUsecase] ReleaseReservation", "noChange", reservation.Status, "id", id)
		return nil
	}

	changed, err := u.reservationRepo.UpdateStatusIfActive(ctx, id, domain.ReservationStatusCancelled, nil)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] ReleaseReservation", "updateStatus", err)
		return err
	}

	if changed {
		u.notifier.notify(ctx, reservation.SKU)
	}

	slog.InfoContext(ctx, "[reservationUsecase] ReleaseReservation", "id", id, "released", changed)
	return nil
}

func (u *reservationUsecase) LinkReservationsToOrder(ctx context.Context, sessionID string, orderID uuid.UUID) (int64, error) {
	linked, err := u.reservationRepo.LinkToOrder(ctx, sessionID, orderID, nil)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] LinkReservationsToOrder", "linkToOrder", err)
		return 0, err
	}

	slog.InfoContext(ctx, "[reservationUsecase] LinkReservationsToOrder", "orderId", orderID, "linked", linked)
	return linked, nil
}

// ExpireReservations is a single conditional update, safe to run while
// reservations are being created or checked out.
func (u *reservationUsecase) ExpireReservations(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "reservationUsecase.ExpireReservations")
	defer span.End()

	skus, err := u.reservationRepo.ExpireActive(ctx, u.now())
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] ExpireReservations", "expireActive", err)
		return 0, err
	}

	expired := int64(len(skus))
	if expired > 0 {
		u.notifier.notify(ctx, skus...)
		slog.InfoContext(ctx, "[reservationUsecase] ExpireReservations", "expired", expired)
	}
	return expired, nil
}

func (u *reservationUsecase) ConvertReservations(ctx context.Context, orderID uuid.UUID) (int64, error) {
	skus, err := u.reservationRepo.ConvertByOrder(ctx, orderID, nil)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] ConvertReservations", "convertByOrder", err)
		return 0, err
	}

	u.notifier.notify(ctx, skus...)

	slog.InfoContext(ctx, "[reservationUsecase] ConvertReservations", "orderId", orderID, "converted", len(skus))
	return int64(len(skus)), nil
}

func (u *reservationUsecase) CancelReservations(ctx context.Context, req domain.CancelReservationsRequest) (int64, error) {
	byOrder := req.OrderID != nil
	bySession := req.SessionID != ""
	if byOrder == bySession {
		return 0, fmt.Errorf("%w: exactly one of orderId or sessionId is required", domain.ErrInvalidArgument)
	}

	var cancelled []domain.Reservation
	var err error
	if byOrder {
		cancelled, err = u.reservationRepo.CancelByOrder(ctx, *req.OrderID, nil)
	} else {
		cancelled, err = u.reservationRepo.CancelBySession(ctx, req.SessionID, nil)
	}
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] CancelReservations", "cancel", err)
		return 0, err
	}

	u.notifier.notify(ctx, reservationSKUs(cancelled)...)

	slog.InfoContext(ctx, "[reservationUsecase] CancelReservations", "cancelled", len(cancelled))
	return int64(len(cancelled)), nil
}

func (u *reservationUsecase) GetSessionReservations(ctx context.Context, sessionID string) ([]domain.Reservation, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId required", domain.ErrValidation)
	}

	reservations, err := u.reservationRepo.ListActiveBySession(ctx, sessionID)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationUsecase] GetSessionReservations", "listActive", err)
		return nil, err
	}

	return reservations, nil
}
