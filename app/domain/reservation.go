package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofrs/uuid/v5"
)

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusConverted ReservationStatus = "converted"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusActive: {ReservationStatusConverted, ReservationStatusExpired, ReservationStatusCancelled},
}

func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Reservation struct {
	ID        uuid.UUID         `json:"id"`
	StoreID   uuid.UUID         `json:"storeId"`
	StoreName string            `json:"storeName,omitempty"`
	SKU       string            `json:"sku"`
	Quantity  int64             `json:"quantity"`
	ExpiresAt time.Time         `json:"expiresAt"`
	SessionID string            `json:"sessionId"`
	OrderID   uuid.NullUUID     `json:"orderId"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// IsExpired reports whether the hold has lapsed at now. A reservation
// expiring exactly at now no longer holds stock.
func (r Reservation) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

type CreateReservationRequest struct {
	SKU       string `json:"sku" validate:"required,max=100"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	SessionID string `json:"sessionId" validate:"required,max=255"`
}

type ReservationResult struct {
	Reservation Reservation
	Store       Store
}

type ReservationResponse struct {
	ReservationID uuid.UUID `json:"reservationId"`
	SKU           string    `json:"sku"`
	Quantity      int64     `json:"quantity"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Store         StoreRef  `json:"store"`
}

type StoreRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type SessionReservationResponse struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	Quantity  int64     `json:"quantity"`
	ExpiresAt time.Time `json:"expiresAt"`
	Store     StoreRef  `json:"store"`
}

// CancelReservationsRequest selects reservations by exactly one key.
type CancelReservationsRequest struct {
	OrderID   *uuid.UUID `json:"orderId"`
	SessionID string     `json:"sessionId"`
}

type LinkReservationsRequest struct {
	SessionID string    `json:"sessionId" validate:"required"`
	OrderID   uuid.UUID `json:"orderId" validate:"required"`
}

type ConvertReservationsRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
}

type ReservationRepository interface {
	Create(ctx context.Context, r *Reservation, tx *sql.Tx) error
	GetByID(ctx context.Context, id uuid.UUID) (Reservation, error)
	SumActiveReserved(ctx context.Context, sku string, storeID uuid.UUID, now time.Time, tx *sql.Tx) (int64, error)
	SumActiveReservedByStore(ctx context.Context, sku string, now time.Time) (map[uuid.UUID]int64, error)
	// UpdateStatusIfActive moves an active reservation to status and
	// reports whether a row changed.
	UpdateStatusIfActive(ctx context.Context, id uuid.UUID, status ReservationStatus, tx *sql.Tx) (bool, error)
	LinkToOrder(ctx context.Context, sessionID string, orderID uuid.UUID, tx *sql.Tx) (int64, error)
	LinkByIDs(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID, tx *sql.Tx) (int64, error)
	// ExpireActive and ConvertByOrder return the sku of every row moved.
	ExpireActive(ctx context.Context, now time.Time) ([]string, error)
	ConvertByOrder(ctx context.Context, orderID uuid.UUID, tx *sql.Tx) ([]string, error)
	CancelByOrder(ctx context.Context, orderID uuid.UUID, tx *sql.Tx) ([]Reservation, error)
	CancelBySession(ctx context.Context, sessionID string, tx *sql.Tx) ([]Reservation, error)
	LockActiveBySessionForUpdate(ctx context.Context, sessionID string, tx *sql.Tx) ([]Reservation, error)
	ListActiveBySession(ctx context.Context, sessionID string) ([]Reservation, error)

	WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error
}

type ReservationUsecase interface {
	CreateReservation(ctx context.Context, req CreateReservationRequest) (ReservationResult, error)
	ReleaseReservation(ctx context.Context, id uuid.UUID) error
	LinkReservationsToOrder(ctx context.Context, sessionID string, orderID uuid.UUID) (int64, error)
	ExpireReservations(ctx context.Context) (int64, error)
	ConvertReservations(ctx context.Context, orderID uuid.UUID) (int64, error)
	CancelReservations(ctx context.Context, req CancelReservationsRequest) (int64, error)
	GetSessionReservations(ctx context.Context, sessionID string) ([]Reservation, error)
}
