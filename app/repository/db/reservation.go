package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"storefront-service/app/domain"
	"storefront-service/pkg"

	"github.com/gofrs/uuid/v5"
)

const reservationColumns = `r.id, r.store_id, COALESCE(s.name, ''), r.sku, r.quantity, r.expires_at,
	r.session_id, r.order_id, r.status, r.created_at, r.updated_at`

type reservationRepository struct {
	conn *sql.DB
}

func NewReservationRepository(db *sql.DB) domain.ReservationRepository {
	return &reservationRepository{db}
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation, tx *sql.Tx) error {
	query := `INSERT INTO inventory_reservations (id, store_id, sku, quantity, expires_at, session_id, order_id, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at, updated_at`

	err := pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, res.ID, res.StoreID, res.SKU, res.Quantity,
		res.ExpiresAt, res.SessionID, res.OrderID, res.Status).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] Create", "queryRowContext", err)
		return err
	}

	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	FROM inventory_reservations r
	LEFT JOIN stores s ON s.id = r.store_id
	WHERE r.id = $1`

	res, err := scanReservation(r.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[reservationRepository] GetByID", "queryRowContext", err)
		return res, err
	}

	return res, nil
}

func (r *reservationRepository) SumActiveReserved(ctx context.Context, sku string, storeID uuid.UUID, now time.Time, tx *sql.Tx) (int64, error) {
	query := `SELECT COALESCE(SUM(quantity), 0)
	FROM inventory_reservations
	WHERE sku = $1 AND store_id = $2 AND status = 'active' AND expires_at > $3`

	var reserved int64
	err := pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, sku, storeID, now).Scan(&reserved)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] SumActiveReserved", "queryRowContext", err)
		return 0, err
	}

	return reserved, nil
}

func (r *reservationRepository) SumActiveReservedByStore(ctx context.Context, sku string, now time.Time) (map[uuid.UUID]int64, error) {
	query := `SELECT store_id, COALESCE(SUM(quantity), 0)
	FROM inventory_reservations
	WHERE sku = $1 AND status = 'active' AND expires_at > $2
	GROUP BY store_id`

	rows, err := r.conn.QueryContext(ctx, query, sku, now)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] SumActiveReservedByStore", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	reserved := make(map[uuid.UUID]int64)
	for rows.Next() {
		var storeID uuid.UUID
		var total int64
		if err := rows.Scan(&storeID, &total); err != nil {
			slog.ErrorContext(ctx, "[reservationRepository] SumActiveReservedByStore", "scan", err)
			return nil, err
		}
		reserved[storeID] = total
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] SumActiveReservedByStore", "rowError", err)
		return nil, err
	}

	return reserved, nil
}

func (r *reservationRepository) UpdateStatusIfActive(ctx context.Context, id uuid.UUID, status domain.ReservationStatus, tx *sql.Tx) (bool, error) {
	query := `UPDATE inventory_reservations SET status = $1, updated_at = NOW()
	WHERE id = $2 AND status = 'active'`

	res, err := pkg.Querier(r.conn, tx).ExecContext(ctx, query, status, id)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] UpdateStatusIfActive", "execContext", err)
		return false, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] UpdateStatusIfActive", "rowsAffected", err)
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *reservationRepository) LinkToOrder(ctx context.Context, sessionID string, orderID uuid.UUID, tx *sql.Tx) (int64, error) {
	query := `UPDATE inventory_reservations SET order_id = $1, updated_at = NOW()
	WHERE session_id = $2 AND status = 'active'`

	return r.execCount(ctx, "LinkToOrder", tx, query, orderID, sessionID)
}

// LinkByIDs attaches exactly the given reservations to orderID. Rows the
// caller did not lock are never touched.
func (r *reservationRepository) LinkByIDs(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID, tx *sql.Tx) (int64, error) {
	query := `UPDATE inventory_reservations SET order_id = $1, updated_at = NOW()
	WHERE id = $2 AND status = 'active'`

	var linked int64
	for _, id := range ids {
		n, err := r.execCount(ctx, "LinkByIDs", tx, query, orderID, id)
		if err != nil {
			return linked, err
		}
		linked += n
	}

	return linked, nil
}

func (r *reservationRepository) ExpireActive(ctx context.Context, now time.Time) ([]string, error) {
	query := `UPDATE inventory_reservations SET status = 'expired', updated_at = NOW()
	WHERE status = 'active' AND expires_at < $1
	RETURNING sku`

	return r.querySKUs(ctx, "ExpireActive", nil, query, now)
}

func (r *reservationRepository) ConvertByOrder(ctx context.Context, orderID uuid.UUID, tx *sql.Tx) ([]string, error) {
	query := `UPDATE inventory_reservations SET status = 'converted', updated_at = NOW()
	WHERE order_id = $1 AND status = 'active'
	RETURNING sku`

	return r.querySKUs(ctx, "ConvertByOrder", tx, query, orderID)
}

func (r *reservationRepository) CancelByOrder(ctx context.Context, orderID uuid.UUID, tx *sql.Tx) ([]domain.Reservation, error) {
	query := `UPDATE inventory_reservations r SET status = 'cancelled', updated_at = NOW()
	FROM stores s
	WHERE s.id = r.store_id AND r.order_id = $1 AND r.status = 'active'
	RETURNING ` + reservationColumns

	return r.queryReservations(ctx, "CancelByOrder", tx, query, orderID)
}

func (r *reservationRepository) CancelBySession(ctx context.Context, sessionID string, tx *sql.Tx) ([]domain.Reservation, error) {
	query := `UPDATE inventory_reservations r SET status = 'cancelled', updated_at = NOW()
	FROM stores s
	WHERE s.id = r.store_id AND r.session_id = $1 AND r.status = 'active'
	RETURNING ` + reservationColumns

	return r.queryReservations(ctx, "CancelBySession", tx, query, sessionID)
}

func (r *reservationRepository) LockActiveBySessionForUpdate(ctx context.Context, sessionID string, tx *sql.Tx) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	FROM inventory_reservations r
	JOIN stores s ON s.id = r.store_id
	WHERE r.session_id = $1 AND r.status = 'active'
	ORDER BY r.created_at, r.id
	FOR UPDATE OF r`

	return r.queryReservations(ctx, "LockActiveBySessionForUpdate", tx, query, sessionID)
}

func (r *reservationRepository) ListActiveBySession(ctx context.Context, sessionID string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	FROM inventory_reservations r
	JOIN stores s ON s.id = r.store_id
	WHERE r.session_id = $1 AND r.status = 'active'
	ORDER BY r.created_at, r.id`

	return r.queryReservations(ctx, "ListActiveBySession", nil, query, sessionID)
}

func (r *reservationRepository) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return withTransaction(ctx, r.conn, "[reservationRepository]", fn)
}

func (r *reservationRepository) execCount(ctx context.Context, method string, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := pkg.Querier(r.conn, tx).ExecContext(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] "+method, "execContext", err)
		return 0, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] "+method, "rowsAffected", err)
		return 0, err
	}

	return rowsAffected, nil
}

func (r *reservationRepository) querySKUs(ctx context.Context, method string, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := pkg.Querier(r.conn, tx).QueryContext(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] "+method, "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	var skus []string
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			slog.ErrorContext(ctx, "[reservationRepository] "+method, "scan", err)
			return nil, err
		}
		skus = append(skus, sku)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] "+method, "rowError", err)
		return nil, err
	}

	return skus, nil
}

func (r *reservationRepository) queryReservations(ctx context.Context, method string, tx *sql.Tx, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := pkg.Querier(r.conn, tx).QueryContext(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] "+method, "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			slog.ErrorContext(ctx, "[reservationRepository] "+method, "scan", err)
			return nil, err
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[reservationRepository] "+method, "rowError", err)
		return nil, err
	}

	return reservations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(&res.ID, &res.StoreID, &res.StoreName, &res.SKU, &res.Quantity, &res.ExpiresAt,
		&res.SessionID, &res.OrderID, &res.Status, &res.CreatedAt, &res.UpdatedAt)
	return res, err
}
