package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/pkg"

	"github.com/gofrs/uuid/v5"
)

const paymentColumns = `id, order_id, provider, payment_intent_id, checkout_url, amount, currency, status,
	failure_reason, refund_amount, refunded_at, created_at, updated_at`

type paymentRepository struct {
	conn *sql.DB
}

func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment, tx *sql.Tx) error {
	query := `INSERT INTO payments (id, order_id, provider, payment_intent_id, checkout_url, amount, currency, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at, updated_at`

	err := pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, p.ID, p.OrderID, p.Provider, p.PaymentIntentID,
		p.CheckoutURL, p.Amount, p.Currency, p.Status).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		slog.ErrorContext(ctx, "[paymentRepository] Create", "queryRowContext", err)
		return err
	}

	return nil
}

func (r *paymentRepository) LockByIntentIDForUpdate(ctx context.Context, intentID string, tx *sql.Tx) (domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_intent_id = $1 FOR UPDATE`

	p, err := scanPayment(pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, intentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, fmt.Errorf("%w: payment intent %s", domain.ErrNotFound, intentID)
		}
		slog.ErrorContext(ctx, "[paymentRepository] LockByIntentIDForUpdate", "queryRowContext", err)
		return p, err
	}

	return p, nil
}

func (r *paymentRepository) UpdateSettlement(ctx context.Context, p *domain.Payment, tx *sql.Tx) error {
	query := `UPDATE payments SET status = $1, failure_reason = $2, refund_amount = $3, refunded_at = $4, updated_at = NOW()
	WHERE id = $5`

	_, err := pkg.Querier(r.conn, tx).ExecContext(ctx, query, p.Status, p.FailureReason, p.RefundAmount, p.RefundedAt, p.ID)
	if err != nil {
		slog.ErrorContext(ctx, "[paymentRepository] UpdateSettlement", "execContext", err)
		return err
	}

	return nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`

	p, err := scanPayment(r.conn.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[paymentRepository] GetByOrderID", "queryRowContext", err)
		return p, err
	}

	return p, nil
}

func (r *paymentRepository) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return withTransaction(ctx, r.conn, "[paymentRepository]", fn)
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var p domain.Payment
	var failureReason sql.NullString
	var refundedAt sql.NullTime
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.PaymentIntentID, &p.CheckoutURL, &p.Amount, &p.Currency,
		&p.Status, &failureReason, &p.RefundAmount, &refundedAt, &p.CreatedAt, &p.UpdatedAt)
	p.FailureReason = nullStringPtr(failureReason)
	if refundedAt.Valid {
		p.RefundedAt = &refundedAt.Time
	}
	return p, err
}
