package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"storefront-service/app/domain"
	"storefront-service/pkg"
)

type eventLedgerRepository struct {
	conn *sql.DB
}

func NewEventLedgerRepository(db *sql.DB) domain.EventLedgerRepository {
	return &eventLedgerRepository{db}
}

func (r *eventLedgerRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)`

	var exists bool
	if err := r.conn.QueryRowContext(ctx, query, eventID).Scan(&exists); err != nil {
		slog.ErrorContext(ctx, "[eventLedgerRepository] Exists", "queryRowContext", err)
		return false, err
	}

	return exists, nil
}

func (r *eventLedgerRepository) Insert(ctx context.Context, e *domain.ProcessedEvent, tx *sql.Tx) error {
	query := `INSERT INTO processed_events (id, event_id, event_type, provider, payload, outcome, error_message)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING processed_at`

	var payload any
	if json.Valid(e.Payload) {
		payload = string(e.Payload)
	}

	err := pkg.Querier(r.conn, tx).QueryRowContext(ctx, query, e.ID, e.EventID, e.EventType, e.Provider,
		payload, e.Outcome, e.ErrorMessage).Scan(&e.ProcessedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateEvent, e.EventID)
		}
		slog.ErrorContext(ctx, "[eventLedgerRepository] Insert", "queryRowContext", err)
		return err
	}

	return nil
}

func (r *eventLedgerRepository) GetByEventID(ctx context.Context, eventID string) (domain.ProcessedEvent, error) {
	query := `SELECT id, event_id, event_type, provider, COALESCE(payload::text, ''), outcome, error_message, processed_at
	FROM processed_events WHERE event_id = $1`

	var e domain.ProcessedEvent
	var payload string
	var errorMessage sql.NullString
	err := r.conn.QueryRowContext(ctx, query, eventID).Scan(&e.ID, &e.EventID, &e.EventType, &e.Provider,
		&payload, &e.Outcome, &errorMessage, &e.ProcessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[eventLedgerRepository] GetByEventID", "queryRowContext", err)
		return e, err
	}
	e.Payload = []byte(payload)
	e.ErrorMessage = nullStringPtr(errorMessage)

	return e, nil
}
