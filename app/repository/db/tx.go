package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"storefront-service/app/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func withTransaction(ctx context.Context, conn *sql.DB, tag string, fn func(context.Context, *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		slog.ErrorContext(ctx, tag+" WithTransaction", "beginTx", err)
		return fmt.Errorf("%w: begin: %v", domain.ErrTransactionFailure, err)
	}

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			slog.ErrorContext(ctx, tag+" WithTransaction", "rollback", rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		slog.ErrorContext(ctx, tag+" WithTransaction", "commit", err)
		return fmt.Errorf("%w: commit: %v", domain.ErrTransactionFailure, err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
