package pkg

import (
	"context"
	"database/sql"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Querier returns tx when a transaction is in flight, otherwise conn.
func Querier(conn *sql.DB, tx *sql.Tx) DBTX {
	if tx != nil {
		return tx
	}
	return conn
}
