package db

import (
	"context"
	"errors"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5"
)

// PgxConnection adapts *pgx.Conn to implement the csvimport.DBConnection interface.
// This decouples the internal implementation from the public API, preventing
// direct exposure of pgx-specific types.
//
// Thread-Safety: NOT safe for concurrent use (*pgx.Conn is not).
type PgxConnection struct {
	conn    *pgx.Conn
	onClose func()
	closed  bool
}

// NewPgxConnection wraps an open pgx connection.
func NewPgxConnection(conn *pgx.Conn) *PgxConnection {
	return &PgxConnection{conn: conn}
}

// Driver reports the Postgres dialect.
func (c *PgxConnection) Driver() csvimport.Driver {
	return csvimport.DriverPostgres
}

// Exec executes a statement in autocommit mode.
func (c *PgxConnection) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := c.conn.Exec(ctx, sql, args...)
	return err
}

// Begin starts a transaction.
func (c *PgxConnection) Begin(ctx context.Context) (csvimport.Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

// Close closes the connection and runs any release hook once.
func (c *PgxConnection) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.conn.Close(ctx)
	if c.onClose != nil {
		c.onClose()
	}
	return err
}

// pgxTx adapts pgx.Tx to implement csvimport.Tx.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// Verify PgxConnection implements DBConnection at compile time
var _ csvimport.DBConnection = (*PgxConnection)(nil)
