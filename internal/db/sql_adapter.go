package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

// SQLConnection adapts a single database/sql connection to csvimport.DBConnection.
// It owns both the *sql.Conn and its parent *sql.DB.
type SQLConnection struct {
	db     *sql.DB
	conn   *sql.Conn
	driver csvimport.Driver
	closed bool
}

// NewSQLConnection pins one connection from db for the lifetime of the adapter.
func NewSQLConnection(ctx context.Context, db *sql.DB, driver csvimport.Driver) (*SQLConnection, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLConnection{db: db, conn: conn, driver: driver}, nil
}

func (c *SQLConnection) Driver() csvimport.Driver {
	return c.driver
}

func (c *SQLConnection) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.conn.ExecContext(ctx, query, args...)
	return err
}

func (c *SQLConnection) Begin(ctx context.Context) (csvimport.Tx, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (c *SQLConnection) Close(_ context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Join(c.conn.Close(), c.db.Close())
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

var _ csvimport.DBConnection = (*SQLConnection)(nil)
