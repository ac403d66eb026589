package writer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db/schema"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db/writer"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTx struct {
	statements []string
	args       [][]any
	failOn     int // 1-based statement index that fails; 0 never
	committed  bool
	rolledBack bool
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	t.statements = append(t.statements, sql)
	t.args = append(t.args, args)
	if t.failOn == len(t.statements) {
		return 0, errors.New(`value too long for type character varying(255)`)
	}
	return int64(len(args) / 4), nil
}

func (t *mockTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *mockTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type mockConn struct {
	driver   csvimport.Driver
	tx       *mockTx
	beginErr error
}

func (c *mockConn) Driver() csvimport.Driver                                { return c.driver }
func (c *mockConn) Exec(ctx context.Context, sql string, args ...any) error { return nil }
func (c *mockConn) Close(ctx context.Context) error                         { return nil }

func (c *mockConn) Begin(ctx context.Context) (csvimport.Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	return c.tx, nil
}

func sampleRows(n int) []csvimport.SalesRow {
	rows := make([]csvimport.SalesRow, n)
	for i := range rows {
		rows[i] = csvimport.SalesRow{
			ProductName: "Widget",
			Quantity:    int32(i + 1),
			Price:       decimal.RequireFromString("9.99"),
			SaleDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}
	}
	return rows
}

func TestBuildInsert_Placeholders(t *testing.T) {
	rows := sampleRows(2)

	stmt, args := writer.BuildInsert(csvimport.DriverPostgres, `"sales_data"`, rows)
	assert.Equal(t,
		`INSERT INTO "sales_data" (product_name, quantity, price, sale_date) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)`,
		stmt)
	require.Len(t, args, 8)
	assert.Equal(t, "Widget", args[0])
	assert.Equal(t, int32(1), args[1])
	assert.IsType(t, pgtype.Numeric{}, args[2])
	assert.Equal(t, pgtype.Date{Time: rows[0].SaleDate, Valid: true}, args[3])

	stmt, args = writer.BuildInsert(csvimport.DriverSQLite, `"sales_data"`, rows)
	assert.Equal(t,
		`INSERT INTO "sales_data" (product_name, quantity, price, sale_date) VALUES (?, ?, ?, ?), (?, ?, ?, ?)`,
		stmt)
	assert.Equal(t, []any{"Widget", int64(1), "9.99", "2024-01-15", "Widget", int64(2), "9.99", "2024-01-15"}, args)
}

func TestBuildInsert_PostgresNumericValue(t *testing.T) {
	rows := sampleRows(1)
	rows[0].Price = decimal.RequireFromString("1234.50")

	_, args := writer.BuildInsert(csvimport.DriverPostgres, `"sales_data"`, rows)
	num, ok := args[2].(pgtype.Numeric)
	require.True(t, ok)

	value, err := num.Value()
	require.NoError(t, err)
	got, err := decimal.NewFromString(value.(string))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("1234.5")), "got %s", got)
}

func TestEffectiveBatchSize(t *testing.T) {
	tests := []struct {
		name      string
		driver    csvimport.Driver
		requested int
		want      int
	}{
		{"default when zero", csvimport.DriverPostgres, 0, csvimport.DefaultBatchSize},
		{"default when negative", csvimport.DriverSQLite, -5, csvimport.DefaultBatchSize},
		{"requested honoured", csvimport.DriverPostgres, 50, 50},
		{"postgres cap", csvimport.DriverPostgres, 1_000_000, 65535 / 4},
		{"mysql cap", csvimport.DriverMySQL, 1_000_000, 65535 / 4},
		{"sqlite cap", csvimport.DriverSQLite, 1_000_000, 32766 / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, writer.EffectiveBatchSize(tt.driver, tt.requested))
		})
	}
}

func TestInsert_ChunksInOneTransaction(t *testing.T) {
	tx := &mockTx{}
	conn := &mockConn{driver: csvimport.DriverPostgres, tx: tx}

	n, err := writer.New().Insert(context.Background(), conn, "sales_data", sampleRows(5), 2)
	require.NoError(t, err)

	assert.Equal(t, int64(5), n)
	assert.Len(t, tx.statements, 3)
	assert.Len(t, tx.args[2], 4)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestInsert_FailureRollsBack(t *testing.T) {
	tx := &mockTx{failOn: 2}
	conn := &mockConn{driver: csvimport.DriverMySQL, tx: tx}

	n, err := writer.New().Insert(context.Background(), conn, "sales_data", sampleRows(5), 2)
	require.Error(t, err)

	assert.ErrorIs(t, err, csvimport.ErrInsertFailed)
	assert.Contains(t, err.Error(), "rows 3-4 of 5")
	assert.Zero(t, n)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestInsert_BeginFailure(t *testing.T) {
	conn := &mockConn{driver: csvimport.DriverPostgres, beginErr: errors.New("conn busy")}

	_, err := writer.New().Insert(context.Background(), conn, "sales_data", sampleRows(1), 10)
	assert.ErrorIs(t, err, csvimport.ErrInsertFailed)
}

func TestInsert_EmptyIsNoop(t *testing.T) {
	tx := &mockTx{}
	conn := &mockConn{driver: csvimport.DriverPostgres, tx: tx}

	n, err := writer.New().Insert(context.Background(), conn, "sales_data", nil, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, tx.statements)
	assert.False(t, tx.committed)
}

func TestInsert_InvalidTable(t *testing.T) {
	conn := &mockConn{driver: csvimport.DriverSQLite, tx: &mockTx{}}

	_, err := writer.New().Insert(context.Background(), conn, "x; DROP TABLE y", sampleRows(1), 10)
	assert.ErrorIs(t, err, csvimport.ErrInvalidConfig)
}

func TestInsert_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/roundtrip.sqlite"
	cfg := &csvimport.ConnectionConfig{Driver: csvimport.DriverSQLite, Path: path}

	conn, err := db.NewSQLConnector(cfg).Connect(ctx)
	require.NoError(t, err)
	defer conn.Close(ctx)

	require.NoError(t, schema.New().Ensure(ctx, conn, "sales_data"))

	rows := []csvimport.SalesRow{
		{ProductName: "Widget", Quantity: 3, Price: decimal.RequireFromString("9.99"), SaleDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{ProductName: "Gadget", Quantity: -2, Price: decimal.RequireFromString("1234.50"), SaleDate: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{ProductName: "Ünïcode ☕", Quantity: 0, Price: decimal.Zero, SaleDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
	}

	n, err := writer.New().Insert(ctx, conn, "sales_data", rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Read back through database/sql directly.
	sqlDB := openSQLite(t, path)
	got, err := sqlDB.QueryContext(ctx,
		`SELECT product_name, quantity, CAST(price AS TEXT), CAST(sale_date AS TEXT) FROM sales_data ORDER BY id`)
	require.NoError(t, err)
	defer got.Close()

	var i int
	for got.Next() {
		var name, price, date string
		var qty int32
		require.NoError(t, got.Scan(&name, &qty, &price, &date))

		want := rows[i]
		assert.Equal(t, want.ProductName, name)
		assert.Equal(t, want.Quantity, qty)
		assert.True(t, decimal.RequireFromString(price).Round(2).Equal(want.Price.Round(2)), "price %s", price)
		assert.Equal(t, want.SaleDate.Format(csvimport.DateLayout), date)
		i++
	}
	require.NoError(t, got.Err())
	assert.Equal(t, len(rows), i)
}
