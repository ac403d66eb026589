package services_test

import (
	"context"
	"testing"
	"time"

	testhelpers "github.com/TimmyIudin/csv-to-postgres-pipeline/internal/testing"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport_PostgresRoundTrip(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	dbName := "csvimport_import_test"
	t.Cleanup(testhelpers.CreateTestDB(t, connString, dbName))

	path := writeCSV(t, header+
		"Widget,10,9.99,2024-01-15\n"+
		"Gadget,abc,1.00,2024-01-16\n"+
		"Sprocket,-3,0.005,2023-12-31\n")

	cfg := importConfig(path)
	cfg.Connection = testhelpers.TestConnectionConfig(t, connString, dbName)

	logs := testhelpers.NewLogCapture()
	result, err := testhelpers.NewTestImporter(t, logs).Import(context.Background(), cfg)
	require.NoError(t, err, logs.String())

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, int64(2), result.Inserted)

	ctx := context.Background()
	conn := testhelpers.GetTestPgxConn(t, connString, dbName)
	rows, err := conn.Query(ctx, `SELECT product_name, quantity, price, sale_date FROM sales_data ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	type stored struct {
		name  string
		qty   int32
		price decimal.Decimal
		date  time.Time
	}
	var got []stored
	for rows.Next() {
		var name string
		var qty int32
		var price pgtype.Numeric
		var date pgtype.Date
		require.NoError(t, rows.Scan(&name, &qty, &price, &date))
		got = append(got, stored{name, qty, decimal.NewFromBigInt(price.Int, price.Exp), date.Time})
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)

	assert.Equal(t, "Widget", got[0].name)
	assert.Equal(t, int32(10), got[0].qty)
	assert.True(t, got[0].price.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, got[0].date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Sprocket", got[1].name)
	assert.Equal(t, int32(-3), got[1].qty)
	assert.True(t, got[1].price.Equal(decimal.RequireFromString("0.01")), "price %s", got[1].price)
}

func TestImport_PostgresNoValidRowsLeavesTableEmpty(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	dbName := "csvimport_import_empty_test"
	t.Cleanup(testhelpers.CreateTestDB(t, connString, dbName))

	path := writeCSV(t, header+"Widget,ten,9.99,2024-01-15\n")
	cfg := importConfig(path)
	cfg.Connection = testhelpers.TestConnectionConfig(t, connString, dbName)

	_, err := testhelpers.NewTestImporter(t, testhelpers.NewLogCapture()).Import(context.Background(), cfg)
	require.ErrorIs(t, err, csvimport.ErrNoValidRows)

	var count int
	conn := testhelpers.GetTestPgxConn(t, connString, dbName)
	require.NoError(t, conn.QueryRow(context.Background(), `SELECT COUNT(*) FROM sales_data`).Scan(&count))
	assert.Zero(t, count, "the table exists but no row was inserted")
}

func TestImport_PostgresWrongPasswordIsConnectionError(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)

	path := writeCSV(t, header+"Widget,10,9.99,2024-01-15\n")
	cfg := importConfig(path)
	cfg.Connection = testhelpers.TestConnectionConfig(t, connString, "postgres")
	cfg.Connection.Password = "definitely-wrong"

	_, err := testhelpers.NewTestImporter(t, testhelpers.NewLogCapture()).Import(context.Background(), cfg)
	require.ErrorIs(t, err, csvimport.ErrConnectionFailed)
	assert.Equal(t, csvimport.ExitConnectionError, csvimport.ExitCodeForError(err))
}
