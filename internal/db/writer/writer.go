// Package writer inserts validated sales rows in a single transaction.
//
// Rows are sent as multi-row parameterized INSERT statements of at most the
// requested batch size. The batch size is further capped so that one statement
// never exceeds the driver's bind-parameter limit. A failure in any statement
// rolls back the whole transaction.
package writer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db/schema"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5/pgtype"
)

const columnsPerRow = 4

// Bind-parameter limits per statement.
const (
	postgresMaxParams = 65535
	mysqlMaxParams    = 65535
	sqliteMaxParams   = 32766
)

// Writer implements csvimport.RowWriter.
type Writer struct{}

// New creates a new Writer.
func New() *Writer {
	return &Writer{}
}

// Insert writes rows into table inside one transaction.
func (w *Writer) Insert(
	ctx context.Context,
	conn csvimport.DBConnection,
	table string,
	rows []csvimport.SalesRow,
	batchSize int,
) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	driver := conn.Driver()
	quoted, err := schema.QuoteTable(driver, table)
	if err != nil {
		return 0, err
	}
	size := EffectiveBatchSize(driver, batchSize)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %w", csvimport.ErrInsertFailed, err)
	}
	// No-op once committed.
	defer tx.Rollback(ctx) //nolint:errcheck

	var inserted int64
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))

		stmt, args := BuildInsert(driver, quoted, rows[start:end])
		n, err := tx.Exec(ctx, stmt, args...)
		if err != nil {
			return 0, fmt.Errorf("%w: rows %d-%d of %d: %w", csvimport.ErrInsertFailed, start+1, end, len(rows), err)
		}
		inserted += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: failed to commit: %w", csvimport.ErrInsertFailed, err)
	}
	return inserted, nil
}

// EffectiveBatchSize clamps requested to the driver's parameter limit.
// A non-positive request selects csvimport.DefaultBatchSize.
func EffectiveBatchSize(driver csvimport.Driver, requested int) int {
	if requested <= 0 {
		requested = csvimport.DefaultBatchSize
	}

	limit := postgresMaxParams
	switch driver {
	case csvimport.DriverMySQL:
		limit = mysqlMaxParams
	case csvimport.DriverSQLite:
		limit = sqliteMaxParams
	}
	return min(requested, limit/columnsPerRow)
}

// BuildInsert renders one multi-row INSERT for rows and its arguments.
// quotedTable must already be quoted for driver.
func BuildInsert(driver csvimport.Driver, quotedTable string, rows []csvimport.SalesRow) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quotedTable)
	sb.WriteString(" (product_name, quantity, price, sale_date) VALUES ")

	args := make([]any, 0, len(rows)*columnsPerRow)
	param := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < columnsPerRow; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			if driver == csvimport.DriverPostgres {
				sb.WriteByte('$')
				sb.WriteString(strconv.Itoa(param))
			} else {
				sb.WriteByte('?')
			}
			param++
		}
		sb.WriteByte(')')

		args = append(args, encodeRow(driver, row)...)
	}

	return sb.String(), args
}

// encodeRow converts a row to driver arguments.
// pgx receives typed numeric and date values; database/sql drivers get text.
func encodeRow(driver csvimport.Driver, row csvimport.SalesRow) []any {
	if driver == csvimport.DriverPostgres {
		return []any{
			row.ProductName,
			row.Quantity,
			pgtype.Numeric{Int: row.Price.Coefficient(), Exp: row.Price.Exponent(), Valid: true},
			pgtype.Date{Time: row.SaleDate, Valid: true},
		}
	}
	return []any{
		row.ProductName,
		int64(row.Quantity),
		row.Price.StringFixed(2),
		row.SaleDate.Format(csvimport.DateLayout),
	}
}

// Verify Writer implements the RowWriter interface at compile time
var _ csvimport.RowWriter = (*Writer)(nil)
