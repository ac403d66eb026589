package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column definitions after the dialect-specific id column.
const columnsDDL = "product_name VARCHAR(255), quantity %s, price DECIMAL(10, 2), sale_date DATE"

// Ensurer implements csvimport.SchemaEnsurer using the DBConnection abstraction.
// Stateless and safe for concurrent use; thread safety depends on the injected DBConnection.
type Ensurer struct{}

// New creates a new Ensurer.
func New() *Ensurer {
	return &Ensurer{}
}

// Ensure creates the destination table if it does not exist.
func (e *Ensurer) Ensure(ctx context.Context, conn csvimport.DBConnection, table string) error {
	stmt, err := CreateTableSQL(conn.Driver(), table)
	if err != nil {
		return err
	}

	if err := conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("%w: failed to create table %q: %w", csvimport.ErrSchemaFailed, table, err)
	}
	return nil
}

// CreateTableSQL returns the idempotent DDL for table in driver's dialect.
func CreateTableSQL(driver csvimport.Driver, table string) (string, error) {
	quoted, err := QuoteTable(driver, table)
	if err != nil {
		return "", err
	}

	var id, quantity string
	switch driver {
	case csvimport.DriverPostgres:
		id, quantity = "id SERIAL PRIMARY KEY", "INTEGER"
	case csvimport.DriverSQLite:
		id, quantity = "id INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER"
	case csvimport.DriverMySQL:
		id, quantity = "id INT AUTO_INCREMENT PRIMARY KEY", "INT"
	default:
		return "", fmt.Errorf("driver %q: %w", driver, csvimport.ErrUnsupportedDriver)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s, %s)", quoted, id, fmt.Sprintf(columnsDDL, quantity)), nil
}

// QuoteTable validates table and quotes it for driver.
// "schema.table" is accepted for PostgreSQL only.
func QuoteTable(driver csvimport.Driver, table string) (string, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 || (len(parts) == 2 && driver != csvimport.DriverPostgres) {
		return "", fmt.Errorf("table name %q: schema-qualified names are only supported for postgres: %w",
			table, csvimport.ErrInvalidConfig)
	}
	for _, p := range parts {
		if !identifierPattern.MatchString(p) {
			return "", fmt.Errorf("table name %q: %q must match %s: %w",
				table, p, identifierPattern.String(), csvimport.ErrInvalidConfig)
		}
	}

	switch driver {
	case csvimport.DriverPostgres:
		return pgx.Identifier(parts).Sanitize(), nil
	case csvimport.DriverSQLite:
		return `"` + parts[0] + `"`, nil
	case csvimport.DriverMySQL:
		return "`" + parts[0] + "`", nil
	default:
		return "", fmt.Errorf("driver %q: %w", driver, csvimport.ErrUnsupportedDriver)
	}
}

// Verify Ensurer implements the SchemaEnsurer interface at compile time
var _ csvimport.SchemaEnsurer = (*Ensurer)(nil)
