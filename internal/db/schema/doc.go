// Package schema creates the destination table for imported sales rows.
//
// The table shape is fixed:
//
//	id            auto-increment primary key
//	product_name  VARCHAR(255)
//	quantity      INTEGER
//	price         DECIMAL(10, 2)
//	sale_date     DATE
//
// Ensure issues a single CREATE TABLE IF NOT EXISTS in the dialect of the
// connection it is given, outside any transaction, so calling it twice is safe
// and an existing table is never altered.
//
// Table names are validated before use and quoted per dialect (pgx.Identifier
// for PostgreSQL). Only PostgreSQL accepts a schema-qualified name.
//
// # Example Usage
//
//	ensurer := schema.New()
//	if err := ensurer.Ensure(ctx, conn, "sales_data"); err != nil {
//	    // errors.Is(err, csvimport.ErrSchemaFailed)
//	}
package schema
