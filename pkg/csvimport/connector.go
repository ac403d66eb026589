package csvimport

import "context"

// Connector is a unified interface for establishing a database connection.
// Different implementations handle drivers and authentication methods
// (standard credentials, cloud IAM, embedded SQLite, etc.).
type Connector interface {
	// Connect makes exactly one attempt to open a connection.
	// The returned connection must be closed by the caller.
	Connect(ctx context.Context) (DBConnection, error)
}

// DBConnection is a single live connection to the destination database.
// It is not safe for concurrent use; the importer owns it for the whole run.
type DBConnection interface {
	// Driver reports the SQL dialect spoken by this connection.
	Driver() Driver

	// Exec executes a statement outside any transaction (autocommit).
	Exec(ctx context.Context, sql string, args ...any) error

	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the connection. Calling it more than once is a no-op.
	Close(ctx context.Context) error
}

// Tx is an open transaction on a DBConnection.
type Tx interface {
	// Exec executes a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	Commit(ctx context.Context) error

	// Rollback aborts the transaction. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// SchemaEnsurer makes sure the destination table exists before rows are inserted.
type SchemaEnsurer interface {
	// Ensure creates table if absent. It is idempotent.
	Ensure(ctx context.Context, conn DBConnection, table string) error
}

// RowWriter inserts validated rows into the destination table.
type RowWriter interface {
	// Insert writes every row in one transaction, at most batchSize rows per
	// statement, and returns the number of rows inserted. Either all rows land or none do.
	Insert(ctx context.Context, conn DBConnection, table string, rows []SalesRow, batchSize int) (int64, error)
}

// Importer runs one import of a source file into the destination table.
type Importer interface {
	Import(ctx context.Context, cfg ImportConfig) (ImportResult, error)
}
