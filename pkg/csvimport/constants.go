package csvimport

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Import completed (or nothing to import without --fail-on-empty)
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to database
	ExitSchemaError     = 12 // Destination table could not be created
	ExitInsertFailed    = 13 // Batch insert failed, nothing was imported
	ExitInputMissing    = 14 // Source file not found
	ExitInputUnreadable = 15 // Source file could not be read or parsed
	ExitNoValidRows     = 16 // No row passed validation (only with --fail-on-empty)
)

const (
	// DefaultSourceFile is the source file used when neither config nor flags name one.
	DefaultSourceFile = "sample_data.csv"

	// DefaultTable is the destination table name.
	DefaultTable = "sales_data"

	// DefaultLogFile is the file half of the dual log sink.
	DefaultLogFile = "csv_import.log"

	// DefaultDatabase, DefaultUser and DefaultHost mirror a local development server.
	DefaultDatabase = "test_db"
	DefaultUser     = "postgres"
	DefaultHost     = "localhost"

	// DefaultPostgresPort and DefaultMySQLPort are used when no port is configured.
	DefaultPostgresPort = 5432
	DefaultMySQLPort    = 3306

	// DefaultSQLitePath is the database file used by the sqlite driver.
	DefaultSQLitePath = "test_db.sqlite"

	// DefaultSSLMode matches libpq's default.
	DefaultSSLMode = "prefer"

	// DefaultBatchSize is the maximum number of rows per INSERT statement.
	// All statements of one import still run in a single transaction.
	DefaultBatchSize = 1000

	// DefaultDelimiter separates fields in the source file.
	DefaultDelimiter = ','

	// DefaultEncoding is the text encoding of the source file.
	DefaultEncoding = "utf-8"

	// DateLayout is the only accepted format for sale_date.
	DateLayout = "2006-01-02"

	// DefaultTimeout guards against indefinite hangs (network, locks).
	DefaultTimeout = 5 * time.Minute

	// DefaultConnectTimeout bounds the single connection attempt.
	DefaultConnectTimeout = 10 * time.Second

	// MaxRowPreviewLength caps the raw row content echoed into warnings.
	MaxRowPreviewLength = 200
)

// Required source columns.
const (
	ColumnProductName = "product_name"
	ColumnQuantity    = "quantity"
	ColumnPrice       = "price"
	ColumnSaleDate    = "sale_date"
)

// RequiredColumns lists the header columns every source file must carry,
// in the order they are validated and inserted.
var RequiredColumns = []string{ColumnProductName, ColumnQuantity, ColumnPrice, ColumnSaleDate}
