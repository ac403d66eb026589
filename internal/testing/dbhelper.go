package testing

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db/schema"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db/writer"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/services"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/testinfra"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/validate"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5"
)

// TestConnEnvVar overrides the auto-started container with an existing server.
const TestConnEnvVar = "CSVIMPORT_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		ctx := context.Background()
		container, err := testinfra.StartPostgres(ctx)
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: CSVIMPORT_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnvVar); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnvVar, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
// Returns the test connection string if available, otherwise skips the test.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// NewTestImporter creates an Importer wired with the production connector
// factory, schema ensurer, writer and validator.
func NewTestImporter(t *testing.T, logger csvimport.Logger) csvimport.Importer {
	t.Helper()

	return services.NewImportService(
		func(cfg *csvimport.ConnectionConfig) (csvimport.Connector, error) {
			return db.NewConnector(cfg, db.WithLogger(logger))
		},
		schema.New(),
		writer.New(),
		validate.New(validate.Options{}),
		logger,
	)
}

// TestConnectionConfig parses connString and points it at dbName.
func TestConnectionConfig(t *testing.T, connString, dbName string) *csvimport.ConnectionConfig {
	t.Helper()

	config, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	config.Database = dbName
	return config
}

// CreateTestDB creates a test database with the given name.
// Returns a cleanup function that should be called with t.Cleanup().
func CreateTestDB(t *testing.T, connString, dbName string) func() {
	t.Helper()

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect for test DB creation: %v", err)
	}
	defer conn.Close(ctx)

	// A previous aborted run may have left the database behind.
	dropDatabase(ctx, t, conn, dbName)

	if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{dbName}.Sanitize())); err != nil {
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}
	t.Logf("Created test database %s", dbName)

	return func() {
		CleanupTestDB(t, connString, dbName)
	}
}

// CleanupTestDB drops the test database.
// Safe to call multiple times (uses DROP DATABASE IF EXISTS).
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		t.Logf("Warning: Failed to connect for cleanup: %v", err)
		return
	}
	defer conn.Close(ctx)

	dropDatabase(ctx, t, conn, dbName)
}

func dropDatabase(ctx context.Context, t *testing.T, conn *pgx.Conn, dbName string) {
	t.Helper()

	terminateQuery := `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`
	if _, err := conn.Exec(ctx, terminateQuery, dbName); err != nil {
		t.Logf("Warning: Failed to terminate connections to %s: %v", dbName, err)
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", pgx.Identifier{dbName}.Sanitize())); err != nil {
		t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
	}
}

// GetTestPgxConn opens a raw pgx connection to dbName for assertions.
// The connection is closed when the test completes.
func GetTestPgxConn(t *testing.T, connString, dbName string) *pgx.Conn {
	t.Helper()

	ctx := context.Background()
	target := db.BuildConnectionString(TestConnectionConfig(t, connString, dbName))

	conn, err := pgx.Connect(ctx, target)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", dbName, err)
	}
	t.Cleanup(func() {
		conn.Close(context.Background())
	})
	return conn
}

// GetTestConnection opens a csvimport.DBConnection to dbName through the
// production connector. The connection is closed when the test completes.
func GetTestConnection(t *testing.T, connString, dbName string) csvimport.DBConnection {
	t.Helper()

	connector, err := db.NewConnector(TestConnectionConfig(t, connString, dbName))
	if err != nil {
		t.Fatalf("Failed to create connector: %v", err)
	}

	conn, err := connector.Connect(context.Background())
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", dbName, err)
	}
	t.Cleanup(func() {
		conn.Close(context.Background())
	})
	return conn
}
