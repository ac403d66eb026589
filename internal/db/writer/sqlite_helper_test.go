package writer_test

import (
	"database/sql"
	"testing"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", db.SQLiteDSN(path))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}
