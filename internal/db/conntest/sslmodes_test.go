//go:build conntest

package conntest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

func TestSSLMode_Disable(t *testing.T) {
	config := parseStdConnString(t)
	config.SSLMode = "disable"
	conn, err := connect(t, config)
	require.NoError(t, err)
	pingSucceeds(t, conn)
}

func TestSSLMode_PreferFallsBackToPlain(t *testing.T) {
	config := parseStdConnString(t)
	config.SSLMode = "prefer"
	conn, err := connect(t, config)
	require.NoError(t, err)
	pingSucceeds(t, conn)
}

// The test container does not enable TLS, so require must fail.
func TestSSLMode_RequireWithoutServerTLS(t *testing.T) {
	config := parseStdConnString(t)
	config.SSLMode = "require"

	_, err := connect(t, config)
	require.Error(t, err)
	assert.ErrorIs(t, err, csvimport.ErrConnectionFailed)
}
