package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5"
)

// GoogleCloudSQLConnector implements the Connector interface for Google Cloud SQL
// using IAM database authentication via the Cloud SQL Go Connector.
//
// The dialer is released when the returned connection is closed.
type GoogleCloudSQLConnector struct {
	config   *csvimport.ConnectionConfig
	instance string
	opts     options
}

// NewGoogleCloudSQLConnector creates a connector for Google Cloud SQL IAM authentication.
// instance is the instance connection name in format: project:region:instance
func NewGoogleCloudSQLConnector(config *csvimport.ConnectionConfig, instance string, opts ...Option) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{
		config:   config,
		instance: instance,
		opts:     buildOptions(opts),
	}
}

// Connect opens a single connection through the Cloud SQL dialer.
// The Cloud SQL Go Connector handles authentication and TLS.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (csvimport.DBConnection, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Cloud SQL dialer: %w", csvimport.ErrConnectionFailed, err)
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s dbname=%s sslmode=disable",
		c.instance,
		c.config.Username,
		c.config.Database,
	)

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("failed to parse connection config: %w", csvimport.ErrInvalidConfig)
	}

	connConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		dialer.Close()
		return nil, wrapConnectionError(err, c.config)
	}

	adapter := NewPgxConnection(conn)
	adapter.onClose = func() { dialer.Close() }
	return adapter, nil
}
