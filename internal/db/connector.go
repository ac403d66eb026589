package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Option customises a connector built by NewConnector.
type Option func(*options)

type options struct {
	logger csvimport.Logger
}

// WithLogger routes server notices and connection diagnostics to logger.
func WithLogger(logger csvimport.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PostgresConnector implements the Connector interface for standard
// username/password authentication. It makes exactly one connection attempt.
type PostgresConnector struct {
	config *csvimport.ConnectionConfig
	opts   options
}

// NewPostgresConnector creates a new PostgresConnector with the given configuration.
func NewPostgresConnector(config *csvimport.ConnectionConfig, opts ...Option) *PostgresConnector {
	return &PostgresConnector{
		config: config,
		opts:   buildOptions(opts),
	}
}

// Connect opens a single pgx connection using standard authentication.
func (c *PostgresConnector) Connect(ctx context.Context) (csvimport.DBConnection, error) {
	return connectPostgres(ctx, c.config, c.opts, nil)
}

// connectPostgres opens one *pgx.Conn for cfg. configure may adjust the parsed
// pgx config (dialer, password) before the attempt.
func connectPostgres(
	ctx context.Context,
	cfg *csvimport.ConnectionConfig,
	opts options,
	configure func(*pgx.ConnConfig),
) (*PgxConnection, error) {
	connConfig, err := pgx.ParseConfig(BuildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", csvimport.ErrInvalidConfig)
	}

	if opts.logger != nil {
		logger := opts.logger
		connConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
			logger.Verbose("server notice", "severity", notice.Severity, "message", notice.Message)
		}
	}

	if configure != nil {
		configure(connConfig)
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg)
	}

	return NewPgxConnection(conn), nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's Driver and AuthMethod.
func NewConnector(config *csvimport.ConnectionConfig, opts ...Option) (csvimport.Connector, error) {
	switch config.Driver {
	case csvimport.DriverPostgres, "":
	case csvimport.DriverSQLite, csvimport.DriverMySQL:
		if config.AuthMethod != csvimport.AuthMethodStandard {
			return nil, fmt.Errorf("%s auth is only available for postgres, not %s: %w",
				config.AuthMethod, config.Driver, csvimport.ErrUnsupportedAuthMethod)
		}
		return NewSQLConnector(config, opts...), nil
	default:
		return nil, fmt.Errorf("driver %q: %w", config.Driver, csvimport.ErrUnsupportedDriver)
	}

	switch config.AuthMethod {
	case csvimport.AuthMethodStandard:
		return NewPostgresConnector(config, opts...), nil
	case csvimport.AuthMethodAWSIAM:
		return newAWSConnector(config, opts...)
	case csvimport.AuthMethodGoogleIAM:
		return newGoogleConnector(config, opts...)
	case csvimport.AuthMethodAzureEntraID:
		return newAzureConnector(config, opts...)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, csvimport.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError wraps raw driver connection errors with actionable guidance.
// The result always matches csvimport.ErrConnectionFailed.
func wrapConnectionError(err error, cfg *csvimport.ConnectionConfig) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var guided error
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		guided = fmt.Errorf(`connection refused to %s

Possible causes:
  - The database server is not running (check: %s)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, addr, readinessHint(cfg), err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		guided = fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, cfg.Host, err)

	case strings.Contains(errStr, "password authentication failed") || strings.Contains(errStr, "access denied"):
		guided = fmt.Errorf(`authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD, ~/.pgpass or .env)
  - Wrong username
  - User does not have access to the database

Original error: %w`, cfg.Database, err)

	case strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "unknown database"):
		guided = fmt.Errorf(`database "%s" does not exist

Create it first, for example:
  %s

Original error: %w`, cfg.Database, createDatabaseHint(cfg), err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		guided = fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		guided = fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		guided = fmt.Errorf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached on the server
  - Stale connections from previous runs

Original error: %w`, cfg.Database, err)

	default:
		guided = fmt.Errorf("failed to connect to database: %w", err)
	}

	return fmt.Errorf("%w: %w", csvimport.ErrConnectionFailed, guided)
}

func readinessHint(cfg *csvimport.ConnectionConfig) string {
	if cfg.Driver == csvimport.DriverMySQL {
		return fmt.Sprintf("mysqladmin ping -h %s -P %d", cfg.Host, cfg.Port)
	}
	return fmt.Sprintf("pg_isready -h %s -p %d", cfg.Host, cfg.Port)
}

func createDatabaseHint(cfg *csvimport.ConnectionConfig) string {
	if cfg.Driver == csvimport.DriverMySQL {
		return fmt.Sprintf("mysql -e 'CREATE DATABASE %s'", cfg.Database)
	}
	return fmt.Sprintf("createdb %s", cfg.Database)
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
func newAWSConnector(config *csvimport.ConnectionConfig, opts ...Option) (csvimport.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM", opts...), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Google Cloud SQL IAM authentication.
func newGoogleConnector(config *csvimport.ConnectionConfig, opts ...Option) (csvimport.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", csvimport.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", csvimport.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance, opts...), nil
}

// newAzureConnector creates a token-based connector with the Azure Entra ID token provider.
// If explicit credentials (tenant, client, secret) are provided, uses Service Principal auth.
// Otherwise, falls back to DefaultAzureCredential chain.
func newAzureConnector(config *csvimport.ConnectionConfig, opts ...Option) (csvimport.Connector, error) {
	var tokenProvider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(
			config.AzureTenantID,
			config.AzureClientID,
			config.AzureClientSecret,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewTokenBasedConnector(config, tokenProvider, "Azure", opts...), nil
}
