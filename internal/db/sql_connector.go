package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// SQLConnector implements the Connector interface for the database/sql
// drivers: SQLite (modernc.org/sqlite) and MySQL (go-sql-driver/mysql).
type SQLConnector struct {
	config *csvimport.ConnectionConfig
	opts   options
}

// NewSQLConnector creates a connector for a database/sql backed driver.
func NewSQLConnector(config *csvimport.ConnectionConfig, opts ...Option) *SQLConnector {
	return &SQLConnector{config: config, opts: buildOptions(opts)}
}

// Connect opens and pings exactly one connection.
func (c *SQLConnector) Connect(ctx context.Context) (csvimport.DBConnection, error) {
	driverName, dsn, err := c.dataSource()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, wrapConnectionError(err, c.config)
	}
	db.SetMaxOpenConns(1)

	conn, err := NewSQLConnection(ctx, db, c.config.Driver)
	if err != nil {
		db.Close()
		return nil, wrapConnectionError(err, c.config)
	}

	if c.opts.logger != nil {
		c.opts.logger.Verbose("connected", "driver", string(c.config.Driver), "target", c.describe())
	}
	return conn, nil
}

func (c *SQLConnector) dataSource() (driverName, dsn string, err error) {
	switch c.config.Driver {
	case csvimport.DriverSQLite:
		return "sqlite", SQLiteDSN(c.config.Path), nil
	case csvimport.DriverMySQL:
		return "mysql", MySQLDSN(c.config), nil
	default:
		return "", "", fmt.Errorf("driver %q: %w", c.config.Driver, csvimport.ErrUnsupportedDriver)
	}
}

func (c *SQLConnector) describe() string {
	if c.config.Driver == csvimport.DriverSQLite {
		return c.config.Path
	}
	return net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port)) + "/" + c.config.Database
}

// SQLiteDSN builds a modernc.org/sqlite data source name for path.
// An empty path selects csvimport.DefaultSQLitePath.
func SQLiteDSN(path string) string {
	if path == "" {
		path = csvimport.DefaultSQLitePath
	}
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)"
}

// MySQLDSN builds a go-sql-driver/mysql data source name from config.
func MySQLDSN(config *csvimport.ConnectionConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = config.Username
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	cfg.DBName = config.Database
	cfg.Timeout = config.ConnectTimeout
	cfg.TLSConfig = mysqlTLSMode(config.SSLMode)

	if len(config.AdditionalParams) > 0 {
		cfg.Params = make(map[string]string, len(config.AdditionalParams))
		for k, v := range config.AdditionalParams {
			cfg.Params[k] = v
		}
	}

	return cfg.FormatDSN()
}

// mysqlTLSMode maps libpq sslmode values onto go-sql-driver/mysql tls values.
func mysqlTLSMode(sslMode string) string {
	switch sslMode {
	case "disable", "":
		return "false"
	case "allow", "prefer":
		return "preferred"
	case "require":
		return "skip-verify"
	default: // verify-ca, verify-full
		return "true"
	}
}
