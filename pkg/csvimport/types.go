package csvimport

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ImportConfig contains all parameters needed for one import run.
type ImportConfig struct {
	// SourcePath is the delimited text file to import.
	SourcePath string

	// Table is the destination table, optionally schema-qualified (Postgres only).
	Table string

	// Delimiter separates fields in the source file.
	Delimiter rune

	// Encoding is the text encoding of the source file (utf-8, utf-16, latin1, windows-1252).
	Encoding string

	// BatchSize is the maximum number of rows per INSERT statement.
	BatchSize int

	// DryRun validates the file without connecting to the database.
	DryRun bool

	// Timeout is the global timeout for the entire run.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool

	// Connection is the destination database. Required unless DryRun is set.
	Connection *ConnectionConfig
}

// Validate checks if the ImportConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *ImportConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.SourcePath) == "" {
		errs = append(errs, fmt.Errorf("SourcePath is required: %w", ErrInvalidConfig))
	}

	if strings.TrimSpace(c.Table) == "" {
		errs = append(errs, fmt.Errorf("Table is required: %w", ErrInvalidConfig))
	}

	if c.Delimiter == 0 || c.Delimiter == '"' || c.Delimiter == '\r' || c.Delimiter == '\n' ||
		c.Delimiter == utf8.RuneError {
		errs = append(errs, fmt.Errorf("delimiter %q is not usable: %w", c.Delimiter, ErrInvalidConfig))
	}

	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig))
	}

	if c.Connection == nil && !c.DryRun {
		errs = append(errs, fmt.Errorf("Connection is required unless DryRun is set: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ImportResult summarises a finished (or aborted) import run.
type ImportResult struct {
	RunID      uuid.UUID
	Source     string
	Table      string
	Total      int // data records read, header excluded
	Accepted   int
	Rejected   int
	Inserted   int64
	Rejections []RowError
	DryRun     bool
	Duration   time.Duration
}

// RejectionsByReason counts rejected rows per reason.
func (r ImportResult) RejectionsByReason() map[RejectReason]int {
	counts := make(map[RejectReason]int)
	for _, rej := range r.Rejections {
		counts[rej.Reason]++
	}
	return counts
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Driver   Driver
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Path is the database file for the sqlite driver.
	Path string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AWS RDS IAM authentication.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// Driver identifies the destination database engine.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
)

// ParseDriver normalises a driver name. Empty input selects Postgres.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "postgres", "postgresql", "pg":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "mysql", "mariadb":
		return DriverMySQL, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnsupportedDriver)
	}
}

// DefaultPort returns the conventional port for the driver, or 0 when none applies.
func (d Driver) DefaultPort() int {
	switch d {
	case DriverPostgres:
		return DefaultPostgresPort
	case DriverMySQL:
		return DefaultMySQLPort
	default:
		return 0
	}
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
