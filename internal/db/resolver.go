package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/config"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

const (
	defaultAppName   = "csvimport"
	defaultMySQLUser = "root"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Note: Password is NOT included as a CLI flag for security reasons.
// Use one of these methods instead:
//  1. $PGPASSWORD (or $MYSQL_PWD) environment variable, possibly from .env
//  2. .pgpass file (PostgreSQL standard)
//  3. Connection string with embedded password
type GranularConnFlags struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
	Path     string
}

// IsEmpty returns true if no connection-related granular flags were provided by the user.
// Note: Driver and Database are excluded from this check because they can be used
// to override the corresponding part of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "" && g.Path == ""
}

// AzureFlags represents Azure Entra ID CLI flags.
// These override the corresponding AZURE_* environment variables.
// Note: Client secret is NOT included as a CLI flag for security reasons.
// Use AZURE_CLIENT_SECRET environment variable instead.
type AzureFlags struct {
	Enabled  bool
	TenantID string // Overrides AZURE_TENANT_ID
	ClientID string // Overrides AZURE_CLIENT_ID
}

// AWSFlags represents AWS RDS IAM CLI flags.
type AWSFlags struct {
	Enabled bool
	Region  string // Overrides AWS_REGION
}

// GoogleFlags represents Google Cloud SQL IAM CLI flags.
type GoogleFlags struct {
	Enabled  bool
	Instance string // project:region:instance
}

// EnvVars represents the environment variables that influence connection resolution.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string // PostgreSQL server host
	PGPORT       string // PostgreSQL server port
	PGUSER       string // PostgreSQL username
	PGPASSWORD   string // PostgreSQL password (discouraged, use .pgpass instead)
	PGDATABASE   string // Default database name
	PGSSLMODE    string // SSL mode
	DATABASE_URL string // Full connection string (Heroku/Rails convention)

	// MySQL client conventions
	MYSQL_HOST     string
	MYSQL_TCP_PORT string
	MYSQL_PWD      string

	// csvimport specific
	CSVIMPORT_CONNECTION string // Full connection string, takes precedence over DATABASE_URL
	CSVIMPORT_DRIVER     string // postgres | sqlite | mysql
	CSVIMPORT_DB_PATH    string // sqlite database file

	// Azure Entra ID environment variables (Azure SDK standard names)
	AZURE_TENANT_ID     string // Azure AD tenant/directory ID
	AZURE_CLIENT_ID     string // Azure AD application/client ID
	AZURE_CLIENT_SECRET string // Azure AD client secret (for Service Principal auth)

	AWS_REGION string
}

// LoadFromEnvironment loads database and cloud provider environment variables.
// This follows standard PostgreSQL client behavior and Azure SDK conventions.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:               os.Getenv("PGHOST"),
		PGPORT:               os.Getenv("PGPORT"),
		PGUSER:               os.Getenv("PGUSER"),
		PGPASSWORD:           os.Getenv("PGPASSWORD"),
		PGDATABASE:           os.Getenv("PGDATABASE"),
		PGSSLMODE:            os.Getenv("PGSSLMODE"),
		DATABASE_URL:         os.Getenv("DATABASE_URL"),
		MYSQL_HOST:           os.Getenv("MYSQL_HOST"),
		MYSQL_TCP_PORT:       os.Getenv("MYSQL_TCP_PORT"),
		MYSQL_PWD:            os.Getenv("MYSQL_PWD"),
		CSVIMPORT_CONNECTION: os.Getenv("CSVIMPORT_CONNECTION"),
		CSVIMPORT_DRIVER:     os.Getenv("CSVIMPORT_DRIVER"),
		CSVIMPORT_DB_PATH:    os.Getenv("CSVIMPORT_DB_PATH"),
		AZURE_TENANT_ID:      os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:      os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:  os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:           os.Getenv("AWS_REGION"),
	}
}

// connectionString returns the first non-empty connection string from the environment.
func (e *EnvVars) connectionString() string {
	if e.CSVIMPORT_CONNECTION != "" {
		return e.CSVIMPORT_CONNECTION
	}
	return e.DATABASE_URL
}

// ResolveConnectionParams resolves connection parameters using this precedence:
//
// 1. Connection string flag (--connection) - if provided, parse and use directly
// 2. Granular flags (-h, -p, -U, -d, --driver, --db-path)
// 3. Environment variables (CSVIMPORT_CONNECTION / DATABASE_URL when no granular
// flags are set, otherwise PGHOST, PGPORT, ... per parameter)
// 4. csvimport.yaml connection section
// 5. Defaults (localhost, driver default port, test_db, postgres, prefer SSL)
//
// Cloud authentication is enabled only explicitly, by flag or by auth_method in
// csvimport.yaml; the matching environment variables then supply credentials.
//
// Returns an error wrapping csvimport.ErrInvalidConfig if BOTH --connection and
// granular flags are provided, or if inputs are malformed.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	azureFlags *AzureFlags,
	awsFlags *AWSFlags,
	googleFlags *GoogleFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*csvimport.ConnectionConfig, error) {
	// Validate inputs
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if azureFlags == nil {
		azureFlags = &AzureFlags{}
	}
	if awsFlags == nil {
		awsFlags = &AWSFlags{}
	}
	if googleFlags == nil {
		googleFlags = &GoogleFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	// Check for conflicts: connection string XOR granular flags
	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, --db-path)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/test_db\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U myuser -d mydb\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=myuser: %w",
			csvimport.ErrInvalidConfig,
		)
	}

	var cfg *csvimport.ConnectionConfig
	var err error

	connStr := connStringFlag
	if connStr == "" && granularFlags.IsEmpty() {
		connStr = envVars.connectionString()
	}

	if connStr != "" {
		cfg, err = resolveFromConnectionString(connStr, envVars)
		if err == nil && granularFlags.Database != "" && cfg.Driver != csvimport.DriverSQLite {
			cfg.Database = granularFlags.Database
		}
	} else {
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = csvimport.DefaultConnectTimeout
	}
	if cfg.AppName == "" && cfg.Driver == csvimport.DriverPostgres {
		cfg.AppName = defaultAppName
	}

	if err := applyCloudAuth(cfg, azureFlags, awsFlags, googleFlags, envVars, pc); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyCloudAuth sets the cloud authentication method on the config.
// CLI flags take precedence over environment variables, which take precedence
// over csvimport.yaml.
func applyCloudAuth(
	cfg *csvimport.ConnectionConfig,
	azure *AzureFlags,
	aws *AWSFlags,
	google *GoogleFlags,
	env *EnvVars,
	pc config.ConnectionConfig,
) error {
	method := strings.ToLower(strings.TrimSpace(pc.AuthMethod))
	enabled := 0
	for _, on := range []bool{azure.Enabled, aws.Enabled, google.Enabled} {
		if on {
			enabled++
		}
	}
	if enabled > 1 {
		return fmt.Errorf("only one of --azure, --aws and --google may be set: %w", csvimport.ErrInvalidConfig)
	}

	switch {
	case azure.Enabled || (enabled == 0 && (method == "azure" || method == "azure-entra-id")):
		cfg.AuthMethod = csvimport.AuthMethodAzureEntraID
		cfg.AzureTenantID = firstNonEmpty(azure.TenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(azure.ClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		// Client secret only comes from env var (no flag for security)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET

	case aws.Enabled || (enabled == 0 && (method == "aws" || method == "aws-iam")):
		cfg.AuthMethod = csvimport.AuthMethodAWSIAM
		cfg.AWSRegion = firstNonEmpty(aws.Region, env.AWS_REGION, pc.AWSRegion)

	case google.Enabled || (enabled == 0 && (method == "google" || method == "google-iam")):
		cfg.AuthMethod = csvimport.AuthMethodGoogleIAM
		cfg.GoogleInstance = firstNonEmpty(google.Instance, pc.GoogleInstance)

	case method == "" || method == "standard":
		cfg.AuthMethod = csvimport.AuthMethodStandard

	default:
		return fmt.Errorf("unknown auth_method %q in %s: %w", pc.AuthMethod, config.ConfigFileName, csvimport.ErrUnsupportedAuthMethod)
	}
	return nil
}

// resolveFromConnectionString parses a connection string.
//
// Environment variables are applied as fallbacks for parameters not specified
// in the connection string (following PostgreSQL standard behavior).
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*csvimport.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w: %w", err, csvimport.ErrInvalidConfig)
	}

	if cfg.Password == "" {
		cfg.Password = passwordFromEnv(cfg.Driver, envVars)
	}
	if cfg.Driver != csvimport.DriverSQLite && !strings.Contains(strings.ToLower(connStr), "sslmode") &&
		envVars.PGSSLMODE != "" {
		cfg.SSLMode = envVars.PGSSLMODE
	}
	if cfg.Driver == csvimport.DriverPostgres && cfg.Username == "" {
		cfg.Username = firstNonEmpty(envVars.PGUSER, csvimport.DefaultUser)
	}

	return cfg, nil
}

// resolveFromGranularParams builds ConnectionConfig from granular flags, environment
// variables and csvimport.yaml.
//
// Precedence for each parameter:
// 1. CLI flag (highest priority)
// 2. Environment variable
// 3. csvimport.yaml
// 4. Default value (lowest priority)
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	pc config.ConnectionConfig,
) (*csvimport.ConnectionConfig, error) {
	driver, err := csvimport.ParseDriver(firstNonEmpty(flags.Driver, envVars.CSVIMPORT_DRIVER, pc.Driver))
	if err != nil {
		return nil, err
	}

	cfg := &csvimport.ConnectionConfig{
		Driver:           driver,
		AuthMethod:       csvimport.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	if driver == csvimport.DriverSQLite {
		cfg.Path = firstNonEmpty(flags.Path, envVars.CSVIMPORT_DB_PATH, pc.Path, csvimport.DefaultSQLitePath)
		return cfg, nil
	}

	envHost, envPort, envUser, envDatabase := envVars.PGHOST, envVars.PGPORT, envVars.PGUSER, envVars.PGDATABASE
	defaultUser := csvimport.DefaultUser
	portVar := "PGPORT"
	if driver == csvimport.DriverMySQL {
		envHost, envPort, envUser, envDatabase = envVars.MYSQL_HOST, envVars.MYSQL_TCP_PORT, "", ""
		defaultUser = defaultMySQLUser
		portVar = "MYSQL_TCP_PORT"
	}

	// Host: flag > env > csvimport.yaml > default
	cfg.Host = firstNonEmpty(flags.Host, envHost, pc.Host, csvimport.DefaultHost)

	// Port: flag > env > csvimport.yaml > driver default
	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envPort != "":
		port, err := strconv.Atoi(envPort)
		if err != nil {
			return nil, fmt.Errorf("invalid $%s value '%s': must be an integer: %w", portVar, envPort, csvimport.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = driver.DefaultPort()
	}

	cfg.Username = firstNonEmpty(flags.Username, envUser, pc.Username, defaultUser)
	cfg.Password = passwordFromEnv(driver, envVars)
	cfg.Database = firstNonEmpty(flags.Database, envDatabase, pc.Database, csvimport.DefaultDatabase)

	// SSLMode: flag > PGSSLMODE > csvimport.yaml > default
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, csvimport.DefaultSSLMode)

	return cfg, nil
}

func passwordFromEnv(driver csvimport.Driver, envVars *EnvVars) string {
	switch driver {
	case csvimport.DriverPostgres:
		return envVars.PGPASSWORD
	case csvimport.DriverMySQL:
		return envVars.MYSQL_PWD
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
