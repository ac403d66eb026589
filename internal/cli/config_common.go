package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/config"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/logging"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

// Environment variables for the non-connection settings.
const (
	envSourceFile = "CSVIMPORT_FILE"
	envTable      = "CSVIMPORT_TABLE"
	envLogFile    = "CSVIMPORT_LOG_FILE"
)

// logFileDisabled turns off the file half of the log sink.
const logFileDisabled = "none"

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	driver         string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	dbPath         string
	azure          bool
	azureTenantID  string
	azureClientID  string
	aws            bool
	awsRegion      string
	google         bool
	googleInstance string
}

// importFlagValues holds every flag shared by run and check.
type importFlagValues struct {
	conn        connectionFlags
	file        string
	table       string
	delimiter   string
	encoding    string
	batchSize   int
	logFile     string
	logLevel    string
	logFormat   string
	dryRun      bool
	failOnEmpty bool
	requireName bool
	timeout     time.Duration
}

// runSettings is everything the CLI resolves besides the ImportConfig itself.
type runSettings struct {
	FailOnEmpty bool
	RequireName bool
	Log         logging.Options
}

func registerSourceFlags(cmd *cobra.Command, f *importFlagValues) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "",
		"Source file to import\n"+
			"Precedence: --file > $CSVIMPORT_FILE > source.path > "+csvimport.DefaultSourceFile)
	cmd.Flags().StringVar(&f.table, "table", "",
		"Destination table, schema-qualified names are accepted for postgres\n"+
			"Precedence: --table > $CSVIMPORT_TABLE > table > "+csvimport.DefaultTable)
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "",
		"Field delimiter, a single character or \"tab\" (default \",\")")
	cmd.Flags().StringVar(&f.encoding, "encoding", "",
		"Source text encoding: utf-8|utf-16|utf-16le|utf-16be|latin1|windows-1252 (default utf-8)")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", csvimport.DefaultBatchSize,
		"Maximum rows per INSERT statement, capped by the driver's parameter limit")
	cmd.Flags().StringVar(&f.logFile, "log-file", "",
		"Log file written alongside stdout, \"none\" disables it (default "+csvimport.DefaultLogFile+")")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Minimum log level: debug|info|warn|error (default info)")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log line format: text|json (default text)")
	cmd.Flags().BoolVar(&f.failOnEmpty, "fail-on-empty", false,
		fmt.Sprintf("Exit with code %d when no row is valid instead of 0", csvimport.ExitNoValidRows))
	cmd.Flags().BoolVar(&f.requireName, "require-name", false,
		"Reject rows whose product_name is blank")
	cmd.Flags().DurationVar(&f.timeout, "timeout", csvimport.DefaultTimeout,
		"Catastrophic failure protection timeout for the whole run\n"+
			"Examples: 30s, 5m, 1h30m")
}

func registerConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	cmd.Flags().StringVar(&f.connection, "connection", "",
		"Connection string (postgres URI, ADO.NET, mysql://, sqlite://)\n"+
			"Mutually exclusive with granular flags (--host, --port, --username, --db-path).\n"+
			"Alternative: $CSVIMPORT_CONNECTION or $DATABASE_URL")
	cmd.Flags().StringVar(&f.driver, "driver", "",
		"Database driver: postgres|sqlite|mysql (default postgres, or $CSVIMPORT_DRIVER)")

	// Precedence: flag > environment variable > csvimport.yaml > default
	cmd.Flags().StringVarP(&f.host, "host", "H", "",
		"Database server host\n"+
			"Precedence: --host > $PGHOST > connection.host > localhost")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0,
		"Database server port\n"+
			"Precedence: --port > $PGPORT > connection.port > 5432 (3306 for mysql)")
	cmd.Flags().StringVarP(&f.username, "username", "U", "",
		"Database user (default: $PGUSER or postgres)")
	cmd.Flags().StringVarP(&f.database, "database", "d", "",
		"Database name (default: $PGDATABASE or test_db)")
	cmd.Flags().StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")
	cmd.Flags().StringVar(&f.dbPath, "db-path", "",
		"SQLite database file (default: $CSVIMPORT_DB_PATH or "+csvimport.DefaultSQLitePath+")")

	cmd.Flags().BoolVar(&f.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	cmd.Flags().StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	cmd.Flags().StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	cmd.Flags().BoolVar(&f.aws, "aws", false, "Enable AWS RDS IAM authentication")
	cmd.Flags().StringVar(&f.awsRegion, "aws-region", "", "AWS region (overrides $AWS_REGION)")
	cmd.Flags().BoolVar(&f.google, "google", false, "Enable Google Cloud SQL IAM authentication")
	cmd.Flags().StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
}

// loadProjectConfig loads godotenv and project configuration.
// Without an explicit path a missing ./csvimport.yaml is not an error.
func loadProjectConfig(path string) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = "."
	}

	projectCfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w: %w", path, err, csvimport.ErrInvalidConfig)
	}
	return projectCfg, nil
}

// resolveConnection resolves the destination from flags, environment and project config.
func resolveConnection(flags connectionFlags, projectCfg *config.ProjectConfig) (*csvimport.ConnectionConfig, error) {
	granularFlags := &db.GranularConnFlags{
		Driver:   flags.driver,
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		SSLMode:  flags.sslMode,
		Path:     flags.dbPath,
	}

	azureFlags := &db.AzureFlags{
		Enabled:  flags.azure,
		TenantID: flags.azureTenantID,
		ClientID: flags.azureClientID,
	}

	awsFlags := &db.AWSFlags{
		Enabled: flags.aws,
		Region:  flags.awsRegion,
	}

	googleFlags := &db.GoogleFlags{
		Enabled:  flags.google,
		Instance: flags.googleInstance,
	}

	return db.ResolveConnectionParams(
		flags.connection,
		granularFlags,
		azureFlags,
		awsFlags,
		googleFlags,
		db.LoadFromEnvironment(),
		projectCfg,
	)
}

// buildImportConfig merges flags, environment, project config and defaults.
// The connection is resolved only when the run will actually connect.
func buildImportConfig(
	cmd *cobra.Command,
	f *importFlagValues,
	projectCfg *config.ProjectConfig,
	verbose bool,
) (csvimport.ImportConfig, runSettings, error) {
	var pc config.ProjectConfig
	if projectCfg != nil {
		pc = *projectCfg
	}
	changed := cmd.Flags().Changed

	delimiter, err := config.ParseDelimiter(firstNonEmpty(f.delimiter, pc.Source.Delimiter), csvimport.DefaultDelimiter)
	if err != nil {
		return csvimport.ImportConfig{}, runSettings{}, fmt.Errorf("%w: %w", err, csvimport.ErrInvalidConfig)
	}

	timeout := f.timeout
	if !changed("timeout") {
		timeout, err = config.ParseTimeout(pc.Timeout, csvimport.DefaultTimeout)
		if err != nil {
			return csvimport.ImportConfig{}, runSettings{}, fmt.Errorf("%s: %w: %w", config.ConfigFileName, err, csvimport.ErrInvalidConfig)
		}
	}

	batchSize := csvimport.DefaultBatchSize
	switch {
	case changed("batch-size"):
		batchSize = f.batchSize
	case pc.BatchSize != 0:
		batchSize = pc.BatchSize
	}

	requireName := pc.RequireName
	if changed("require-name") {
		requireName = f.requireName
	}

	failOnEmpty := pc.FailOnEmpty
	if changed("fail-on-empty") {
		failOnEmpty = f.failOnEmpty
	}

	cfg := csvimport.ImportConfig{
		SourcePath: firstNonEmpty(f.file, os.Getenv(envSourceFile), pc.Source.Path, csvimport.DefaultSourceFile),
		Table:      firstNonEmpty(f.table, os.Getenv(envTable), pc.Table, csvimport.DefaultTable),
		Delimiter:  delimiter,
		Encoding:   firstNonEmpty(f.encoding, pc.Source.Encoding, csvimport.DefaultEncoding),
		BatchSize:  batchSize,
		DryRun:     f.dryRun,
		Timeout:    timeout,
		Verbose:    verbose,
	}

	if !cfg.DryRun {
		cfg.Connection, err = resolveConnection(f.conn, projectCfg)
		if err != nil {
			return csvimport.ImportConfig{}, runSettings{}, err
		}
	}

	logFile := firstNonEmpty(f.logFile, os.Getenv(envLogFile), pc.Log.File, csvimport.DefaultLogFile)
	if strings.EqualFold(logFile, logFileDisabled) {
		logFile = ""
	}

	settings := runSettings{
		FailOnEmpty: failOnEmpty,
		RequireName: requireName,
		Log: logging.Options{
			Level:      firstNonEmpty(f.logLevel, pc.Log.Level, "info"),
			Verbose:    verbose,
			Format:     firstNonEmpty(f.logFormat, pc.Log.Format, "text"),
			FilePath:   logFile,
			MaxSizeMB:  pc.Log.MaxSizeMB,
			MaxBackups: pc.Log.MaxBackups,
			MaxAgeDays: pc.Log.MaxAgeDays,
		},
	}

	return cfg, settings, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
