package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db/schema"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db/writer"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/logging"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/services"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/tui"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/validate"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

func newRunCmd() *cobra.Command {
	flags := &importFlagValues{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import the source file into the destination table",
		Long: `Read the source file, validate every row and insert the valid rows in one
transaction. The destination table is created when it does not exist.

Connection Methods:
  1. Connection string: --connection "postgresql://user@host:5432/db"
  2. Granular flags:    --host, --port, --username, --database
  3. SQLite file:       --driver sqlite --db-path ./sales.sqlite
  4. Environment:       $CSVIMPORT_CONNECTION, $DATABASE_URL or $PGHOST/$PGUSER/...

Passwords are never accepted as flags. Use $PGPASSWORD (or $MYSQL_PWD),
~/.pgpass, a .env file or the connection string.

Examples:
  # Import sample_data.csv into sales_data on a local Postgres
  csvimport run

  # Semicolon-separated latin1 export
  csvimport run -f export.csv --delimiter ";" --encoding latin1

  # Local SQLite file
  csvimport run --driver sqlite --db-path ./sales.sqlite

  # Treat an empty import as a failure in a scheduled job
  csvimport run --fail-on-empty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, flags)
		},
	}

	registerSourceFlags(cmd, flags)
	registerConnectionFlags(cmd, &flags.conn)
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false,
		"Validate the source file without connecting to the database")

	return cmd
}

// runImport resolves configuration, runs one import and renders its summary.
func runImport(cmd *cobra.Command, flags *importFlagValues) error {
	verbose := getVerboseFlag(cmd)

	projectCfg, err := loadProjectConfig(getConfigFlag(cmd))
	if err != nil {
		return err
	}

	cfg, settings, err := buildImportConfig(cmd, flags, projectCfg, verbose)
	if err != nil {
		return err
	}

	settings.Log.Console = cmd.OutOrStdout()
	logger, err := logging.New(settings.Log)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w: %w", err, csvimport.ErrInvalidConfig)
	}
	defer logger.Close()

	importer := services.NewImportService(
		func(c *csvimport.ConnectionConfig) (csvimport.Connector, error) {
			return db.NewConnector(c, db.WithLogger(logger))
		},
		schema.New(),
		writer.New(),
		validate.New(validate.Options{RequireName: settings.RequireName}),
		logger,
	)

	// Setup context with timeout and signal handling for graceful shutdown
	// A zero timeout disables the deadline.
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(cmd.Context(), cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(cmd.Context())
	}
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\n[INTERRUPT] Received interrupt signal, cancelling import...")
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := importer.Import(ctx, cfg)

	errOut := cmd.ErrOrStderr()
	fmt.Fprintln(errOut, tui.RenderSummary(result, err, isStyledWriter(errOut)))

	if err == nil {
		return nil
	}
	if errors.Is(err, csvimport.ErrNoValidRows) && !settings.FailOnEmpty {
		return nil
	}
	if !errors.Is(err, csvimport.ErrNoValidRows) {
		logger.Error("Import failed", "error", err)
	}
	return reported(err)
}

func isStyledWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && tui.IsStyled(f)
}
