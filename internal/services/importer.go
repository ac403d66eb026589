package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/db/schema"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/internal/source"
	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/google/uuid"
)

// ConnectorFactory builds a Connector for a resolved connection configuration.
type ConnectorFactory func(*csvimport.ConnectionConfig) (csvimport.Connector, error)

// ImportService implements the Importer interface.
// Thread-Safety: NOT safe for concurrent Import() calls on the same instance.
// Create separate instances for concurrent imports.
type ImportService struct {
	connectorFactory ConnectorFactory
	ensurer          csvimport.SchemaEnsurer
	writer           csvimport.RowWriter
	validator        csvimport.Validator
	logger           csvimport.Logger
}

// NewImportService creates a new ImportService with all dependencies injected.
// Nil dependencies are programmer errors and panic at construction time.
func NewImportService(
	connectorFactory ConnectorFactory,
	ensurer csvimport.SchemaEnsurer,
	writer csvimport.RowWriter,
	validator csvimport.Validator,
	logger csvimport.Logger,
) *ImportService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if ensurer == nil {
		panic("ensurer cannot be nil")
	}
	if writer == nil {
		panic("writer cannot be nil")
	}
	if validator == nil {
		panic("validator cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &ImportService{
		connectorFactory: connectorFactory,
		ensurer:          ensurer,
		writer:           writer,
		validator:        validator,
		logger:           logger,
	}
}

// Import runs connect, ensure schema, read, validate and insert for one file.
//
// The returned result is populated as far as the run got, even on error.
// A run where no record passes validation returns csvimport.ErrNoValidRows
// without issuing any insert. In dry-run mode the database is never contacted.
func (s *ImportService) Import(ctx context.Context, cfg csvimport.ImportConfig) (result csvimport.ImportResult, err error) {
	start := time.Now()
	result = csvimport.ImportResult{
		RunID:  uuid.New(),
		Source: cfg.SourcePath,
		Table:  cfg.Table,
		DryRun: cfg.DryRun,
	}
	defer func() { result.Duration = time.Since(start) }()

	if err := s.preflight(cfg); err != nil {
		return result, err
	}

	s.logger.Info("Starting import",
		"run_id", result.RunID.String(),
		"source", cfg.SourcePath,
		"table", cfg.Table,
		"dry_run", cfg.DryRun,
	)

	var conn csvimport.DBConnection
	if !cfg.DryRun {
		conn, err = s.connect(ctx, cfg.Connection)
		if err != nil {
			return result, err
		}
		defer func() {
			// The run context may already be cancelled; closing must still happen.
			if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
				s.logger.Warn("Failed to close database connection", "error", cerr)
			}
		}()

		if err := s.ensurer.Ensure(ctx, conn, cfg.Table); err != nil {
			return result, err
		}
		s.logger.Info("Table is ready", "table", cfg.Table)
	}

	rows, err := s.readAndValidate(ctx, cfg, &result)
	if err != nil {
		return result, err
	}

	if len(rows) == 0 {
		s.logger.Error("No valid rows to import",
			"source", cfg.SourcePath,
			"total", result.Total,
			"rejected", result.Rejected,
		)
		return result, fmt.Errorf("%w: %d of %d rows rejected in %s",
			csvimport.ErrNoValidRows, result.Rejected, result.Total, cfg.SourcePath)
	}

	if cfg.DryRun {
		s.logger.Info("Dry run complete, nothing was written",
			"accepted", result.Accepted,
			"rejected", result.Rejected,
		)
		return result, nil
	}

	inserted, err := s.writer.Insert(ctx, conn, cfg.Table, rows, cfg.BatchSize)
	if err != nil {
		return result, err
	}
	result.Inserted = inserted

	s.logger.Info(fmt.Sprintf("Imported %d rows from %s", inserted, cfg.SourcePath),
		"rows", inserted,
		"table", cfg.Table,
		"run_id", result.RunID.String(),
	)
	return result, nil
}

// preflight checks everything that can fail before touching the database.
func (s *ImportService) preflight(cfg csvimport.ImportConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	driver := csvimport.DriverPostgres
	if cfg.Connection != nil {
		driver = cfg.Connection.Driver
	}
	if _, err := schema.QuoteTable(driver, cfg.Table); err != nil {
		return err
	}
	if _, err := source.LookupEncoding(cfg.Encoding); err != nil {
		return err
	}

	info, err := os.Stat(cfg.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", csvimport.ErrInputNotFound, cfg.SourcePath)
		}
		return fmt.Errorf("%w: %w", csvimport.ErrReadFailed, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", csvimport.ErrReadFailed, cfg.SourcePath)
	}
	return nil
}

func (s *ImportService) connect(ctx context.Context, connConfig *csvimport.ConnectionConfig) (csvimport.DBConnection, error) {
	s.logger.Verbose("Connecting", "target", db.RedactedTarget(connConfig), "auth", connConfig.AuthMethod.String())

	connector, err := s.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	conn, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// readAndValidate reads the whole source and returns the accepted rows in
// file order, recording counts and rejections in result.
func (s *ImportService) readAndValidate(
	ctx context.Context,
	cfg csvimport.ImportConfig,
	result *csvimport.ImportResult,
) ([]csvimport.SalesRow, error) {
	table, err := source.ReadFile(ctx, cfg.SourcePath, source.Options{
		Delimiter: cfg.Delimiter,
		Encoding:  cfg.Encoding,
	})
	if err != nil {
		return nil, err
	}

	if missing := table.MissingColumns(); len(missing) > 0 {
		s.logger.Warn("Header is missing required columns, affected rows will be skipped",
			"missing", strings.Join(missing, ", "),
			"header", strings.Join(table.Header, ", "),
		)
	}

	accepted := make([]csvimport.SalesRow, 0, len(table.Rows))
	for _, r := range table.Rows {
		result.Total++

		row, err := s.validator.Validate(r.Record)
		if err != nil {
			rowErr := asRowError(err)
			rowErr.Line = r.Line
			result.Rejected++
			result.Rejections = append(result.Rejections, rowErr)

			s.logger.Warn(fmt.Sprintf("Skipping invalid row at line %d", r.Line),
				"line", r.Line,
				"reason", string(rowErr.Reason),
				"detail", rowErr.Error(),
				"row", source.Preview(r.Fields, cfg.Delimiter),
			)
			continue
		}
		accepted = append(accepted, row)
	}
	result.Accepted = len(accepted)

	s.logger.Verbose("Validated source rows", "total", result.Total, "accepted", result.Accepted, "rejected", result.Rejected)
	if result.Rejected > 0 {
		s.logger.Info("Skipped rows by reason", "counts", formatReasonCounts(result.RejectionsByReason()))
	}
	return accepted, nil
}

func asRowError(err error) csvimport.RowError {
	var rowErr *csvimport.RowError
	if errors.As(err, &rowErr) {
		return *rowErr
	}
	return csvimport.RowError{Reason: csvimport.ReasonInvalid, Detail: err.Error()}
}

// formatReasonCounts renders counts as "reason=n" pairs sorted by reason.
func formatReasonCounts(counts map[csvimport.RejectReason]int) string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", reason, counts[csvimport.RejectReason(reason)])
	}
	return strings.Join(parts, ", ")
}

// Verify ImportService implements the Importer interface at compile time
var _ csvimport.Importer = (*ImportService)(nil)
