package csvimport

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := importer.Import(ctx, cfg)
//	if errors.Is(err, csvimport.ErrNoValidRows) {
//	    // nothing was inserted, the run still ended cleanly
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInputNotFound indicates the source file does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrReadFailed indicates the source file could not be opened, decoded or parsed.
	ErrReadFailed = errors.New("input file unreadable")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrSchemaFailed indicates the destination table could not be ensured.
	ErrSchemaFailed = errors.New("schema setup failed")

	// ErrNoValidRows indicates that no record passed validation.
	ErrNoValidRows = errors.New("no valid rows to import")

	// ErrInsertFailed indicates the batch insert failed and was rolled back.
	ErrInsertFailed = errors.New("insert failed")

	// ErrUnsupportedDriver indicates the configured database driver is unknown.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedDriver), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrInputNotFound):
		return ExitInputMissing
	case errors.Is(err, ErrReadFailed):
		return ExitInputUnreadable
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrSchemaFailed):
		return ExitSchemaError
	case errors.Is(err, ErrInsertFailed):
		return ExitInsertFailed
	case errors.Is(err, ErrNoValidRows):
		return ExitNoValidRows
	}

	// Cobra reports flag and argument problems as plain errors.
	errStr := err.Error()
	if strings.HasPrefix(errStr, "unknown flag") ||
		strings.HasPrefix(errStr, "unknown shorthand flag") ||
		strings.HasPrefix(errStr, "unknown command") ||
		strings.HasPrefix(errStr, "invalid argument") ||
		strings.HasPrefix(errStr, "required flag") ||
		strings.Contains(errStr, "arg(s), received") {
		return ExitUsageError
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
