package csvimport

// Logger provides a pluggable logging interface for import operations.
// Implementations must be safe for concurrent use by multiple goroutines.
//
// Messages are free-form operator text. Anything a program may need to act on
// belongs in the key/value pairs, never in the message itself.
type Logger interface {
	// Verbose logs detailed diagnostic information.
	// Only logged when verbose mode is enabled.
	Verbose(msg string, args ...any)

	// Info logs informational messages about normal operations.
	Info(msg string, args ...any)

	// Warn logs recoverable problems, such as a skipped row.
	Warn(msg string, args ...any)

	// Error logs error messages.
	Error(msg string, args ...any)
}
