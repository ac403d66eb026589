// Package logging provides concrete implementations of the csvimport.Logger interface.
//
// Available implementations:
//   - SlogLogger: structured log/slog output to the console and a log file
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
