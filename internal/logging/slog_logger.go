package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"gopkg.in/natefinch/lumberjack.v2"
)

var _ csvimport.Logger = (*SlogLogger)(nil)

// Options configures a SlogLogger.
type Options struct {
	// Level is the minimum level: "debug", "info", "warn" or "error" (default "info").
	Level string

	// Verbose forces the level down to debug so Verbose() calls are emitted.
	Verbose bool

	// Format is "text" (default) or "json".
	Format string

	// Console receives every log line. Defaults to os.Stdout.
	Console io.Writer

	// FilePath is the log file. Empty disables the file sink.
	FilePath string

	// MaxSizeMB rotates the file once it reaches this size.
	// Zero appends to a single file without rotation.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SlogLogger writes leveled, timestamped records through log/slog to the
// console and, optionally, a log file.
type SlogLogger struct {
	logger *slog.Logger
	closer io.Closer
}

// New builds a SlogLogger. The caller must Close it to flush the file sink.
func New(opts Options) (*SlogLogger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	var (
		out    = console
		closer io.Closer
	)
	if opts.FilePath != "" {
		file, err := openLogFile(opts)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	level := parseLevel(opts.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelName,
	}

	var handler slog.Handler
	if strings.ToLower(opts.Format) == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return &SlogLogger{logger: slog.New(handler), closer: closer}, nil
}

func openLogFile(opts Options) (io.WriteCloser, error) {
	if dir := filepath.Dir(opts.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	if opts.MaxSizeMB > 0 {
		return &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}, nil
	}

	f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", opts.FilePath, err)
	}
	return f, nil
}

// With returns a logger that adds the given attributes to every record.
func (l *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{logger: l.logger.With(args...), closer: l.closer}
}

// Slog exposes the underlying *slog.Logger.
func (l *SlogLogger) Slog() *slog.Logger {
	return l.logger
}

// Verbose logs at DEBUG level.
func (l *SlogLogger) Verbose(msg string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs at INFO level.
func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs at WARNING level.
func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs at ERROR level.
func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Close releases the file sink. Safe to call when no file is configured.
func (l *SlogLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceLevelName spells the warning level out in full.
func replaceLevelName(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == slog.LevelWarn {
		a.Value = slog.StringValue("WARNING")
	}
	return a
}
