package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_LevelNames(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Console: &buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("imported rows", "rows", 3)
	logger.Warn("skipping row", "line", 4, "reason", "invalid_quantity")
	logger.Error("no valid rows")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "level=WARNING")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "line=4")
	assert.Contains(t, out, "reason=invalid_quantity")
	assert.Contains(t, out, "time=")
}

func TestSlogLogger_Verbose(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantOut bool
	}{
		{"disabled by default", Options{}, false},
		{"enabled by verbose flag", Options{Verbose: true}, true},
		{"enabled by debug level", Options{Level: "debug"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Console = &buf
			logger, err := New(tt.opts)
			require.NoError(t, err)

			logger.Verbose("detail", "key", "value")

			if tt.wantOut {
				assert.Contains(t, buf.String(), "level=DEBUG")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestSlogLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Console: &buf, Level: "error"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("hidden")
	logger.Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogLogger_DualSink(t *testing.T) {
	tests := []struct {
		name      string
		maxSizeMB int
	}{
		{"plain append", 0},
		{"rotating", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var console bytes.Buffer
			path := filepath.Join(t.TempDir(), "logs", "csv_import.log")

			logger, err := New(Options{Console: &console, FilePath: path, MaxSizeMB: tt.maxSizeMB})
			require.NoError(t, err)

			logger.Info("imported rows", "rows", 2)
			require.NoError(t, logger.Close())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), "imported rows")
			assert.Contains(t, console.String(), "imported rows")
		})
	}
}

func TestSlogLogger_AppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csv_import.log")

	for i := 0; i < 2; i++ {
		logger, err := New(Options{Console: &bytes.Buffer{}, FilePath: path})
		require.NoError(t, err)
		logger.Info("run finished")
		require.NoError(t, logger.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "run finished"))
}

func TestSlogLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Console: &buf, Format: "json"})
	require.NoError(t, err)

	logger.Warn("skipping row")
	assert.Contains(t, buf.String(), `"level":"WARNING"`)
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Console: &buf})
	require.NoError(t, err)

	logger.With("run_id", "abc").Info("started")
	assert.Contains(t, buf.String(), "run_id=abc")
}

func TestSlogLogger_CloseWithoutFile(t *testing.T) {
	logger, err := New(Options{Console: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "parseLevel(%q)", in)
	}
}

func TestSlogLogger_ConcurrentSafety(t *testing.T) {
	var buf syncBuffer
	logger, err := New(Options{Console: &buf, Verbose: true})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message", "id", id)
			logger.Verbose("verbose", "id", id)
			logger.Error("error", "id", id)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 30)
}

func TestNullLogger_ConcurrentSafety(t *testing.T) {
	logger := NewNullLogger()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message", "id", id)
			logger.Verbose("verbose", "id", id)
			logger.Warn("warn", "id", id)
			logger.Error("error", "id", id)
		}(i)
	}

	// Should complete without panic
	wg.Wait()
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
