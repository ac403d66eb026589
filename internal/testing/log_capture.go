package testing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

// Log levels recorded by LogCapture.
const (
	LevelVerbose = "VERBOSE"
	LevelInfo    = "INFO"
	LevelWarn    = "WARNING"
	LevelError   = "ERROR"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// Attr returns the value paired with key in the entry's args, or nil.
func (e LogEntry) Attr(key string) any {
	for i := 0; i+1 < len(e.Args); i += 2 {
		if k, ok := e.Args[i].(string); ok && k == key {
			return e.Args[i+1]
		}
	}
	return nil
}

// LogCapture is a thread-safe csvimport.Logger that records every call.
type LogCapture struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogCapture creates an empty LogCapture.
func NewLogCapture() *LogCapture {
	return &LogCapture{}
}

func (c *LogCapture) record(level, msg string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (c *LogCapture) Verbose(msg string, args ...any) { c.record(LevelVerbose, msg, args) }
func (c *LogCapture) Info(msg string, args ...any)    { c.record(LevelInfo, msg, args) }
func (c *LogCapture) Warn(msg string, args ...any)    { c.record(LevelWarn, msg, args) }
func (c *LogCapture) Error(msg string, args ...any)   { c.record(LevelError, msg, args) }

// Entries returns a copy of the captured entries, optionally filtered by level.
// An empty level returns every entry.
func (c *LogCapture) Entries(level string) []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []LogEntry
	for _, e := range c.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns the messages logged at level.
func (c *LogCapture) Messages(level string) []string {
	entries := c.Entries(level)
	msgs := make([]string, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, e.Msg)
	}
	return msgs
}

// Count returns the number of entries logged at level.
func (c *LogCapture) Count(level string) int {
	return len(c.Entries(level))
}

// Contains reports whether any entry at level has a message containing substr.
func (c *LogCapture) Contains(level, substr string) bool {
	for _, msg := range c.Messages(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Reset discards all captured entries.
func (c *LogCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// String renders the captured entries, one per line, for failure messages.
func (c *LogCapture) String() string {
	var sb strings.Builder
	for _, e := range c.Entries("") {
		fmt.Fprintf(&sb, "%s %s %v\n", e.Level, e.Msg, e.Args)
	}
	return sb.String()
}

var _ csvimport.Logger = (*LogCapture)(nil)
