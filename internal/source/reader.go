package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ctxCheckInterval is how many records are parsed between cancellation checks.
const ctxCheckInterval = 1000

// Options controls how a file is decoded and split.
type Options struct {
	Delimiter rune   // default ','
	Encoding  string // default utf-8
}

// Row is one data record with the line it started on.
type Row struct {
	Line   int
	Record csvimport.Record
	Fields []string
}

// Table is a fully read source file.
type Table struct {
	Header []string
	Rows   []Row
}

// MissingColumns returns the required columns absent from the header.
func (t *Table) MissingColumns() []string {
	present := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		present[h] = true
	}

	var missing []string
	for _, c := range csvimport.RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// ReadFile reads the whole file at path.
// A missing file yields csvimport.ErrInputNotFound; any other failure yields csvimport.ErrReadFailed.
func ReadFile(ctx context.Context, path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", csvimport.ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", csvimport.ErrReadFailed, err)
	}
	defer f.Close()

	table, err := Parse(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Parse decodes r and splits it into a header and data rows.
func Parse(ctx context.Context, r io.Reader, opts Options) (*Table, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	// The utf-8 decoder silently substitutes U+FFFD for bad bytes, so utf-8
	// input is checked up front.
	if enc == unicode.UTF8BOM || enc == unicode.UTF8 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", csvimport.ErrReadFailed, err)
		}
		if line := invalidUTF8Line(data); line > 0 {
			return nil, fmt.Errorf("%w: line %d: invalid UTF-8 byte sequence", csvimport.ErrReadFailed, line)
		}
		r = bytes.NewReader(data)
	}

	reader := csv.NewReader(transform.NewReader(r, enc.NewDecoder()))
	reader.Comma = opts.Delimiter
	if reader.Comma == 0 {
		reader.Comma = csvimport.DefaultDelimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty, expected a header row", csvimport.ErrReadFailed)
		}
		return nil, fmt.Errorf("%w: header: %w", csvimport.ErrReadFailed, err)
	}
	header = normalizeHeader(header)

	table := &Table{Header: header}
	for n := 1; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// *csv.ParseError already carries the line number.
			return nil, fmt.Errorf("%w: %w", csvimport.ErrReadFailed, err)
		}

		line, _ := reader.FieldPos(0)
		table.Rows = append(table.Rows, Row{
			Line:   line,
			Record: toRecord(header, fields),
			Fields: fields,
		})
	}

	return table, nil
}

// invalidUTF8Line returns the 1-based line of the first invalid UTF-8
// sequence in data, or 0 when data is valid.
func invalidUTF8Line(data []byte) int {
	for off := 0; off < len(data); {
		r, size := utf8.DecodeRune(data[off:])
		if r == utf8.RuneError && size == 1 {
			return 1 + bytes.Count(data[:off], []byte("\n"))
		}
		off += size
	}
	return 0
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

// toRecord keys fields by header. Extra fields are dropped and missing ones
// are absent. The first of duplicate header names wins.
func toRecord(header, fields []string) csvimport.Record {
	rec := make(csvimport.Record, len(header))
	for i, name := range header {
		if i >= len(fields) {
			break
		}
		if _, dup := rec[name]; dup {
			continue
		}
		rec[name] = fields[i]
	}
	return rec
}

// Preview renders a row's raw fields joined by delim, truncated to
// csvimport.MaxRowPreviewLength runes.
func Preview(fields []string, delim rune) string {
	if delim == 0 {
		delim = csvimport.DefaultDelimiter
	}
	s := strings.Join(fields, string(delim))

	runes := []rune(s)
	if len(runes) > csvimport.MaxRowPreviewLength {
		return string(runes[:csvimport.MaxRowPreviewLength]) + "..."
	}
	return s
}
