package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestParse_Basic(t *testing.T) {
	input := "product_name,quantity,price,sale_date\n" +
		"Widget,3,9.99,2024-01-15\n" +
		"Gadget,1,19.50,2024-01-16\n"

	table, err := Parse(context.Background(), strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"product_name", "quantity", "price", "sale_date"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 2, table.Rows[0].Line)
	assert.Equal(t, 3, table.Rows[1].Line)
	assert.Equal(t, csvimport.Record{
		"product_name": "Widget",
		"quantity":     "3",
		"price":        "9.99",
		"sale_date":    "2024-01-15",
	}, table.Rows[0].Record)
	assert.Empty(t, table.MissingColumns())
}

func TestParse_LineNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{
			name:  "blank lines are skipped but counted",
			input: "product_name,quantity\nA,1\n\nB,2\n",
			want:  []int{2, 4},
		},
		{
			name:  "quoted newline spans lines",
			input: "product_name,quantity\n\"multi\nline\",1\nB,2\n",
			want:  []int{2, 4},
		},
		{
			name:  "crlf",
			input: "product_name,quantity\r\nA,1\r\nB,2\r\n",
			want:  []int{2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(context.Background(), strings.NewReader(tt.input), Options{})
			require.NoError(t, err)

			var lines []int
			for _, r := range table.Rows {
				lines = append(lines, r.Line)
			}
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestParse_RaggedRows(t *testing.T) {
	input := "product_name,quantity,price,sale_date\n" +
		"Short,1\n" +
		"Long,1,2.00,2024-01-01,extra,fields\n"

	table, err := Parse(context.Background(), strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	short := table.Rows[0].Record
	assert.Equal(t, "1", short["quantity"])
	_, hasPrice := short["price"]
	assert.False(t, hasPrice)

	long := table.Rows[1].Record
	assert.Len(t, long, 4)
	assert.Equal(t, "2024-01-01", long["sale_date"])
	assert.Len(t, table.Rows[1].Fields, 6)
}

func TestParse_HeaderNormalization(t *testing.T) {
	input := "\ufeff product_name , quantity,price,sale_date,quantity\nA,1,2,2024-01-01,99\n"

	table, err := Parse(context.Background(), strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, "product_name", table.Header[0])
	assert.Equal(t, "quantity", table.Header[1])
	assert.Equal(t, "1", table.Rows[0].Record["quantity"], "first duplicate column wins")
}

func TestParse_Delimiters(t *testing.T) {
	tests := []struct {
		name  string
		delim rune
		input string
	}{
		{"semicolon", ';', "product_name;quantity\nA;1\n"},
		{"tab", '\t', "product_name\tquantity\nA\t1\n"},
		{"pipe", '|', "product_name|quantity\nA|1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(context.Background(), strings.NewReader(tt.input), Options{Delimiter: tt.delim})
			require.NoError(t, err)
			require.Len(t, table.Rows, 1)
			assert.Equal(t, "1", table.Rows[0].Record["quantity"])
		})
	}
}

func TestParse_LazyQuotes(t *testing.T) {
	input := "product_name,quantity\n12\" Pizza,1\n"

	table, err := Parse(context.Background(), strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Equal(t, `12" Pizza`, table.Rows[0].Record["product_name"])
}

func TestParse_Encodings(t *testing.T) {
	const text = "product_name,quantity\nCafé crème,2\n"

	utf16LE, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(text)
	require.NoError(t, err)
	utf16BE, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().String(text)
	require.NoError(t, err)
	latin1, err := charmap.ISO8859_1.NewEncoder().String(text)
	require.NoError(t, err)
	cp1252, err := charmap.Windows1252.NewEncoder().String("product_name,quantity\n€ coin,2\n")
	require.NoError(t, err)

	tests := []struct {
		name     string
		encoding string
		input    []byte
		want     string
	}{
		{"utf-8 default", "", []byte(text), "Café crème"},
		{"utf-8 with BOM", "utf-8", append([]byte{0xEF, 0xBB, 0xBF}, text...), "Café crème"},
		{"utf-16 LE BOM", "utf-16", []byte(utf16LE), "Café crème"},
		{"utf-16 BE BOM", "UTF-16", []byte(utf16BE), "Café crème"},
		{"latin1", "latin1", []byte(latin1), "Café crème"},
		{"iso-8859-1", "ISO-8859-1", []byte(latin1), "Café crème"},
		{"windows-1252", "windows-1252", []byte(cp1252), "€ coin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(context.Background(), bytes.NewReader(tt.input), Options{Encoding: tt.encoding})
			require.NoError(t, err)
			assert.Equal(t, []string{"product_name", "quantity"}, table.Header)
			require.Len(t, table.Rows, 1)
			assert.Equal(t, tt.want, table.Rows[0].Record["product_name"])
		})
	}
}

func TestParse_InvalidUTF8(t *testing.T) {
	const input = "product_name,quantity,price,sale_date\nWidget,1,1.00,2024-01-15\nCaf\xe9,1,1.00,2024-01-15\n"

	tests := []struct {
		name     string
		encoding string
		wantLine string
	}{
		{"default encoding", "", "line 3"},
		{"explicit utf-8", "utf-8", "line 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), strings.NewReader(input), Options{Encoding: tt.encoding})
			require.Error(t, err)
			assert.ErrorIs(t, err, csvimport.ErrReadFailed)
			assert.Contains(t, err.Error(), tt.wantLine)
			assert.Contains(t, err.Error(), "invalid UTF-8")
		})
	}

	t.Run("same bytes decode as latin1", func(t *testing.T) {
		table, err := Parse(context.Background(), strings.NewReader(input), Options{Encoding: "latin1"})
		require.NoError(t, err)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "Café", table.Rows[1].Record["product_name"])
	})

	t.Run("invalid byte in header", func(t *testing.T) {
		_, err := Parse(context.Background(), strings.NewReader("product_\xffname,quantity\n"), Options{})
		assert.ErrorIs(t, err, csvimport.ErrReadFailed)
		assert.Contains(t, err.Error(), "line 1")
	})
}

func TestParse_Failures(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		_, err := Parse(context.Background(), strings.NewReader(""), Options{})
		assert.ErrorIs(t, err, csvimport.ErrReadFailed)
	})

	t.Run("read error mid-file", func(t *testing.T) {
		r := io.MultiReader(strings.NewReader("product_name,quantity\nA,1\n"), iotest.ErrReader(errors.New("disk gone")))
		_, err := Parse(context.Background(), r, Options{})
		assert.ErrorIs(t, err, csvimport.ErrReadFailed)
		assert.Contains(t, err.Error(), "disk gone")
	})

	t.Run("quote as delimiter", func(t *testing.T) {
		_, err := Parse(context.Background(), strings.NewReader("a\n"), Options{Delimiter: '"'})
		assert.ErrorIs(t, err, csvimport.ErrReadFailed)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := Parse(context.Background(), strings.NewReader("a\n"), Options{Encoding: "klingon"})
		assert.ErrorIs(t, err, csvimport.ErrInvalidConfig)
	})
}

func TestParse_HeaderOnly(t *testing.T) {
	table, err := Parse(context.Background(), strings.NewReader("product_name,quantity,price,sale_date\n"), Options{})
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestParse_Cancelled(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("product_name,quantity\n")
	for i := 0; i < ctxCheckInterval*2; i++ {
		sb.WriteString("A,1\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, strings.NewReader(sb.String()), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMissingColumns(t *testing.T) {
	table := &Table{Header: []string{"product_name", "price"}}
	assert.Equal(t, []string{"quantity", "sale_date"}, table.MissingColumns())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("product_name,quantity\nA,1\n"), 0o644))

	table, err := ReadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	_, err = ReadFile(context.Background(), filepath.Join(dir, "missing.csv"), Options{})
	assert.ErrorIs(t, err, csvimport.ErrInputNotFound)

	_, err = ReadFile(context.Background(), dir, Options{})
	assert.ErrorIs(t, err, csvimport.ErrReadFailed)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "A,1,2.00", Preview([]string{"A", "1", "2.00"}, ','))
	assert.Equal(t, "A;1", Preview([]string{"A", "1"}, ';'))

	long := Preview([]string{strings.Repeat("é", 300)}, ',')
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.Equal(t, csvimport.MaxRowPreviewLength+3, len([]rune(long)))
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF8", "utf-16", "utf-16le", "utf-16be", "latin1", "cp1252", "shift_jis"} {
		t.Run(name, func(t *testing.T) {
			enc, err := LookupEncoding(name)
			require.NoError(t, err)
			assert.NotNil(t, enc)
		})
	}
}
