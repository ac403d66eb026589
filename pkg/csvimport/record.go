package csvimport

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one parsed source line: column name to raw cell text.
// Columns missing from a short line are absent from the map.
type Record map[string]string

// SalesRow is a record that passed validation, coerced to its column types.
// Field order matches the destination table's insert order.
type SalesRow struct {
	ProductName string
	Quantity    int32
	Price       decimal.Decimal
	SaleDate    time.Time
}

// RejectReason classifies why a record was not imported.
type RejectReason string

const (
	ReasonMissingField    RejectReason = "missing_field"
	ReasonEmptyName       RejectReason = "empty_name"
	ReasonInvalidQuantity RejectReason = "invalid_quantity"
	ReasonInvalidPrice    RejectReason = "invalid_price"
	ReasonInvalidDate     RejectReason = "invalid_date"
	ReasonOutOfRange      RejectReason = "out_of_range"
	ReasonInvalid         RejectReason = "invalid" // unclassified validator error
)

// Validator decides whether a record is accepted and coerces it.
type Validator interface {
	// Validate returns the coerced row, or a *RowError describing the first
	// field that failed. It never panics on malformed input.
	Validate(rec Record) (SalesRow, error)
}

// RowError describes a rejected record. It is returned, never panicked.
type RowError struct {
	Line   int          // 1-based source line; the header is line 1
	Reason RejectReason // machine-readable classification
	Field  string       // offending column
	Value  string       // offending raw value
	Detail string       // human-readable explanation
}

func (e *RowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s %q: %s", e.Line, e.Field, e.Value, e.Detail)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Detail)
}
