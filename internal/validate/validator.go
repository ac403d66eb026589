// Package validate coerces raw source records into typed sales rows.
package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/shopspring/decimal"
)

// Destination column limits.
const (
	DefaultMaxNameLength = 255
	PriceScale           = 2
	PricePrecision       = 10
)

// maxPrice is the exclusive upper bound of |price| for DECIMAL(10,2).
var maxPrice = decimal.New(1, PricePrecision-PriceScale)

// Options tunes the validator. Zero values select the destination table limits.
type Options struct {
	// MaxNameLength is the maximum product_name length in characters.
	MaxNameLength int

	// RequireName rejects rows whose product_name is blank after trimming.
	// A present but empty name is accepted otherwise.
	RequireName bool
}

// RowValidator turns a csvimport.Record into a csvimport.SalesRow.
// It is stateless and safe for concurrent use.
type RowValidator struct {
	maxNameLength int
	requireName   bool
}

// New creates a RowValidator.
func New(opts Options) *RowValidator {
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = DefaultMaxNameLength
	}
	return &RowValidator{maxNameLength: opts.MaxNameLength, requireName: opts.RequireName}
}

// Validate coerces every required field of rec. Fields are checked in the
// order product_name, quantity, price, sale_date and the first failure is
// returned as a *csvimport.RowError. A row is accepted only when every field
// coerces.
func (v *RowValidator) Validate(rec csvimport.Record) (csvimport.SalesRow, error) {
	var row csvimport.SalesRow

	name, err := field(rec, csvimport.ColumnProductName)
	if err != nil {
		return row, err
	}
	if v.requireName && strings.TrimSpace(name) == "" {
		return row, reject(csvimport.ReasonEmptyName, csvimport.ColumnProductName, name, "product name is blank")
	}
	if n := utf8.RuneCountInString(name); n > v.maxNameLength {
		return row, reject(csvimport.ReasonOutOfRange, csvimport.ColumnProductName, name,
			fmt.Sprintf("product name has %d characters, maximum is %d", n, v.maxNameLength))
	}

	rawQty, err := field(rec, csvimport.ColumnQuantity)
	if err != nil {
		return row, err
	}
	qty, err := parseQuantity(rawQty)
	if err != nil {
		return row, err
	}

	rawPrice, err := field(rec, csvimport.ColumnPrice)
	if err != nil {
		return row, err
	}
	price, err := parsePrice(rawPrice)
	if err != nil {
		return row, err
	}

	rawDate, err := field(rec, csvimport.ColumnSaleDate)
	if err != nil {
		return row, err
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return row, err
	}

	row.ProductName = name
	row.Quantity = qty
	row.Price = price
	row.SaleDate = date
	return row, nil
}

func field(rec csvimport.Record, column string) (string, error) {
	value, ok := rec[column]
	if !ok {
		return "", reject(csvimport.ReasonMissingField, column, "", "column is missing from the row")
	}
	return value, nil
}

func parseQuantity(raw string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err == nil {
		return int32(n), nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, reject(csvimport.ReasonOutOfRange, csvimport.ColumnQuantity, raw, "quantity does not fit a 32-bit integer")
	}
	return 0, reject(csvimport.ReasonInvalidQuantity, csvimport.ColumnQuantity, raw, "quantity is not an integer")
}

func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, reject(csvimport.ReasonInvalidPrice, csvimport.ColumnPrice, raw, "price is not a decimal number")
	}

	// Round and Cmp rescale the coefficient to the exponent, so extreme
	// exponents must be settled from the digit count alone.
	if d.IsZero() {
		return decimal.Zero, nil
	}
	magnitude := d.NumDigits() + int(d.Exponent())
	if magnitude > PricePrecision-PriceScale {
		return decimal.Decimal{}, reject(csvimport.ReasonOutOfRange, csvimport.ColumnPrice, raw,
			fmt.Sprintf("price does not fit DECIMAL(%d,%d)", PricePrecision, PriceScale))
	}
	if magnitude < -PriceScale {
		// |d| < 0.001 rounds to zero at two places.
		return decimal.Zero, nil
	}

	d = d.Round(PriceScale)
	if d.Abs().GreaterThanOrEqual(maxPrice) {
		return decimal.Decimal{}, reject(csvimport.ReasonOutOfRange, csvimport.ColumnPrice, raw,
			fmt.Sprintf("price does not fit DECIMAL(%d,%d)", PricePrecision, PriceScale))
	}
	return d, nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(csvimport.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, reject(csvimport.ReasonInvalidDate, csvimport.ColumnSaleDate, raw, "sale date must be YYYY-MM-DD")
	}
	return t, nil
}

func reject(reason csvimport.RejectReason, column, value, detail string) *csvimport.RowError {
	return &csvimport.RowError{Reason: reason, Field: column, Value: value, Detail: detail}
}

// Verify RowValidator implements the Validator interface at compile time
var _ csvimport.Validator = (*RowValidator)(nil)
