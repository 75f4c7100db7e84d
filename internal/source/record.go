package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"retail-demand-lab/internal/domain"
)

// Canonical column names of the retail export.
const (
	ColInvoiceNo   = "InvoiceNo"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColUnitPrice   = "UnitPrice"
	ColCustomerID  = "CustomerID"
	ColCountry     = "Country"
)

// headerAliases maps normalized header text to canonical columns.
// The 2009-2011 export renames a few columns.
var headerAliases = map[string]string{
	"invoiceno":   ColInvoiceNo,
	"invoice":     ColInvoiceNo,
	"stockcode":   ColStockCode,
	"description": ColDescription,
	"quantity":    ColQuantity,
	"invoicedate": ColInvoiceDate,
	"unitprice":   ColUnitPrice,
	"price":       ColUnitPrice,
	"customerid":  ColCustomerID,
	"country":     ColCountry,
}

var requiredColumns = []string{ColStockCode, ColQuantity, ColInvoiceDate, ColUnitPrice, ColCustomerID}

// dateLayouts are tried in order for textual invoice dates.
var dateLayouts = []string{
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
}

// columnIndex maps canonical columns to field positions.
type columnIndex map[string]int

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	return strings.ReplaceAll(h, "_", "")
}

func mapHeader(header []string) (columnIndex, error) {
	if len(header) == 0 {
		return nil, ErrEmptyInput
	}
	idx := make(columnIndex, len(header))
	for i, h := range header {
		if col, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := idx[col]; !dup {
				idx[col] = i
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return idx, nil
}

// raw returns the cell verbatim, or "" when the column or cell is absent.
// Text columns keep their padding so descriptions match the export byte for byte.
func (c columnIndex) raw(fields []string, col string) string {
	i, ok := c[col]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// numeric returns the cell with surrounding spaces removed.
func (c columnIndex) numeric(fields []string, col string) string {
	return strings.TrimSpace(c.raw(fields, col))
}

// nullable returns nil for an empty cell.
func (c columnIndex) nullable(fields []string, col string) *string {
	v := c.raw(fields, col)
	if v == "" {
		return nil
	}
	return &v
}

// parse converts one data row into a transaction. Blank Quantity, UnitPrice and
// InvoiceDate cells are flagged in Missing, not rejected; only text that does
// not parse is a RowError.
func (c columnIndex) parse(fields []string, seq int64) (domain.Transaction, *RowError) {
	fail := func(col string, err error) (domain.Transaction, *RowError) {
		return domain.Transaction{}, &RowError{Row: seq, Column: col, Err: err}
	}

	t := domain.Transaction{
		Seq:         seq,
		InvoiceNo:   c.nullable(fields, ColInvoiceNo),
		StockCode:   c.raw(fields, ColStockCode),
		Description: c.nullable(fields, ColDescription),
		CustomerID:  normalizeCustomerID(c.nullable(fields, ColCustomerID)),
		Country:     c.nullable(fields, ColCountry),
	}

	var err error
	if v := c.numeric(fields, ColQuantity); v == "" {
		t.Missing |= domain.MissingQuantity
	} else if t.Quantity, err = parseQuantity(v); err != nil {
		return fail(ColQuantity, err)
	}

	if v := c.numeric(fields, ColUnitPrice); v == "" {
		t.Missing |= domain.MissingUnitPrice
	} else if t.UnitPrice, err = parsePrice(v); err != nil {
		return fail(ColUnitPrice, err)
	}

	if v := c.numeric(fields, ColInvoiceDate); v == "" {
		t.Missing |= domain.MissingInvoiceDate
	} else if t.InvoiceDate, err = parseInvoiceDate(v); err != nil {
		return fail(ColInvoiceDate, err)
	}

	return t, nil
}

func parseQuantity(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// Spreadsheet exports sometimes write integral counts as "6.0".
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return d.IntPart(), nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a decimal: %q", s)
	}
	return d, nil
}

// parseInvoiceDate accepts the textual layouts above or an Excel serial date.
func parseInvoiceDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad serial date %q: %w", s, err)
		}
		return t.Round(time.Second), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// normalizeCustomerID canonicalizes integral numeric IDs, stripping padding and
// the ".0" float artifact ("17850.0" -> "17850"). Other IDs are kept verbatim.
func normalizeCustomerID(id *string) *string {
	if id == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*id))
	if err != nil || !d.IsInteger() {
		return id
	}
	s := d.String()
	return &s
}
