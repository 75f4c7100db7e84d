package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one invoice line item from the raw retail dataset.
// Transactions are immutable once loaded; pipeline stages derive new slices.
type Transaction struct {
	Seq         int64           // 1-based source row number, provenance only
	InvoiceNo   *string         // invoice identifier, NULL if missing
	StockCode   string          // product identifier
	Description *string         // free-text description, NULL if missing
	Quantity    int64           // signed quantity (negative for returns)
	InvoiceDate time.Time       // invoice timestamp
	UnitPrice   decimal.Decimal // price per unit
	CustomerID  *string         // customer identifier, NULL for guest checkouts
	Country     *string         // customer country, NULL if missing
	Missing     MissingFields   // numeric or date cells that were blank in the source
}

// MissingFields flags blank Quantity, UnitPrice and InvoiceDate cells.
// The matching value fields hold their zero value when flagged.
type MissingFields uint8

const (
	MissingQuantity MissingFields = 1 << iota
	MissingUnitPrice
	MissingInvoiceDate
)

// Has reports whether every flag in f is set.
func (m MissingFields) Has(f MissingFields) bool {
	return m&f == f
}

// HasInvoiceDate reports whether the invoice date was present in the source.
// Undated rows contribute to no month.
func (t *Transaction) HasInvoiceDate() bool {
	return !t.Missing.Has(MissingInvoiceDate)
}

// Period returns the calendar month the transaction was invoiced in.
func (t *Transaction) Period() MonthPeriod {
	return PeriodOf(t.InvoiceDate)
}
