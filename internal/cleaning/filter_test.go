package cleaning

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-demand-lab/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func tx(seq int64, code string, qty int64, price string, customer *string) domain.Transaction {
	return domain.Transaction{
		Seq:         seq,
		InvoiceNo:   ptr("536365"),
		StockCode:   code,
		Description: ptr("ITEM " + code),
		Quantity:    qty,
		InvoiceDate: time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC),
		UnitPrice:   decimal.RequireFromString(price),
		CustomerID:  customer,
		Country:     ptr("United Kingdom"),
	}
}

func TestFilter_Predicates(t *testing.T) {
	c := ptr("17850")
	input := []domain.Transaction{
		tx(1, "A", 6, "2.55", c),   // kept
		tx(2, "B", 0, "2.55", c),   // quantity == 0
		tx(3, "C", -3, "2.55", c),  // return
		tx(4, "D", 5, "0", c),      // free item
		tx(5, "E", 5, "-1.00", c),  // adjustment
		tx(6, "F", 100, "1.00", c), // == ceiling, exclusive
		tx(7, "G", 99, "1.00", c),  // just below ceiling, kept
		tx(8, "H", 5, "1.00", nil), // guest checkout
		tx(9, "", 5, "1.00", c),    // no stock code
		tx(10, "I", 1, "0.01", c),  // kept
	}

	kept, stats := Filter(input, 100)

	require.Len(t, kept, 3)
	assert.Equal(t, []string{"A", "G", "I"}, []string{kept[0].StockCode, kept[1].StockCode, kept[2].StockCode})

	assert.Equal(t, 10, stats.Input)
	assert.Equal(t, 3, stats.Kept)
	assert.Equal(t, 2, stats.Dropped[DropNonPositiveQuantity])
	assert.Equal(t, 2, stats.Dropped[DropNonPositivePrice])
	assert.Equal(t, 1, stats.Dropped[DropQuantityCeiling])
	assert.Equal(t, 1, stats.Dropped[DropMissingCustomer])
	assert.Equal(t, 1, stats.Dropped[DropMissingStockCode])
	assert.Equal(t, 7, stats.TotalDropped())
}

func TestFilter_MissingValues(t *testing.T) {
	c := ptr("17850")
	noQty := tx(2, "B", 0, "2.55", c)
	noQty.Missing = domain.MissingQuantity
	noPrice := tx(3, "C", 6, "0", c)
	noPrice.Missing = domain.MissingUnitPrice
	noDate := tx(4, "D", 6, "2.55", c)
	noDate.InvoiceDate = time.Time{}
	noDate.Missing = domain.MissingInvoiceDate

	kept, stats := Filter([]domain.Transaction{tx(1, "A", 6, "2.55", c), noQty, noPrice, noDate}, 100)

	// Undated rows still carry price and description, so they survive.
	require.Len(t, kept, 2)
	assert.Equal(t, "A", kept[0].StockCode)
	assert.Equal(t, "D", kept[1].StockCode)
	assert.Equal(t, 2, stats.Dropped[DropMissingValue])
	assert.Equal(t, 0, stats.Dropped[DropNonPositiveQuantity])
}

func TestFilter_DuplicateRemoval(t *testing.T) {
	c := ptr("17850")
	a := tx(1, "A", 6, "2.55", c)
	dup := tx(2, "A", 6, "2.550", c) // same values, different source row
	b := tx(3, "B", 6, "2.55", c)
	dup2 := tx(4, "A", 6, "2.55", c)

	kept, stats := Filter([]domain.Transaction{a, dup, b, dup2}, 1000)

	require.Len(t, kept, 2)
	assert.Equal(t, int64(1), kept[0].Seq, "first occurrence wins")
	assert.Equal(t, int64(3), kept[1].Seq)
	assert.Equal(t, 2, stats.Dropped[DropDuplicate])
}

func TestFilter_NearDuplicatesKept(t *testing.T) {
	c := ptr("17850")
	a := tx(1, "A", 6, "2.55", c)
	b := tx(2, "A", 6, "2.55", c)
	b.InvoiceDate = b.InvoiceDate.Add(time.Minute)

	kept, _ := Filter([]domain.Transaction{a, b}, 1000)
	assert.Len(t, kept, 2)
}

func TestFilter_Idempotent(t *testing.T) {
	c := ptr("17850")
	input := []domain.Transaction{
		tx(1, "A", 6, "2.55", c),
		tx(2, "A", 6, "2.55", c),
		tx(3, "B", -1, "2.55", c),
		tx(4, "C", 3, "1.25", nil),
		tx(5, "D", 3, "1.25", c),
	}

	once, _ := Filter(input, 1000)
	twice, stats := Filter(once, 1000)

	assert.Equal(t, once, twice)
	assert.Equal(t, 0, stats.TotalDropped())
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	c := ptr("17850")
	input := []domain.Transaction{
		tx(1, "A", 6, "2.55", c),
		tx(2, "B", -6, "2.55", c),
	}
	snapshot := make([]domain.Transaction, len(input))
	copy(snapshot, input)

	_, _ = Filter(input, 1000)

	assert.Equal(t, snapshot, input)
}

func TestFilter_Empty(t *testing.T) {
	kept, stats := Filter(nil, 1000)

	assert.Empty(t, kept)
	assert.Equal(t, 0, stats.Input)
	assert.Equal(t, 0, stats.Kept)
}
