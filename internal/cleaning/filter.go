// Package cleaning prunes raw transactions to the rows the demand pipeline trusts.
package cleaning

import (
	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/idhash"
)

// DropReason names the first predicate a row failed.
type DropReason string

const (
	DropMissingValue        DropReason = "missing_value"
	DropNonPositiveQuantity DropReason = "non_positive_quantity"
	DropNonPositivePrice    DropReason = "non_positive_price"
	DropQuantityCeiling     DropReason = "quantity_ceiling"
	DropMissingCustomer     DropReason = "missing_customer"
	DropMissingStockCode    DropReason = "missing_stock_code"
	DropDuplicate           DropReason = "duplicate"
)

// DropReasons lists reasons in evaluation order.
var DropReasons = []DropReason{
	DropMissingValue,
	DropNonPositiveQuantity,
	DropNonPositivePrice,
	DropQuantityCeiling,
	DropMissingCustomer,
	DropMissingStockCode,
	DropDuplicate,
}

// FilterStats counts rows seen, kept and dropped per reason.
type FilterStats struct {
	Input   int
	Kept    int
	Dropped map[DropReason]int
}

// TotalDropped returns the number of rows removed for any reason.
func (s FilterStats) TotalDropped() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Filter returns the subsequence of txs that satisfies:
//   - quantity and unit_price present
//   - quantity > 0
//   - unit_price > 0
//   - quantity < maxQuantity
//   - customer_id present
//   - stock_code non-empty
//
// Exact duplicates (identical on every field except Seq) are collapsed to their
// first occurrence. Source order is preserved and txs is not modified.
// Rows failing a predicate are dropped silently and only counted in stats.
func Filter(txs []domain.Transaction, maxQuantity int64) ([]domain.Transaction, FilterStats) {
	stats := FilterStats{
		Input:   len(txs),
		Dropped: make(map[DropReason]int),
	}

	kept := make([]domain.Transaction, 0, len(txs))
	seen := make(map[string]struct{}, len(txs))

	for i := range txs {
		t := &txs[i]

		if reason, ok := rejectReason(t, maxQuantity); ok {
			stats.Dropped[reason]++
			continue
		}

		fp := idhash.ComputeRowFingerprint(t)
		if _, dup := seen[fp]; dup {
			stats.Dropped[DropDuplicate]++
			continue
		}
		seen[fp] = struct{}{}

		kept = append(kept, *t)
	}

	stats.Kept = len(kept)
	return kept, stats
}

// rejectReason returns the first failed predicate, if any.
func rejectReason(t *domain.Transaction, maxQuantity int64) (DropReason, bool) {
	switch {
	case t.Missing.Has(domain.MissingQuantity), t.Missing.Has(domain.MissingUnitPrice):
		return DropMissingValue, true
	case t.Quantity <= 0:
		return DropNonPositiveQuantity, true
	case !t.UnitPrice.IsPositive():
		return DropNonPositivePrice, true
	case t.Quantity >= maxQuantity:
		return DropQuantityCeiling, true
	case t.CustomerID == nil:
		return DropMissingCustomer, true
	case t.StockCode == "":
		return DropMissingStockCode, true
	}
	return "", false
}
