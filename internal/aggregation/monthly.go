// Package aggregation builds the dense product x month quantity matrix.
package aggregation

import (
	"sort"

	"retail-demand-lab/internal/domain"
)

// MonthlySeries is a dense matrix of summed quantities.
// Every product carries one cell per month in Months, zero-filled where it had no sales.
type MonthlySeries struct {
	months   []domain.MonthPeriod
	products []string
	cells    map[string][]int64 // stock_code -> quantities aligned with months
}

// BuildMonthlySeries groups transactions by (stock_code, month) and sums quantity.
//
// Month axis: the union of months observed anywhere in txs, sorted ascending.
// It is computed once, before any product row is filled, so every product row
// spans the same domain. Products are sorted by stock code.
// Undated rows are skipped, so a product seen only on undated rows has no row.
// An empty input yields an empty series.
func BuildMonthlySeries(txs []domain.Transaction) *MonthlySeries {
	// Pass 1: month domain and product set
	monthSet := make(map[domain.MonthPeriod]struct{})
	productSet := make(map[string]struct{})
	for i := range txs {
		if !txs[i].HasInvoiceDate() {
			continue
		}
		monthSet[txs[i].Period()] = struct{}{}
		productSet[txs[i].StockCode] = struct{}{}
	}

	months := make([]domain.MonthPeriod, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Before(months[j])
	})

	monthIndex := make(map[domain.MonthPeriod]int, len(months))
	for i, m := range months {
		monthIndex[m] = i
	}

	products := make([]string, 0, len(productSet))
	for p := range productSet {
		products = append(products, p)
	}
	sort.Strings(products)

	// Pass 2: zero-initialise every product over the full domain
	cells := make(map[string][]int64, len(products))
	for _, p := range products {
		cells[p] = make([]int64, len(months))
	}

	// Pass 3: accumulate
	for i := range txs {
		t := &txs[i]
		if !t.HasInvoiceDate() {
			continue
		}
		cells[t.StockCode][monthIndex[t.Period()]] += t.Quantity
	}

	return &MonthlySeries{
		months:   months,
		products: products,
		cells:    cells,
	}
}

// Months returns the month domain in ascending order.
func (s *MonthlySeries) Months() []domain.MonthPeriod {
	out := make([]domain.MonthPeriod, len(s.months))
	copy(out, s.months)
	return out
}

// Products returns stock codes in ascending order.
func (s *MonthlySeries) Products() []string {
	out := make([]string, len(s.products))
	copy(out, s.products)
	return out
}

// MonthCount returns the size of the month domain.
func (s *MonthlySeries) MonthCount() int {
	return len(s.months)
}

// ProductCount returns the number of distinct products.
func (s *MonthlySeries) ProductCount() int {
	return len(s.products)
}

// Series returns a copy of the monthly quantities for a product, aligned with Months.
// Returns nil for an unknown stock code.
func (s *MonthlySeries) Series(stockCode string) []int64 {
	row, ok := s.cells[stockCode]
	if !ok {
		return nil
	}
	out := make([]int64, len(row))
	copy(out, row)
	return out
}

// Cells flattens the matrix ordered by (stock_code, month).
func (s *MonthlySeries) Cells() []domain.MonthlySalesCell {
	out := make([]domain.MonthlySalesCell, 0, len(s.products)*len(s.months))
	for _, p := range s.products {
		row := s.cells[p]
		for i, m := range s.months {
			out = append(out, domain.MonthlySalesCell{
				StockCode: p,
				Period:    m,
				Quantity:  row[i],
			})
		}
	}
	return out
}

