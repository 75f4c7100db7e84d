package aggregation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-demand-lab/internal/domain"
)

func sale(code string, qty int64, year int, month time.Month, day int) domain.Transaction {
	return domain.Transaction{
		StockCode:   code,
		Quantity:    qty,
		InvoiceDate: time.Date(year, month, day, 10, 0, 0, 0, time.UTC),
		UnitPrice:   decimal.RequireFromString("1.00"),
	}
}

func TestBuildMonthlySeries_SumsWithinMonth(t *testing.T) {
	txs := []domain.Transaction{
		sale("A", 3, 2011, time.January, 2),
		sale("A", 4, 2011, time.January, 31),
		sale("A", 5, 2011, time.February, 1),
	}

	s := BuildMonthlySeries(txs)

	require.Equal(t, 2, s.MonthCount())
	assert.Equal(t, []int64{7, 5}, s.Series("A"))
}

func TestBuildMonthlySeries_SkipsUndatedRows(t *testing.T) {
	undated := sale("A", 50, 2011, time.March, 1)
	undated.InvoiceDate = time.Time{}
	undated.Missing = domain.MissingInvoiceDate
	onlyUndated := undated
	onlyUndated.StockCode = "Z"

	s := BuildMonthlySeries([]domain.Transaction{
		sale("A", 3, 2011, time.January, 2),
		undated,
		onlyUndated,
	})

	require.Equal(t, 1, s.MonthCount())
	assert.Equal(t, []int64{3}, s.Series("A"))
	assert.Equal(t, []string{"A"}, s.Products())
	assert.Nil(t, s.Series("Z"))
}

func TestBuildMonthlySeries_DenseFill(t *testing.T) {
	// B only sells in March; A only in January. Both rows span Jan..Mar
	// because the month axis is the union across all products.
	txs := []domain.Transaction{
		sale("A", 10, 2011, time.January, 5),
		sale("C", 1, 2011, time.February, 5),
		sale("B", 20, 2011, time.March, 5),
	}

	s := BuildMonthlySeries(txs)

	require.Equal(t, 3, s.MonthCount())
	for _, p := range s.Products() {
		assert.Len(t, s.Series(p), s.MonthCount(), "product %s", p)
	}
	assert.Equal(t, []int64{10, 0, 0}, s.Series("A"))
	assert.Equal(t, []int64{0, 0, 20}, s.Series("B"))
	assert.Equal(t, []int64{0, 1, 0}, s.Series("C"))
}

func TestBuildMonthlySeries_GapMonthsNotInvented(t *testing.T) {
	// No sales anywhere in February: it is not part of the domain.
	txs := []domain.Transaction{
		sale("A", 1, 2011, time.January, 5),
		sale("A", 2, 2011, time.March, 5),
	}

	s := BuildMonthlySeries(txs)

	assert.Equal(t, []domain.MonthPeriod{
		{Year: 2011, Month: time.January},
		{Year: 2011, Month: time.March},
	}, s.Months())
	assert.Equal(t, []int64{1, 2}, s.Series("A"))
}

func TestBuildMonthlySeries_SortedAxes(t *testing.T) {
	txs := []domain.Transaction{
		sale("Z", 1, 2011, time.February, 5),
		sale("A", 1, 2010, time.December, 5),
		sale("M", 1, 2011, time.January, 5),
	}

	s := BuildMonthlySeries(txs)

	assert.Equal(t, []string{"A", "M", "Z"}, s.Products())
	assert.Equal(t, []domain.MonthPeriod{
		{Year: 2010, Month: time.December},
		{Year: 2011, Month: time.January},
		{Year: 2011, Month: time.February},
	}, s.Months())
}

func TestBuildMonthlySeries_Cells(t *testing.T) {
	txs := []domain.Transaction{
		sale("A", 10, 2011, time.January, 5),
		sale("B", 20, 2011, time.February, 5),
	}

	cells := BuildMonthlySeries(txs).Cells()

	jan := domain.MonthPeriod{Year: 2011, Month: time.January}
	feb := domain.MonthPeriod{Year: 2011, Month: time.February}
	assert.Equal(t, []domain.MonthlySalesCell{
		{StockCode: "A", Period: jan, Quantity: 10},
		{StockCode: "A", Period: feb, Quantity: 0},
		{StockCode: "B", Period: jan, Quantity: 0},
		{StockCode: "B", Period: feb, Quantity: 20},
	}, cells)
}

func TestBuildMonthlySeries_SeriesReturnsCopy(t *testing.T) {
	s := BuildMonthlySeries([]domain.Transaction{sale("A", 10, 2011, time.January, 5)})

	row := s.Series("A")
	row[0] = 999

	assert.Equal(t, []int64{10}, s.Series("A"))
	assert.Nil(t, s.Series("missing"))
}

func TestBuildMonthlySeries_Empty(t *testing.T) {
	s := BuildMonthlySeries(nil)

	assert.Equal(t, 0, s.MonthCount())
	assert.Equal(t, 0, s.ProductCount())
	assert.Empty(t, s.Cells())
}
