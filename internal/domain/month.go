package domain

import (
	"fmt"
	"time"
)

// MonthPeriod is a calendar year-month bucket. Day and time-of-day are discarded.
type MonthPeriod struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month period containing t, in t's own location.
func PeriodOf(t time.Time) MonthPeriod {
	return MonthPeriod{Year: t.Year(), Month: t.Month()}
}

// ParseMonthPeriod parses a "YYYY-MM" string.
func ParseMonthPeriod(s string) (MonthPeriod, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthPeriod{}, fmt.Errorf("parse month period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

// Before reports whether p is earlier than other.
func (p MonthPeriod) Before(other MonthPeriod) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Start returns the first instant of the period in UTC.
func (p MonthPeriod) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// String formats the period as "YYYY-MM".
func (p MonthPeriod) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MonthlySalesCell is one cell of the dense product x month quantity matrix.
// Corresponds to monthly_sales table in ClickHouse.
type MonthlySalesCell struct {
	StockCode string
	Period    MonthPeriod
	Quantity  int64 // SUM(quantity), 0 when the product had no sales that month
}
