package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"retail-demand-lab/internal/domain"
)

// ProductCSVHeader is the stable column order of the labeled product table.
var ProductCSVHeader = []string{
	"StockCode", "Avg_Sales", "Std_Dev", "Max_Sales", "CV",
	"UnitPrice", "Description", "Avg_Revenue", "Label",
}

// WriteProductsCSV writes records as CSV to w. NaN values (std_dev of a
// single-month series) are written as empty cells, NULL descriptions likewise.
func WriteProductsCSV(w io.Writer, records []*domain.ProductRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ProductCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(ProductCSVHeader))
	for _, r := range records {
		row[0] = r.StockCode
		row[1] = formatFloat(r.AvgSales)
		row[2] = formatFloat(r.StdDev)
		row[3] = strconv.FormatInt(r.MaxSales, 10)
		row[4] = formatFloat(r.CV)
		row[5] = formatFloat(r.UnitPrice)
		row[6] = ""
		if r.Description != nil {
			row[6] = *r.Description
		}
		row[7] = formatFloat(r.AvgRevenue)
		row[8] = strconv.Itoa(int(r.Label))

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.StockCode, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// RenderCSV renders records as a CSV string.
func RenderCSV(records []*domain.ProductRecord) (string, error) {
	var sb strings.Builder
	if err := WriteProductsCSV(&sb, records); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// formatFloat writes the shortest round-trip digits with a decimal point,
// switching to exponent form outside 1e-4 <= |v| < 1e16 (10 -> "10.0",
// 0.00001 -> "1e-05").
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if v != 0 {
		e := strconv.FormatFloat(v, 'e', -1, 64)
		exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
		if err == nil && (exp < -4 || exp >= 16) {
			return e
		}
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
