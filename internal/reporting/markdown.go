package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Product Demand Quadrants\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	}

	// Parameters
	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| max_quantity | %d |\n", r.Params.MaxQuantity))
	sb.WriteString(fmt.Sprintf("| revenue_quantile | %.4f |\n", r.Params.RevenueQuantile))
	sb.WriteString(fmt.Sprintf("| max_sales_quantile | %.4f |\n", r.Params.MaxSalesQuantile))
	sb.WriteString("\n")

	// Data Summary
	ds := r.DataSummary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Input Rows | %d |\n", ds.InputRows))
	sb.WriteString(fmt.Sprintf("| Rows After Filtering | %d |\n", ds.FilteredRows))
	sb.WriteString(fmt.Sprintf("| Products | %d |\n", ds.Products))
	sb.WriteString(fmt.Sprintf("| Months | %d |\n", ds.Months))
	if ds.Months > 0 {
		sb.WriteString(fmt.Sprintf("| Month Range | %s to %s |\n", ds.FirstMonth, ds.LastMonth))
	}
	sb.WriteString("\n")

	// Data Quality (absent for reports rebuilt from stored runs)
	if r.DataQuality.SkippedRows > 0 || len(r.DataQuality.Drops) > 0 {
		sb.WriteString("## Data Quality\n\n")
		sb.WriteString("| Reason | Rows |\n")
		sb.WriteString("|--------|------|\n")
		if r.DataQuality.SkippedRows > 0 {
			sb.WriteString(fmt.Sprintf("| malformed (skipped at load) | %d |\n", r.DataQuality.SkippedRows))
		}
		for _, d := range r.DataQuality.Drops {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", d.Reason, d.Count))
		}
		sb.WriteString("\n")
	}

	// Thresholds
	sb.WriteString("## Thresholds\n\n")
	if r.Thresholds == nil {
		sb.WriteString("No products survived filtering; no thresholds computed.\n\n")
		return sb.String()
	}
	sb.WriteString("| Threshold | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Revenue | %.4f |\n", r.Thresholds.Revenue))
	sb.WriteString(fmt.Sprintf("| Max Sales | %.4f |\n", r.Thresholds.MaxSales))
	sb.WriteString(fmt.Sprintf("| CV | %.4f |\n", r.Thresholds.CV))
	sb.WriteString("\n")

	// Quadrants
	sb.WriteString("## Quadrants\n\n")
	sb.WriteString("| Label | Quadrant | Products | Share | Mean Revenue | Mean CV |\n")
	sb.WriteString("|-------|----------|----------|-------|--------------|---------|\n")
	for _, q := range r.Quadrants {
		sb.WriteString(fmt.Sprintf("| %d | %s | %d | %.2f%% | %.4f | %.4f |\n",
			int(q.Label), q.Label, q.Products, q.Share*100, q.MeanRevenue, q.MeanCV))
	}
	sb.WriteString("\n")

	// Top Products
	if len(r.TopProducts) > 0 {
		sb.WriteString("## Top Products\n\n")
		sb.WriteString("| Quadrant | StockCode | Description | Avg Revenue | Max Sales | CV |\n")
		sb.WriteString("|----------|-----------|-------------|-------------|-----------|----|\n")
		for _, p := range r.TopProducts {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %d | %.4f |\n",
				p.Label, p.StockCode, escapeCell(p.Description), p.AvgRevenue, p.MaxSales, p.CV))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
