package reporting

import (
	"sort"
	"time"

	"retail-demand-lab/internal/cleaning"
	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/pipeline"
)

// DefaultTopN is the number of products listed per quadrant.
const DefaultTopN = 5

// Generator produces run reports from pipeline output.
type Generator struct {
	topN int
	now  func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		topN: DefaultTopN,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTopN sets how many products are listed per quadrant. 0 disables the table.
func (g *Generator) WithTopN(n int) *Generator {
	g.topN = n
	return g
}

// Generate builds a report for one run. skippedRows is the loader's malformed row count.
func (g *Generator) Generate(runID string, params domain.Params, res *pipeline.Result, skippedRows int) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Params:      params,
		Thresholds:  res.Thresholds,
		DataSummary: g.generateDataSummary(res),
		DataQuality: DataQualitySection{SkippedRows: skippedRows},
	}

	for _, reason := range cleaning.DropReasons {
		r.DataQuality.Drops = append(r.DataQuality.Drops, DropRow{
			Reason: string(reason),
			Count:  res.FilterStats.Dropped[reason],
		})
	}

	r.Quadrants = generateQuadrants(res.Records)
	r.TopProducts = generateTopProducts(res.Records, g.topN)
	return r
}

// GenerateFromRun builds a report for a stored run. Per-reason drop counts are
// not persisted, so the data quality section lists none. cells, when given,
// supply the month range.
func (g *Generator) GenerateFromRun(run *domain.ClassificationRun, records []*domain.ProductRecord, cells []domain.MonthlySalesCell) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		RunID:       run.RunID,
		Params:      run.Params,
		Thresholds:  run.Thresholds,
		DataSummary: DataSummary{
			InputRows:    run.InputRows,
			FilteredRows: run.FilteredRows,
			Products:     len(records),
			Months:       run.MonthCount,
		},
	}

	if len(cells) > 0 {
		first, last := cells[0].Period, cells[0].Period
		for _, c := range cells[1:] {
			if c.Period.Before(first) {
				first = c.Period
			}
			if last.Before(c.Period) {
				last = c.Period
			}
		}
		r.DataSummary.FirstMonth = first.String()
		r.DataSummary.LastMonth = last.String()
	}

	r.Quadrants = generateQuadrants(records)
	r.TopProducts = generateTopProducts(records, g.topN)
	return r
}

func (g *Generator) generateDataSummary(res *pipeline.Result) DataSummary {
	ds := DataSummary{
		InputRows:    res.FilterStats.Input,
		FilteredRows: res.FilterStats.Kept,
		Products:     len(res.Records),
	}
	if res.Series != nil {
		months := res.Series.Months()
		ds.Months = len(months)
		if len(months) > 0 {
			ds.FirstMonth = months[0].String()
			ds.LastMonth = months[len(months)-1].String()
		}
	}
	return ds
}

// generateQuadrants returns one row per label, highest label first.
func generateQuadrants(records []*domain.ProductRecord) []QuadrantRow {
	rows := make([]QuadrantRow, 0, len(domain.AllLabels))
	for i := len(domain.AllLabels) - 1; i >= 0; i-- {
		label := domain.AllLabels[i]
		row := QuadrantRow{Label: label}
		var revSum, cvSum float64
		for _, rec := range records {
			if rec.Label != label {
				continue
			}
			row.Products++
			revSum += rec.AvgRevenue
			cvSum += rec.CV
		}
		if row.Products > 0 {
			row.Share = float64(row.Products) / float64(len(records))
			row.MeanRevenue = revSum / float64(row.Products)
			row.MeanCV = cvSum / float64(row.Products)
		}
		rows = append(rows, row)
	}
	return rows
}

// generateTopProducts lists up to n products per label by avg_revenue descending.
// Ties break by stock code for deterministic output.
func generateTopProducts(records []*domain.ProductRecord, n int) []TopProductRow {
	if n <= 0 {
		return nil
	}

	byLabel := make(map[domain.Label][]*domain.ProductRecord)
	for _, rec := range records {
		byLabel[rec.Label] = append(byLabel[rec.Label], rec)
	}

	var rows []TopProductRow
	for i := len(domain.AllLabels) - 1; i >= 0; i-- {
		label := domain.AllLabels[i]
		group := byLabel[label]
		sort.Slice(group, func(a, b int) bool {
			if group[a].AvgRevenue != group[b].AvgRevenue {
				return group[a].AvgRevenue > group[b].AvgRevenue
			}
			return group[a].StockCode < group[b].StockCode
		})
		if len(group) > n {
			group = group[:n]
		}
		for _, rec := range group {
			desc := ""
			if rec.Description != nil {
				desc = *rec.Description
			}
			rows = append(rows, TopProductRow{
				Label:       label,
				StockCode:   rec.StockCode,
				Description: desc,
				AvgRevenue:  rec.AvgRevenue,
				MaxSales:    rec.MaxSales,
				CV:          rec.CV,
			})
		}
	}
	return rows
}
