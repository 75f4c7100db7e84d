package reporting

import (
	"time"

	"retail-demand-lab/internal/domain"
)

// Report represents the run summary.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Params      domain.Params
	Thresholds  *domain.Thresholds // nil when no product survived filtering

	// Data Summary
	DataSummary DataSummary

	// Data Quality (load and filter accounting)
	DataQuality DataQualitySection

	// Quadrants (ordered by label, descending)
	Quadrants []QuadrantRow

	// Top products per quadrant by avg_revenue
	TopProducts []TopProductRow
}

// DataSummary describes the data the run saw.
type DataSummary struct {
	InputRows    int
	FilteredRows int
	Products     int
	Months       int
	FirstMonth   string // YYYY-MM, empty without data
	LastMonth    string
}

// DataQualitySection contains load and filter drop counts.
type DataQualitySection struct {
	SkippedRows int
	Drops       []DropRow // in filter evaluation order
}

// DropRow counts rows removed for one reason.
type DropRow struct {
	Reason string
	Count  int
}

// QuadrantRow summarizes one label.
type QuadrantRow struct {
	Label       domain.Label
	Products    int
	Share       float64 // fraction of all products
	MeanRevenue float64
	MeanCV      float64
}

// TopProductRow represents one row in the top products table.
type TopProductRow struct {
	Label       domain.Label
	StockCode   string
	Description string
	AvgRevenue  float64
	MaxSales    int64
	CV          float64
}
