package domain

// Params are the numeric knobs of a classification run.
type Params struct {
	MaxQuantity      int64   // exclusive upper bound on quantity
	RevenueQuantile  float64 // quantile of avg_revenue used as revenue cutoff, in [0,1]
	MaxSalesQuantile float64 // quantile of max_sales used as peak cutoff, in [0,1]
}

// Thresholds are the global cutoffs shared by every classification in a run.
// Computed once from the complete feature table and never mutated.
type Thresholds struct {
	Revenue  float64 // quantile of avg_revenue
	MaxSales float64 // quantile of max_sales
	CV       float64 // median of cv
}

// ClassificationRun describes one pipeline execution.
// Corresponds to classification_runs table in PostgreSQL.
type ClassificationRun struct {
	RunID        string
	CreatedAt    int64 // Unix ms
	Params       Params
	Thresholds   *Thresholds // NULL when no product survived filtering
	InputRows    int
	FilteredRows int
	ProductCount int
	MonthCount   int
	LabelCounts  [4]int // indexed by Label
}
