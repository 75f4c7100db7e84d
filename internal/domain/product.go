package domain

// ProductFeatures holds per-product statistics derived from the monthly series.
type ProductFeatures struct {
	StockCode   string
	AvgSales    float64 // mean monthly quantity over the full month domain
	StdDev      float64 // sample stddev (n-1), NaN when only one month exists
	MaxSales    int64   // largest monthly quantity
	CV          float64 // StdDev / AvgSales, 0 when undefined
	UnitPrice   float64 // mean unit price over surviving transactions
	Description *string // first non-NULL description in source order
	AvgRevenue  float64 // AvgSales * UnitPrice
}

// ProductRecord is a classified product, the unit of pipeline output.
// Field order matches the exported table:
// stock_code, avg_sales, std_dev, max_sales, cv, unit_price, description, avg_revenue, label.
type ProductRecord struct {
	ProductFeatures
	Label Label
}
