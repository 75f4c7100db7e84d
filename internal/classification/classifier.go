// Package classification assigns demand quadrants from run-wide thresholds.
package classification

import "retail-demand-lab/internal/domain"

// Classify assigns a quadrant to one product.
//
//	high revenue = avg_revenue > th.Revenue OR max_sales > th.MaxSales
//	stable       = cv <= th.CV
//
// A value equal to a revenue or peak threshold is not high revenue; a cv equal
// to the cv threshold is stable.
func Classify(f *domain.ProductFeatures, th domain.Thresholds) domain.Label {
	highRevenue := f.AvgRevenue > th.Revenue || float64(f.MaxSales) > th.MaxSales
	stable := f.CV <= th.CV

	switch {
	case highRevenue && stable:
		return domain.LabelHighRevenueStable
	case highRevenue:
		return domain.LabelHighRevenueVolatile
	case stable:
		return domain.LabelLowRevenueStable
	default:
		return domain.LabelLowRevenueVolatile
	}
}

// ClassifyAll labels every product with the same thresholds, preserving input order.
func ClassifyAll(features []*domain.ProductFeatures, th domain.Thresholds) []*domain.ProductRecord {
	out := make([]*domain.ProductRecord, len(features))
	for i, f := range features {
		out[i] = &domain.ProductRecord{
			ProductFeatures: *f,
			Label:           Classify(f, th),
		}
	}
	return out
}

// CountLabels tallies records per quadrant, indexed by label.
func CountLabels(records []*domain.ProductRecord) [4]int {
	var counts [4]int
	for _, r := range records {
		if r.Label.Valid() {
			counts[r.Label]++
		}
	}
	return counts
}
