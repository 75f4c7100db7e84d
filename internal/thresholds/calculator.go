// Package thresholds computes the global cutoffs used to classify products.
package thresholds

import (
	"errors"
	"fmt"
	"math"

	"retail-demand-lab/internal/domain"
)

var (
	// ErrInvalidQuantile is returned for a quantile outside [0,1] or NaN.
	ErrInvalidQuantile = errors.New("quantile must be within [0,1]")

	// ErrNoProducts is returned when the feature table is empty.
	ErrNoProducts = errors.New("no products to compute thresholds from")
)

// Calculate computes the three run-wide thresholds from the complete feature table:
//   - Revenue  = params.RevenueQuantile quantile of avg_revenue
//   - MaxSales = params.MaxSalesQuantile quantile of max_sales
//   - CV       = median of cv
//
// Values are sorted before use, so the result does not depend on table order.
func Calculate(features []*domain.ProductFeatures, params domain.Params) (domain.Thresholds, error) {
	if err := ValidateQuantile("revenue_quantile", params.RevenueQuantile); err != nil {
		return domain.Thresholds{}, err
	}
	if err := ValidateQuantile("max_sales_quantile", params.MaxSalesQuantile); err != nil {
		return domain.Thresholds{}, err
	}
	if len(features) == 0 {
		return domain.Thresholds{}, ErrNoProducts
	}

	revenues := make([]float64, len(features))
	maxSales := make([]float64, len(features))
	cvs := make([]float64, len(features))
	for i, f := range features {
		revenues[i] = f.AvgRevenue
		maxSales[i] = float64(f.MaxSales)
		cvs[i] = f.CV
	}

	return domain.Thresholds{
		Revenue:  computeQuantile(sortedCopy(revenues), params.RevenueQuantile),
		MaxSales: computeQuantile(sortedCopy(maxSales), params.MaxSalesQuantile),
		CV:       computeMedian(sortedCopy(cvs)),
	}, nil
}

// ValidateQuantile checks that q lies within [0,1].
func ValidateQuantile(name string, q float64) error {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return fmt.Errorf("%w: %s=%v", ErrInvalidQuantile, name, q)
	}
	return nil
}
