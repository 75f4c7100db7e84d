package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retail-demand-lab/internal/aggregation"
	"retail-demand-lab/internal/classification"
	"retail-demand-lab/internal/cleaning"
	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/features"
	"retail-demand-lab/internal/logger"
	"retail-demand-lab/internal/observability"
	"retail-demand-lab/internal/thresholds"
)

// ErrInvalidParams is returned before any stage runs when params are unusable.
var ErrInvalidParams = errors.New("invalid pipeline params")

// Stage names, used in logs and metrics.
const (
	StageFilter     = "filter"
	StageAggregate  = "aggregate"
	StageExtract    = "extract"
	StageThresholds = "thresholds"
	StageClassify   = "classify"
)

// Options configures a pipeline run.
type Options struct {
	// Workers bounds feature extraction fan-out. 0 or 1 runs sequentially.
	Workers int
	// Metrics is optional.
	Metrics *observability.Metrics
}

// Result holds the output of one run.
type Result struct {
	Records     []*domain.ProductRecord
	Thresholds  *domain.Thresholds // nil when no product survived filtering
	FilterStats cleaning.FilterStats
	Series      *aggregation.MonthlySeries
	LabelCounts [4]int
}

// ValidateParams checks params without touching any data.
func ValidateParams(params domain.Params) error {
	if params.MaxQuantity <= 0 {
		return fmt.Errorf("%w: max_quantity must be positive, got %d", ErrInvalidParams, params.MaxQuantity)
	}
	if err := thresholds.ValidateQuantile("revenue_quantile", params.RevenueQuantile); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := thresholds.ValidateQuantile("max_sales_quantile", params.MaxSalesQuantile); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// Run executes filter, aggregate, extract, thresholds and classify strictly in
// that order. txs is not modified.
//
// When no product survives filtering the result has no records, nil Thresholds
// and no error.
func Run(ctx context.Context, params domain.Params, txs []domain.Transaction, opts Options) (*Result, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	log := logger.WithComponent(logger.FromContext(ctx), "pipeline")
	m := opts.Metrics

	start := time.Now()
	filtered, stats := cleaning.Filter(txs, params.MaxQuantity)
	m.ObserveStage(StageFilter, time.Since(start))
	for _, reason := range cleaning.DropReasons {
		m.RecordDropped(string(reason), stats.Dropped[reason])
	}
	log.Info().
		Int("input", stats.Input).
		Int("kept", stats.Kept).
		Int("dropped", stats.TotalDropped()).
		Int("duplicates", stats.Dropped[cleaning.DropDuplicate]).
		Msg("filter done")

	start = time.Now()
	series := aggregation.BuildMonthlySeries(filtered)
	m.ObserveStage(StageAggregate, time.Since(start))
	log.Info().
		Int("products", series.ProductCount()).
		Int("months", series.MonthCount()).
		Msg("monthly series built")

	result := &Result{
		Records:     []*domain.ProductRecord{},
		FilterStats: stats,
		Series:      series,
	}

	if series.ProductCount() == 0 {
		log.Warn().Msg("no products after filtering")
		return result, nil
	}

	start = time.Now()
	feats, err := features.Extract(ctx, series, filtered, features.Options{Workers: opts.Workers})
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	m.ObserveStage(StageExtract, time.Since(start))

	start = time.Now()
	th, err := thresholds.Calculate(feats, params)
	if err != nil {
		return nil, fmt.Errorf("calculate thresholds: %w", err)
	}
	m.ObserveStage(StageThresholds, time.Since(start))
	m.RecordThresholds(th)
	log.Info().
		Float64("revenue", th.Revenue).
		Float64("max_sales", th.MaxSales).
		Float64("cv", th.CV).
		Msg("thresholds computed")

	start = time.Now()
	records := classification.ClassifyAll(feats, th)
	m.ObserveStage(StageClassify, time.Since(start))

	result.Records = records
	result.Thresholds = &th
	result.LabelCounts = classification.CountLabels(records)
	m.RecordLabels(result.LabelCounts)

	log.Info().
		Int("products", len(records)).
		Ints("label_counts", result.LabelCounts[:]).
		Msg("classification done")

	return result, nil
}
