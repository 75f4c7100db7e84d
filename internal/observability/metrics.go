// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retail-demand-lab/internal/domain"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Load metrics
	TransactionsLoaded  *prometheus.CounterVec
	RowsSkipped         prometheus.Counter
	TransactionsDropped *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	ProductsLabeled   *prometheus.CounterVec
	MonthsObserved    prometheus.Gauge

	// Threshold metrics
	RevenueThreshold  prometheus.Gauge
	MaxSalesThreshold prometheus.Gauge
	CVThreshold       prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "retail_demand_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Load metrics
		TransactionsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "transactions_loaded_total",
			Help:      "Total number of transactions loaded by source kind",
		}, []string{"source"}),
		RowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "rows_skipped_total",
			Help:      "Total number of malformed rows skipped by loaders",
		}),
		TransactionsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleaning",
			Name:      "transactions_dropped_total",
			Help:      "Total number of transactions dropped by the filter by reason",
		}, []string{"reason"}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"stage"}),
		ProductsLabeled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "products_labeled_total",
			Help:      "Total number of products labeled by quadrant",
		}, []string{"label"}),
		MonthsObserved: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "months_observed",
			Help:      "Number of months in the last run's month domain",
		}),

		// Threshold metrics
		RevenueThreshold: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "thresholds",
			Name:      "revenue",
			Help:      "Revenue threshold of the last run",
		}),
		MaxSalesThreshold: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "thresholds",
			Name:      "max_sales",
			Help:      "Max monthly sales threshold of the last run",
		}),
		CVThreshold: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "thresholds",
			Name:      "cv",
			Help:      "Coefficient of variation threshold of the last run",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint serving g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordLoaded records transactions loaded from a source and rows skipped.
func (m *Metrics) RecordLoaded(source string, rows, skipped int) {
	if m == nil {
		return
	}
	m.TransactionsLoaded.WithLabelValues(source).Add(float64(rows))
	m.RowsSkipped.Add(float64(skipped))
}

// RecordDropped records filter drops for a reason.
func (m *Metrics) RecordDropped(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.TransactionsDropped.WithLabelValues(reason).Add(float64(n))
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordThresholds sets the threshold gauges.
func (m *Metrics) RecordThresholds(th domain.Thresholds) {
	if m == nil {
		return
	}
	m.RevenueThreshold.Set(th.Revenue)
	m.MaxSalesThreshold.Set(th.MaxSales)
	m.CVThreshold.Set(th.CV)
}

// RecordLabels adds per-quadrant product counts.
func (m *Metrics) RecordLabels(counts [4]int) {
	if m == nil {
		return
	}
	for _, l := range domain.AllLabels {
		m.ProductsLabeled.WithLabelValues(l.String()).Add(float64(counts[l]))
	}
}

// RecordPipelineRun records a finished run.
func (m *Metrics) RecordPipelineRun(status string, months int, at time.Time) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.MonthsObserved.Set(float64(months))
		m.LastSuccessfulPipeline.Set(float64(at.Unix()))
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
