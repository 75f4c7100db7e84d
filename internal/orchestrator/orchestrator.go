// Package orchestrator runs a classification end to end against storage.
// It coordinates: load transactions → pipeline → persist run, records and monthly cells
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/logger"
	"retail-demand-lab/internal/observability"
	"retail-demand-lab/internal/pipeline"
	"retail-demand-lab/internal/storage"
)

// ErrMissingStore is returned by Run when a required store is not configured.
var ErrMissingStore = errors.New("required store not configured")

// TimeWindow restricts the transactions loaded from the store to [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Orchestrator coordinates one classification run.
// Flow: load transactions → pipeline.Run → persist
type Orchestrator struct {
	// Stores
	transactionStore storage.TransactionStore
	runStore         storage.ClassificationRunStore
	recordStore      storage.ProductRecordStore
	monthlyStore     storage.MonthlySalesStore

	// Run configuration
	params  domain.Params
	workers int
	window  *TimeWindow

	// Observability
	metrics   *observability.Metrics
	storeName string

	now      func() time.Time
	newRunID func() string
}

// Options for creating Orchestrator.
type Options struct {
	// Required for Run. Execute works without it.
	TransactionStore storage.TransactionStore

	// Required stores
	RunStore    storage.ClassificationRunStore
	RecordStore storage.ProductRecordStore

	// Optional: dense monthly matrix, skipped when nil
	MonthlyStore storage.MonthlySalesStore

	Params  domain.Params
	Workers int
	Window  *TimeWindow // nil loads every stored transaction

	Metrics   *observability.Metrics
	StoreName string // database label for metrics, default "memory"

	// Injectable for deterministic tests
	Clock    func() time.Time
	NewRunID func() string
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		transactionStore: opts.TransactionStore,
		runStore:         opts.RunStore,
		recordStore:      opts.RecordStore,
		monthlyStore:     opts.MonthlyStore,
		params:           opts.Params,
		workers:          opts.Workers,
		window:           opts.Window,
		metrics:          opts.Metrics,
		storeName:        opts.StoreName,
		now:              opts.Clock,
		newRunID:         opts.NewRunID,
	}
	if o.storeName == "" {
		o.storeName = "memory"
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	return o
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Run    *domain.ClassificationRun
	Result *pipeline.Result
}

// Run loads transactions from the transaction store, classifies them and
// persists the outcome.
// Phases:
//  1. Load transactions (optionally within the time window)
//  2. Run the pipeline
//  3. Persist run, product records and monthly cells
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if o.transactionStore == nil {
		return nil, fmt.Errorf("%w: transaction store", ErrMissingStore)
	}

	log := logger.WithComponent(logger.FromContext(ctx), "orchestrator")

	log.Info().Msg("phase 1: loading transactions")
	txs, err := o.loadTransactions(ctx)
	if err != nil {
		o.metrics.RecordPipelineRun(observability.StatusFailure, 0, o.now())
		return nil, fmt.Errorf("phase 1 (load transactions) failed: %w", err)
	}
	log.Info().Int("transactions", len(txs)).Msg("transactions loaded")
	o.metrics.RecordLoaded(o.storeName, len(txs), 0)

	return o.Execute(ctx, txs)
}

// Execute classifies txs and persists the outcome. Used directly when
// transactions come from a file rather than the transaction store.
func (o *Orchestrator) Execute(ctx context.Context, txs []domain.Transaction) (*RunResult, error) {
	if o.runStore == nil || o.recordStore == nil {
		return nil, fmt.Errorf("%w: run and record stores", ErrMissingStore)
	}

	log := logger.WithComponent(logger.FromContext(ctx), "orchestrator")
	startedAt := o.now()

	log.Info().Msg("phase 2: running pipeline")
	res, err := pipeline.Run(ctx, o.params, txs, pipeline.Options{
		Workers: o.workers,
		Metrics: o.metrics,
	})
	if err != nil {
		o.metrics.RecordPipelineRun(observability.StatusFailure, 0, startedAt)
		return nil, fmt.Errorf("phase 2 (pipeline) failed: %w", err)
	}

	run := o.buildRun(startedAt, res)
	log = log.With().Str("run_id", run.RunID).Logger()

	log.Info().Msg("phase 3: persisting run")
	if err := o.persist(ctx, run, res); err != nil {
		o.metrics.RecordPipelineRun(observability.StatusFailure, run.MonthCount, startedAt)
		return nil, fmt.Errorf("phase 3 (persist) failed: %w", err)
	}

	o.metrics.RecordPipelineRun(observability.StatusSuccess, run.MonthCount, o.now())
	log.Info().
		Int("products", run.ProductCount).
		Int("months", run.MonthCount).
		Ints("label_counts", run.LabelCounts[:]).
		Msg("run completed")

	return &RunResult{Run: run, Result: res}, nil
}

// loadTransactions loads all or windowed transactions from store.
func (o *Orchestrator) loadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	start := time.Now()
	var (
		txs []domain.Transaction
		err error
	)
	if o.window != nil {
		txs, err = o.transactionStore.GetByTimeRange(ctx, o.window.Start, o.window.End)
	} else {
		txs, err = o.transactionStore.GetAll(ctx)
	}
	o.metrics.RecordDBQuery(o.storeName, "load_transactions", time.Since(start), err)
	return txs, err
}

func (o *Orchestrator) buildRun(startedAt time.Time, res *pipeline.Result) *domain.ClassificationRun {
	run := &domain.ClassificationRun{
		RunID:        o.newRunID(),
		CreatedAt:    startedAt.UnixMilli(),
		Params:       o.params,
		InputRows:    res.FilterStats.Input,
		FilteredRows: res.FilterStats.Kept,
		ProductCount: len(res.Records),
		LabelCounts:  res.LabelCounts,
	}
	if res.Thresholds != nil {
		th := *res.Thresholds
		run.Thresholds = &th
	}
	if res.Series != nil {
		run.MonthCount = res.Series.MonthCount()
	}
	return run
}

// persist writes the run first so records and cells never reference an unknown run.
func (o *Orchestrator) persist(ctx context.Context, run *domain.ClassificationRun, res *pipeline.Result) error {
	if err := o.timed(ctx, "insert_run", func(ctx context.Context) error {
		return o.runStore.Insert(ctx, run)
	}); err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	if err := o.timed(ctx, "insert_product_records", func(ctx context.Context) error {
		return o.recordStore.InsertBulk(ctx, run.RunID, res.Records)
	}); err != nil {
		return fmt.Errorf("insert product records: %w", err)
	}

	if o.monthlyStore == nil || res.Series == nil {
		return nil
	}
	cells := res.Series.Cells()
	if err := o.timed(ctx, "insert_monthly_sales", func(ctx context.Context) error {
		return o.monthlyStore.InsertBulk(ctx, run.RunID, cells)
	}); err != nil {
		return fmt.Errorf("insert monthly sales: %w", err)
	}
	return nil
}

func (o *Orchestrator) timed(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	o.metrics.RecordDBQuery(o.storeName, op, time.Since(start), err)
	return err
}
