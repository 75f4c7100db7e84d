package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// ClassificationRunStore implements storage.ClassificationRunStore using PostgreSQL.
type ClassificationRunStore struct {
	pool *Pool
}

// NewClassificationRunStore creates a new ClassificationRunStore.
func NewClassificationRunStore(pool *Pool) *ClassificationRunStore {
	return &ClassificationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClassificationRunStore = (*ClassificationRunStore)(nil)

const selectRuns = `
	SELECT run_id, created_at, max_quantity, revenue_quantile, max_sales_quantile,
		revenue_threshold, max_sales_threshold, cv_threshold,
		input_rows, filtered_rows, product_count, month_count, label_counts
	FROM classification_runs
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ClassificationRunStore) Insert(ctx context.Context, run *domain.ClassificationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO classification_runs (
			run_id, created_at, max_quantity, revenue_quantile, max_sales_quantile,
			revenue_threshold, max_sales_threshold, cv_threshold,
			input_rows, filtered_rows, product_count, month_count, label_counts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var revenue, maxSales, cv *float64
	if th := run.Thresholds; th != nil {
		revenue, maxSales, cv = &th.Revenue, &th.MaxSales, &th.CV
	}

	labelCounts := make([]int32, len(run.LabelCounts))
	for i, n := range run.LabelCounts {
		labelCounts[i] = int32(n)
	}

	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.CreatedAt, run.Params.MaxQuantity, run.Params.RevenueQuantile, run.Params.MaxSalesQuantile,
		revenue, maxSales, cv,
		run.InputRows, run.FilteredRows, run.ProductCount, run.MonthCount, labelCounts,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert classification run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ClassificationRunStore) GetByID(ctx context.Context, runID string) (*domain.ClassificationRun, error) {
	row := s.pool.QueryRow(ctx, selectRuns+` WHERE run_id = $1`, runID)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get classification run by id: %w", err)
	}
	return run, nil
}

// GetLatest retrieves the most recently created run. Returns ErrNotFound if none.
func (s *ClassificationRunStore) GetLatest(ctx context.Context) (*domain.ClassificationRun, error) {
	row := s.pool.QueryRow(ctx, selectRuns+` ORDER BY created_at DESC, run_id DESC LIMIT 1`)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest classification run: %w", err)
	}
	return run, nil
}

// List retrieves all runs ordered by created_at ASC, run_id ASC.
func (s *ClassificationRunStore) List(ctx context.Context) ([]*domain.ClassificationRun, error) {
	rows, err := s.pool.Query(ctx, selectRuns+` ORDER BY created_at ASC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list classification runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.ClassificationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan classification run: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classification runs: %w", err)
	}
	return result, nil
}

// scanRun scans a single row.
func scanRun(row pgx.Row) (*domain.ClassificationRun, error) {
	var run domain.ClassificationRun
	var revenue, maxSales, cv *float64
	var labelCounts []int32

	err := row.Scan(
		&run.RunID, &run.CreatedAt, &run.Params.MaxQuantity, &run.Params.RevenueQuantile, &run.Params.MaxSalesQuantile,
		&revenue, &maxSales, &cv,
		&run.InputRows, &run.FilteredRows, &run.ProductCount, &run.MonthCount, &labelCounts,
	)
	if err != nil {
		return nil, err
	}

	if revenue != nil && maxSales != nil && cv != nil {
		run.Thresholds = &domain.Thresholds{Revenue: *revenue, MaxSales: *maxSales, CV: *cv}
	}
	for i := 0; i < len(labelCounts) && i < len(run.LabelCounts); i++ {
		run.LabelCounts[i] = int(labelCounts[i])
	}

	return &run, nil
}
