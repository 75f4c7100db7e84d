package storage

import (
	"context"
	"time"

	"retail-demand-lab/internal/domain"
)

// TransactionStore provides access to transactions storage.
type TransactionStore interface {
	// InsertBulk adds multiple transactions atomically. Fails entire batch on duplicate seq.
	InsertBulk(ctx context.Context, txs []domain.Transaction) error

	// GetAll retrieves every transaction ordered by seq ASC (source order).
	GetAll(ctx context.Context) ([]domain.Transaction, error)

	// GetByTimeRange retrieves transactions invoiced within [start, end), ordered by seq ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]domain.Transaction, error)

	// Count returns the number of stored transactions.
	Count(ctx context.Context) (int, error)
}

// ClassificationRunStore provides access to classification_runs storage.
type ClassificationRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.ClassificationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ClassificationRun, error)

	// GetLatest retrieves the most recently created run. Returns ErrNotFound if none.
	GetLatest(ctx context.Context) (*domain.ClassificationRun, error)

	// List retrieves all runs ordered by created_at ASC, run_id ASC.
	List(ctx context.Context) ([]*domain.ClassificationRun, error)
}

// ProductRecordStore provides access to product_records storage.
type ProductRecordStore interface {
	// InsertBulk adds the records of one run atomically.
	// Fails entire batch on duplicate (run_id, stock_code). Stores that know
	// runs reject records of an unknown run with ErrInvalidInput.
	InsertBulk(ctx context.Context, runID string, records []*domain.ProductRecord) error

	// GetByRunID retrieves all records of a run ordered by stock_code ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.ProductRecord, error)

	// GetByLabel retrieves records of a run with the given label, ordered by stock_code ASC.
	GetByLabel(ctx context.Context, runID string, label domain.Label) ([]*domain.ProductRecord, error)
}

// MonthlySalesStore provides access to monthly_sales storage.
type MonthlySalesStore interface {
	// InsertBulk adds the dense matrix cells of one run.
	// Fails entire batch on duplicate (run_id, stock_code, period).
	InsertBulk(ctx context.Context, runID string, cells []domain.MonthlySalesCell) error

	// GetByRunID retrieves all cells of a run ordered by (stock_code, period) ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.MonthlySalesCell, error)

	// GetByStockCode retrieves one product's series for a run ordered by period ASC.
	GetByStockCode(ctx context.Context, runID, stockCode string) ([]domain.MonthlySalesCell, error)
}
