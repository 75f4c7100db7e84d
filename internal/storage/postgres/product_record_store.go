package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// ProductRecordStore implements storage.ProductRecordStore using PostgreSQL.
type ProductRecordStore struct {
	pool *Pool
}

// NewProductRecordStore creates a new ProductRecordStore.
func NewProductRecordStore(pool *Pool) *ProductRecordStore {
	return &ProductRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProductRecordStore = (*ProductRecordStore)(nil)

var productRecordColumns = []string{
	"run_id", "stock_code", "avg_sales", "std_dev", "max_sales",
	"cv", "unit_price", "description", "avg_revenue", "label",
}

const selectProductRecords = `
	SELECT stock_code, avg_sales, std_dev, max_sales,
		cv, unit_price, description, avg_revenue, label
	FROM product_records
`

// InsertBulk adds the records of one run atomically using COPY.
// Fails entire batch on duplicate (run_id, stock_code).
func (s *ProductRecordStore) InsertBulk(ctx context.Context, runID string, records []*domain.ProductRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.StockCode == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"product_records"},
		productRecordColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			return []any{
				runID, r.StockCode, r.AvgSales, nullableFloat(r.StdDev), r.MaxSales,
				r.CV, r.UnitPrice, r.Description, r.AvgRevenue, int16(r.Label),
			}, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: unknown run %s", storage.ErrInvalidInput, runID)
		}
		return fmt.Errorf("copy product records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all records of a run ordered by stock_code ASC.
func (s *ProductRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ProductRecord, error) {
	rows, err := s.pool.Query(ctx, selectProductRecords+`
		WHERE run_id = $1
		ORDER BY stock_code ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get product records by run id: %w", err)
	}
	defer rows.Close()

	return scanProductRecords(rows)
}

// GetByLabel retrieves records of a run with the given label, ordered by stock_code ASC.
func (s *ProductRecordStore) GetByLabel(ctx context.Context, runID string, label domain.Label) ([]*domain.ProductRecord, error) {
	rows, err := s.pool.Query(ctx, selectProductRecords+`
		WHERE run_id = $1 AND label = $2
		ORDER BY stock_code ASC
	`, runID, int16(label))
	if err != nil {
		return nil, fmt.Errorf("get product records by label: %w", err)
	}
	defer rows.Close()

	return scanProductRecords(rows)
}

// scanProductRecords scans multiple rows.
func scanProductRecords(rows pgx.Rows) ([]*domain.ProductRecord, error) {
	var result []*domain.ProductRecord

	for rows.Next() {
		var r domain.ProductRecord
		var stdDev *float64
		var label int16
		err := rows.Scan(
			&r.StockCode, &r.AvgSales, &stdDev, &r.MaxSales,
			&r.CV, &r.UnitPrice, &r.Description, &r.AvgRevenue, &label,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product record: %w", err)
		}
		r.StdDev = math.NaN()
		if stdDev != nil {
			r.StdDev = *stdDev
		}
		r.Label = domain.Label(label)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product records: %w", err)
	}

	return result, nil
}

// nullableFloat maps NaN to SQL NULL.
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
