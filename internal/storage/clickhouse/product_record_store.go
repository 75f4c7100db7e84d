package clickhouse

import (
	"context"
	"fmt"
	"math"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// ProductRecordStore implements storage.ProductRecordStore using ClickHouse.
type ProductRecordStore struct {
	conn *Conn
}

// NewProductRecordStore creates a new ProductRecordStore.
func NewProductRecordStore(conn *Conn) *ProductRecordStore {
	return &ProductRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ProductRecordStore = (*ProductRecordStore)(nil)

const selectProductRecords = `
	SELECT stock_code, avg_sales, std_dev, max_sales,
		cv, unit_price, description, avg_revenue, label
	FROM product_records
`

// InsertBulk adds the records of one run.
// A run's records are written once: rows already stored for runID count as duplicates.
func (s *ProductRecordStore) InsertBulk(ctx context.Context, runID string, records []*domain.ProductRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.StockCode == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.StockCode]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.StockCode] = struct{}{}
	}

	exists, err := s.conn.runExists(ctx, "product_records", runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO product_records (
			run_id, stock_code, avg_sales, std_dev, max_sales,
			cv, unit_price, description, avg_revenue, label
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		var stdDev *float64
		if !math.IsNaN(r.StdDev) {
			v := r.StdDev
			stdDev = &v
		}
		err = batch.Append(
			runID, r.StockCode, r.AvgSales, stdDev, r.MaxSales,
			r.CV, r.UnitPrice, r.Description, r.AvgRevenue, uint8(r.Label),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all records of a run ordered by stock_code ASC.
func (s *ProductRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ProductRecord, error) {
	rows, err := s.conn.Query(ctx, selectProductRecords+`
		WHERE run_id = ?
		ORDER BY stock_code ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanProductRecords(rows)
}

// GetByLabel retrieves records of a run with the given label, ordered by stock_code ASC.
func (s *ProductRecordStore) GetByLabel(ctx context.Context, runID string, label domain.Label) ([]*domain.ProductRecord, error) {
	rows, err := s.conn.Query(ctx, selectProductRecords+`
		WHERE run_id = ? AND label = ?
		ORDER BY stock_code ASC
	`, runID, uint8(label))
	if err != nil {
		return nil, fmt.Errorf("query by label: %w", err)
	}
	defer rows.Close()

	return scanProductRecords(rows)
}

// scanProductRecords scans multiple rows.
func scanProductRecords(rows chRows) ([]*domain.ProductRecord, error) {
	var records []*domain.ProductRecord

	for rows.Next() {
		var r domain.ProductRecord
		var stdDev *float64
		var label uint8
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
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product records: %w", err)
	}

	return records, nil
}
