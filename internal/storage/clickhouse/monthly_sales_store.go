package clickhouse

import (
	"context"
	"fmt"
	"time"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// MonthlySalesStore implements storage.MonthlySalesStore using ClickHouse.
type MonthlySalesStore struct {
	conn *Conn
}

// NewMonthlySalesStore creates a new MonthlySalesStore.
func NewMonthlySalesStore(conn *Conn) *MonthlySalesStore {
	return &MonthlySalesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MonthlySalesStore = (*MonthlySalesStore)(nil)

// InsertBulk adds the dense matrix cells of one run.
// A run's matrix is written once: rows already stored for runID count as duplicates.
func (s *MonthlySalesStore) InsertBulk(ctx context.Context, runID string, cells []domain.MonthlySalesCell) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(cells) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		stockCode string
		period    domain.MonthPeriod
	}
	seen := make(map[key]struct{}, len(cells))
	for _, c := range cells {
		if c.StockCode == "" {
			return storage.ErrInvalidInput
		}
		k := key{c.StockCode, c.Period}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	exists, err := s.conn.runExists(ctx, "monthly_sales", runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO monthly_sales (run_id, stock_code, period, quantity)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range cells {
		if err := batch.Append(runID, c.StockCode, c.Period.Start(), c.Quantity); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all cells of a run ordered by (stock_code, period) ASC.
func (s *MonthlySalesStore) GetByRunID(ctx context.Context, runID string) ([]domain.MonthlySalesCell, error) {
	query := `
		SELECT stock_code, period, quantity
		FROM monthly_sales
		WHERE run_id = ?
		ORDER BY stock_code ASC, period ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanMonthlySales(rows)
}

// GetByStockCode retrieves one product's series for a run ordered by period ASC.
func (s *MonthlySalesStore) GetByStockCode(ctx context.Context, runID, stockCode string) ([]domain.MonthlySalesCell, error) {
	query := `
		SELECT stock_code, period, quantity
		FROM monthly_sales
		WHERE run_id = ? AND stock_code = ?
		ORDER BY period ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, stockCode)
	if err != nil {
		return nil, fmt.Errorf("query by stock code: %w", err)
	}
	defer rows.Close()

	return scanMonthlySales(rows)
}

// scanMonthlySales scans multiple rows.
func scanMonthlySales(rows chRows) ([]domain.MonthlySalesCell, error) {
	var cells []domain.MonthlySalesCell

	for rows.Next() {
		var c domain.MonthlySalesCell
		var period time.Time
		if err := rows.Scan(&c.StockCode, &period, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan monthly sales: %w", err)
		}
		c.Period = domain.PeriodOf(period.UTC())
		cells = append(cells, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly sales: %w", err)
	}

	return cells, nil
}
