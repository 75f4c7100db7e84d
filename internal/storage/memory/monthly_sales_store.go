package memory

import (
	"context"
	"sort"
	"sync"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// monthlySalesKey is the composite key of a cell within a run.
type monthlySalesKey struct {
	stockCode string
	period    domain.MonthPeriod
}

// MonthlySalesStore is an in-memory implementation of storage.MonthlySalesStore.
type MonthlySalesStore struct {
	mu   sync.RWMutex
	data map[string]map[monthlySalesKey]domain.MonthlySalesCell // keyed by run_id
}

// NewMonthlySalesStore creates a new in-memory monthly sales store.
func NewMonthlySalesStore() *MonthlySalesStore {
	return &MonthlySalesStore{
		data: make(map[string]map[monthlySalesKey]domain.MonthlySalesCell),
	}
}

// InsertBulk adds the dense matrix cells of one run.
// Fails entire batch on duplicate (run_id, stock_code, period).
func (s *MonthlySalesStore) InsertBulk(_ context.Context, runID string, cells []domain.MonthlySalesCell) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(cells) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[runID]
	batchKeys := make(map[monthlySalesKey]struct{}, len(cells))
	for _, c := range cells {
		if c.StockCode == "" {
			return storage.ErrInvalidInput
		}
		k := monthlySalesKey{c.StockCode, c.Period}
		if _, exists := existing[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	if existing == nil {
		existing = make(map[monthlySalesKey]domain.MonthlySalesCell, len(cells))
		s.data[runID] = existing
	}
	for _, c := range cells {
		existing[monthlySalesKey{c.StockCode, c.Period}] = c
	}

	return nil
}

// GetByRunID retrieves all cells of a run ordered by (stock_code, period) ASC.
func (s *MonthlySalesStore) GetByRunID(_ context.Context, runID string) ([]domain.MonthlySalesCell, error) {
	return s.collect(runID, func(domain.MonthlySalesCell) bool { return true }), nil
}

// GetByStockCode retrieves one product's series for a run ordered by period ASC.
func (s *MonthlySalesStore) GetByStockCode(_ context.Context, runID, stockCode string) ([]domain.MonthlySalesCell, error) {
	return s.collect(runID, func(c domain.MonthlySalesCell) bool { return c.StockCode == stockCode }), nil
}

func (s *MonthlySalesStore) collect(runID string, keep func(domain.MonthlySalesCell) bool) []domain.MonthlySalesCell {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.MonthlySalesCell
	for _, c := range s.data[runID] {
		if keep(c) {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StockCode != result[j].StockCode {
			return result[i].StockCode < result[j].StockCode
		}
		return result[i].Period.Before(result[j].Period)
	})

	return result
}

var _ storage.MonthlySalesStore = (*MonthlySalesStore)(nil)
