package memory

import (
	"context"
	"sort"
	"sync"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// ProductRecordStore is an in-memory implementation of storage.ProductRecordStore.
type ProductRecordStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.ProductRecord // run_id -> stock_code -> record
}

// NewProductRecordStore creates a new in-memory product record store.
func NewProductRecordStore() *ProductRecordStore {
	return &ProductRecordStore{
		data: make(map[string]map[string]*domain.ProductRecord),
	}
}

// InsertBulk adds the records of one run atomically.
// Fails entire batch on duplicate (run_id, stock_code).
func (s *ProductRecordStore) InsertBulk(_ context.Context, runID string, records []*domain.ProductRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[runID]
	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.StockCode == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := existing[r.StockCode]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.StockCode]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.StockCode] = struct{}{}
	}

	if existing == nil {
		existing = make(map[string]*domain.ProductRecord, len(records))
		s.data[runID] = existing
	}
	for _, r := range records {
		copy := *r
		existing[r.StockCode] = &copy
	}

	return nil
}

// GetByRunID retrieves all records of a run ordered by stock_code ASC.
func (s *ProductRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.ProductRecord, error) {
	return s.collect(runID, func(*domain.ProductRecord) bool { return true }), nil
}

// GetByLabel retrieves records of a run with the given label, ordered by stock_code ASC.
func (s *ProductRecordStore) GetByLabel(_ context.Context, runID string, label domain.Label) ([]*domain.ProductRecord, error) {
	return s.collect(runID, func(r *domain.ProductRecord) bool { return r.Label == label }), nil
}

func (s *ProductRecordStore) collect(runID string, keep func(*domain.ProductRecord) bool) []*domain.ProductRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProductRecord
	for _, r := range s.data[runID] {
		if keep(r) {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StockCode < result[j].StockCode
	})

	return result
}

var _ storage.ProductRecordStore = (*ProductRecordStore)(nil)
