package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[int64]domain.Transaction // keyed by seq
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[int64]domain.Transaction),
	}
}

// InsertBulk adds multiple transactions atomically. Fails entire batch on duplicate seq.
func (s *TransactionStore) InsertBulk(_ context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[int64]struct{}, len(txs))
	for _, t := range txs {
		if t.Seq <= 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.Seq] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range txs {
		s.data[t.Seq] = t
	}

	return nil
}

// GetAll retrieves every transaction ordered by seq ASC.
func (s *TransactionStore) GetAll(_ context.Context) ([]domain.Transaction, error) {
	return s.collect(func(domain.Transaction) bool { return true }), nil
}

// GetByTimeRange retrieves transactions invoiced within [start, end), ordered by seq ASC.
// Undated transactions never match.
func (s *TransactionStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]domain.Transaction, error) {
	return s.collect(func(t domain.Transaction) bool {
		return t.HasInvoiceDate() && !t.InvoiceDate.Before(start) && t.InvoiceDate.Before(end)
	}), nil
}

// Count returns the number of stored transactions.
func (s *TransactionStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

func (s *TransactionStore) collect(keep func(domain.Transaction) bool) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(s.data))
	for _, t := range s.data {
		if keep(t) {
			result = append(result, t)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result
}

var _ storage.TransactionStore = (*TransactionStore)(nil)
