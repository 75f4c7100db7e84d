package memory

import (
	"context"
	"sort"
	"sync"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
)

// ClassificationRunStore is an in-memory implementation of storage.ClassificationRunStore.
type ClassificationRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ClassificationRun // keyed by run_id
}

// NewClassificationRunStore creates a new in-memory run store.
func NewClassificationRunStore() *ClassificationRunStore {
	return &ClassificationRunStore{
		data: make(map[string]*domain.ClassificationRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ClassificationRunStore) Insert(_ context.Context, run *domain.ClassificationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[run.RunID] = cloneRun(run)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ClassificationRunStore) GetByID(_ context.Context, runID string) (*domain.ClassificationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(run), nil
}

// GetLatest retrieves the most recently created run. Returns ErrNotFound if none.
func (s *ClassificationRunStore) GetLatest(ctx context.Context) (*domain.ClassificationRun, error) {
	runs, _ := s.List(ctx)
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return runs[len(runs)-1], nil
}

// List retrieves all runs ordered by created_at ASC, run_id ASC.
func (s *ClassificationRunStore) List(_ context.Context) ([]*domain.ClassificationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ClassificationRun, 0, len(s.data))
	for _, run := range s.data {
		result = append(result, cloneRun(run))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// cloneRun copies run including its thresholds.
func cloneRun(run *domain.ClassificationRun) *domain.ClassificationRun {
	c := *run
	if run.Thresholds != nil {
		th := *run.Thresholds
		c.Thresholds = &th
	}
	return &c
}

var _ storage.ClassificationRunStore = (*ClassificationRunStore)(nil)
