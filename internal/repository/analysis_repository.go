package repository

import (
	"context"
	"sync"

	"github.com/iconidentify/teardown/internal/domain"
)

// DefaultHistorySize is how many runs are kept when no size is given.
const DefaultHistorySize = 50

// InMemoryAnalysisRepository implements AnalysisRepository with a bounded
// in-memory history. The oldest run is evicted once the limit is reached.
type InMemoryAnalysisRepository struct {
	mu    sync.RWMutex
	runs  map[domain.AnalysisID]*domain.Analysis
	order []domain.AnalysisID // oldest first
	limit int
}

// NewInMemoryAnalysisRepository creates a repository keeping up to limit runs.
func NewInMemoryAnalysisRepository(limit int) *InMemoryAnalysisRepository {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &InMemoryAnalysisRepository{
		runs:  make(map[domain.AnalysisID]*domain.Analysis),
		order: make([]domain.AnalysisID, 0, limit),
		limit: limit,
	}
}

// Save inserts or replaces a run. A copy is stored so callers may keep
// mutating their value.
func (r *InMemoryAnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[a.ID]; !exists {
		r.order = append(r.order, a.ID)
		for len(r.order) > r.limit {
			delete(r.runs, r.order[0])
			r.order = r.order[1:]
		}
	}
	r.runs[a.ID] = cloneAnalysis(a)

	return nil
}

// Get retrieves a run by ID.
func (r *InMemoryAnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrAnalysisNotFound
	}

	return cloneAnalysis(a), nil
}

// List returns up to limit runs, newest first. A limit of 0 returns all.
func (r *InMemoryAnalysisRepository) List(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}

	result := make([]*domain.Analysis, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, cloneAnalysis(r.runs[r.order[i]]))
	}

	return result, nil
}

// Stats returns run counts by status.
func (r *InMemoryAnalysisRepository) Stats(ctx context.Context) (*AnalysisStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &AnalysisStats{}
	for _, a := range r.runs {
		switch a.Status {
		case domain.AnalysisStatusRunning:
			stats.Running++
		case domain.AnalysisStatusCompleted:
			stats.Completed++
		case domain.AnalysisStatusFailed:
			stats.Failed++
		}
	}

	return stats, nil
}

// Clear removes all runs (useful for testing).
func (r *InMemoryAnalysisRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = make(map[domain.AnalysisID]*domain.Analysis)
	r.order = make([]domain.AnalysisID, 0, r.limit)
}

func cloneAnalysis(a *domain.Analysis) *domain.Analysis {
	c := *a
	if a.Warnings != nil {
		c.Warnings = append([]string(nil), a.Warnings...)
	}
	return &c
}
