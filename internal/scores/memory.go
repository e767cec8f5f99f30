package scores

import (
	"context"
	"sync"

	"github.com/verte-zerg/tafel/internal/model"
)

// Memory is an in-process Backend.
type Memory struct {
	mu      sync.Mutex
	results map[string][]model.TestResult // append order per profile
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{results: map[string][]model.TestResult{}}
}

// AppendResult implements Backend.
func (m *Memory) AppendResult(_ context.Context, result model.TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.ProfileID] = append(m.results[result.ProfileID], cloneResult(result))
	return nil
}

// ListResults implements Backend.
func (m *Memory) ListResults(_ context.Context, profileID string, limit int) ([]model.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.results[profileID]
	n := len(stored)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.TestResult, 0, n)
	for i := len(stored) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, cloneResult(stored[i]))
	}
	return out, nil
}

// LatestResults implements Backend.
func (m *Memory) LatestResults(_ context.Context) (map[string]model.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.TestResult, len(m.results))
	for id, stored := range m.results {
		if len(stored) == 0 {
			continue
		}
		out[id] = cloneResult(stored[len(stored)-1])
	}
	return out, nil
}

func cloneResult(r model.TestResult) model.TestResult {
	r.Tables = append([]int(nil), r.Tables...)
	if r.TableStats != nil {
		stats := make(map[int]model.TableTally, len(r.TableStats))
		for k, v := range r.TableStats {
			stats[k] = v
		}
		r.TableStats = stats
	}
	return r
}
