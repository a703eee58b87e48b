package exam

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is the in-process Store used by tests and offline runs.
type MemoryStore struct {
	mu       sync.RWMutex
	tests    map[string]Test
	attempts map[string]Attempt // key: testID|phone
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tests:    map[string]Test{},
		attempts: map[string]Attempt{},
	}
}

func attemptKey(testID, phone string) string { return testID + "|" + phone }

func (m *MemoryStore) PutTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tests[t.ID] = t
	return nil
}

func (m *MemoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, fmt.Errorf("test %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *MemoryStore) ListTests(_ context.Context, opts TestListOpts) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Test
	for _, t := range m.tests {
		if opts.CreatedBy != "" && t.CreatedBy != opts.CreatedBy {
			continue
		}
		if opts.Status != "" && t.Status != opts.Status {
			continue
		}
		if opts.Batch != "" && !containsString(t.Deployment.Batches, opts.Batch) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (m *MemoryStore) CreateAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attemptKey(a.TestID, a.StudentPhone)
	if _, exists := m.attempts[k]; exists {
		return fmt.Errorf("attempt for %s/%s exists: %w", a.TestID, a.StudentPhone, ErrConflict)
	}
	m.attempts[k] = a
	return nil
}

func (m *MemoryStore) UpdateAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attemptKey(a.TestID, a.StudentPhone)
	if _, exists := m.attempts[k]; !exists {
		return fmt.Errorf("attempt for %s/%s: %w", a.TestID, a.StudentPhone, ErrNotFound)
	}
	m.attempts[k] = a
	return nil
}

func (m *MemoryStore) GetAttempt(_ context.Context, testID, phone string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[attemptKey(testID, phone)]
	if !ok {
		return Attempt{}, fmt.Errorf("attempt for %s/%s: %w", testID, phone, ErrNotFound)
	}
	return a, nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if opts.TestID != "" && a.TestID != opts.TestID {
			continue
		}
		if opts.StudentPhone != "" && a.StudentPhone != opts.StudentPhone {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	return paginate(out, opts.Limit, opts.Offset), nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func paginate[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
