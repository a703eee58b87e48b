package roster

import (
	"context"
	"sync"
)

// MemoryStore backs tests and offline single-node runs.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]Student
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{students: map[string]Student{}}
}

func (m *MemoryStore) Put(st Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[st.Phone] = st
}

func (m *MemoryStore) Student(_ context.Context, phone string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.students[phone]
	if !ok {
		return Student{}, ErrStudentNotFound
	}
	return st, nil
}

func (m *MemoryStore) StudentsInBatch(_ context.Context, batch string) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Student
	for _, st := range m.students {
		if st.InBatch(batch) {
			out = append(out, st)
		}
	}
	return out, nil
}
