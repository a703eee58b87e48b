// Package roster is the batch-membership collaborator. The exam core only
// needs lookups; where the data actually lives (DB table, synced spreadsheet)
// is this package's problem.
package roster

import "context"

type Student struct {
	Phone     string   `json:"phone"`
	Name      string   `json:"name"`
	Batches   []string `json:"batches"`
	CreatedAt int64    `json:"created_at"` // join date, unix seconds
}

type Service interface {
	Student(ctx context.Context, phone string) (Student, error)
	StudentsInBatch(ctx context.Context, batch string) ([]Student, error)
}

func (s Student) InBatch(batch string) bool {
	for _, b := range s.Batches {
		if b == batch {
			return true
		}
	}
	return false
}

func (s Student) InAnyBatch(batches []string) bool {
	for _, b := range batches {
		if s.InBatch(b) {
			return true
		}
	}
	return false
}
