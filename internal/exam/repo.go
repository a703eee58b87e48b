package exam

import "context"

type TestListOpts struct {
	CreatedBy string
	Batch     string // tests deployed to this batch
	Status    string
	Limit     int
	Offset    int
}

type AttemptListOpts struct {
	TestID       string
	StudentPhone string
	Status       string // in_progress|completed
	Limit        int
	Offset       int
}

type Store interface {
	PutTest(ctx context.Context, t Test) error // upsert
	GetTest(ctx context.Context, id string) (Test, error)
	ListTests(ctx context.Context, opts TestListOpts) ([]Test, error)

	// CreateAttempt fails with ErrConflict when an attempt already exists for
	// (test_id, student_phone); the schema enforces the uniqueness so a racing
	// second writer fails cleanly instead of inserting a duplicate.
	CreateAttempt(ctx context.Context, a Attempt) error
	UpdateAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, testID, studentPhone string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}
