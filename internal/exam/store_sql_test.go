package exam

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbook/examsvc/internal/db"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "examsvc_test.db")
	sqlDB, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewSQLStore(sqlDB)
}

func sampleTest(id, createdBy string) Test {
	return Test{
		ID:    id,
		Title: "Weekly Physics",
		Questions: []Question{
			mcq("q1", 4, 1, 2),
			numRange("q2", 6, 0, 10, 20),
		},
		Deployment: Deployment{
			Batches: []string{batchA}, StartTime: 1000, EndTime: 2000,
			DurationMinutes: 30, QuestionCount: 0,
		},
		Config:     TestConfig{PassingPercentage: 40, ShowResults: true},
		Status:     TestStatusDeployed,
		TotalMarks: 10,
		CreatedBy:  createdBy,
		CreatedAt:  500,
	}
}

func TestSQLStoreTestRoundtrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	want := sampleTest("t-1", facultyEmail)
	require.NoError(t, s.PutTest(ctx, want))

	got, err := s.GetTest(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Upsert overwrites in place.
	want.Title = "Weekly Physics (revised)"
	want.Status = TestStatusCompleted
	require.NoError(t, s.PutTest(ctx, want))
	got, err = s.GetTest(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, TestStatusCompleted, got.Status)

	_, err = s.GetTest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreListTestsFilters(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	a := sampleTest("t-a", facultyEmail)
	b := sampleTest("t-b", "other@school.test")
	b.Deployment.Batches = []string{"batch-b"}
	b.Status = TestStatusDraft
	require.NoError(t, s.PutTest(ctx, a))
	require.NoError(t, s.PutTest(ctx, b))

	list, err := s.ListTests(ctx, TestListOpts{CreatedBy: facultyEmail})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t-a", list[0].ID)

	list, err = s.ListTests(ctx, TestListOpts{Status: TestStatusDraft})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t-b", list[0].ID)

	// Batch filter is applied on the JSON column after the scan.
	list, err = s.ListTests(ctx, TestListOpts{Batch: "batch-b"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t-b", list[0].ID)

	list, err = s.ListTests(ctx, TestListOpts{Batch: "no-such-batch"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLStoreAttemptLifecycle(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutTest(ctx, sampleTest("t-1", facultyEmail)))
	a := Attempt{
		ID: "att-1", TestID: "t-1", StudentPhone: studentPhone,
		Status:    AttemptInProgress,
		Answers:   []Answer{{QuestionID: "q1", Value: raw(`2`)}},
		StartedAt: 1100,
	}
	require.NoError(t, s.CreateAttempt(ctx, a))

	// One attempt per (test, student): a second insert is a conflict.
	dup := a
	dup.ID = "att-2"
	assert.ErrorIs(t, s.CreateAttempt(ctx, dup), ErrConflict)

	got, err := s.GetAttempt(ctx, "t-1", studentPhone)
	require.NoError(t, err)
	assert.Equal(t, a.Answers, got.Answers)
	assert.Zero(t, got.SubmittedAt, "unsubmitted attempt keeps a null submitted_at")
	assert.Empty(t, got.Questions)

	a.Status = AttemptCompleted
	a.Score = 4
	a.Percentage = 40
	a.SubmittedAt = 1400
	a.TimeSpentSec = 300
	a.TerminationReason = TerminationNormal
	require.NoError(t, s.UpdateAttempt(ctx, a))

	got, err = s.GetAttempt(ctx, "t-1", studentPhone)
	require.NoError(t, err)
	assert.Equal(t, AttemptCompleted, got.Status)
	assert.Equal(t, 4.0, got.Score)
	assert.Equal(t, int64(1400), got.SubmittedAt)

	missing := a
	missing.StudentPhone = "0000000000"
	assert.ErrorIs(t, s.UpdateAttempt(ctx, missing), ErrNotFound)
}

func TestSQLStoreAttemptSnapshotRoundtrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutTest(ctx, sampleTest("t-1", facultyEmail)))
	snapshot := []Question{mcq("q1", 4, 1, 2)}
	a := Attempt{
		ID: "att-1", TestID: "t-1", StudentPhone: studentPhone,
		Status: AttemptInProgress, Questions: snapshot, StartedAt: 1100,
	}
	require.NoError(t, s.CreateAttempt(ctx, a))

	got, err := s.GetAttempt(ctx, "t-1", studentPhone)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got.Questions)
}

func TestSQLStoreListAttempts(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutTest(ctx, sampleTest("t-1", facultyEmail)))
	for i, phone := range []string{"9000000001", "9000000002", "9000000003"} {
		a := Attempt{
			ID: "att-" + phone, TestID: "t-1", StudentPhone: phone,
			Status: AttemptInProgress, StartedAt: int64(1000 + i),
		}
		if i == 0 {
			a.Status = AttemptCompleted
		}
		require.NoError(t, s.CreateAttempt(ctx, a))
	}

	list, err := s.ListAttempts(ctx, AttemptListOpts{TestID: "t-1"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "9000000003", list[0].StudentPhone, "newest first")

	list, err = s.ListAttempts(ctx, AttemptListOpts{TestID: "t-1", Status: AttemptInProgress})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.ListAttempts(ctx, AttemptListOpts{TestID: "t-1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "9000000002", list[0].StudentPhone)
}
