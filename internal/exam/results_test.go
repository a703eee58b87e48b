package exam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultHiddenUntilWindowCloses(t *testing.T) {
	e := newEnv(t)
	e.addStudent(studentPhone, "Asha", e.now-86400, batchA)
	ctx := context.Background()

	test := e.deployedTest(t, []Question{mcq("q1", 4, 0, 2)},
		TestConfig{ShowResults: true})
	submitWith(t, e, test.ID, studentPhone, map[string]string{"q1": `2`})

	// Window still open: status only, no score.
	res, err := e.svc.GetResult(ctx, studentPhone, test.ID)
	require.NoError(t, err)
	assert.False(t, res.ResultsVisible)
	assert.Nil(t, res.Score)
	assert.Nil(t, res.Passed)
	assert.Empty(t, res.Answers)
	assert.Equal(t, AttemptCompleted, res.Status)

	e.now += 2 * 3600
	res, err = e.svc.GetResult(ctx, studentPhone, test.ID)
	require.NoError(t, err)
	require.True(t, res.ResultsVisible)
	assert.Equal(t, 4.0, *res.Score)
	assert.Len(t, res.Answers, 1)
}

func TestResultNeverShownWhenDisabled(t *testing.T) {
	e := newEnv(t)
	e.addStudent(studentPhone, "Asha", e.now-86400, batchA)
	ctx := context.Background()

	test := e.deployedTest(t, []Question{mcq("q1", 4, 0, 2)}, TestConfig{})
	submitWith(t, e, test.ID, studentPhone, map[string]string{"q1": `2`})

	e.now += 2 * 3600
	res, err := e.svc.GetResult(ctx, studentPhone, test.ID)
	require.NoError(t, err)
	assert.False(t, res.ResultsVisible)
	assert.Nil(t, res.Score)
}

func TestResultRequiresSubmission(t *testing.T) {
	e := newEnv(t)
	e.addStudent(studentPhone, "Asha", e.now-86400, batchA)
	ctx := context.Background()

	test := e.deployedTest(t, []Question{mcq("q1", 4, 0, 2)}, TestConfig{})
	_, err := e.svc.SaveAnswer(ctx, studentPhone, test.ID, "q1", raw(`2`))
	require.NoError(t, err)

	_, err = e.svc.GetResult(ctx, studentPhone, test.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdjustMarks(t *testing.T) {
	e := newEnv(t)
	e.addStudent(studentPhone, "Asha", e.now-86400, batchA)
	ctx := context.Background()

	test := e.deployedTest(t, []Question{
		mcq("q1", 4, 1, 2),
		mcq("q2", 4, 0, 0),
	}, TestConfig{})
	a := submitWith(t, e, test.ID, studentPhone, map[string]string{"q1": `1`})
	assert.Equal(t, 0.0, a.Score)

	// Award partial credit on q1 and credit on the unanswered q2.
	a, err := e.svc.AdjustMarks(ctx, faculty, test.ID, studentPhone,
		map[string]float64{"q1": 2, "q2": 1.5})
	require.NoError(t, err)
	// -1 (wrong q1) + 2 + 1.5 = 2.5
	assert.Equal(t, 2.5, a.Score)
	assert.Equal(t, 31.0, a.Percentage) // round(2.5/8*100)

	// Adjustments overwrite, they never accumulate.
	a, err = e.svc.AdjustMarks(ctx, faculty, test.ID, studentPhone,
		map[string]float64{"q1": 1})
	require.NoError(t, err)
	assert.Equal(t, 1.5, a.Score) // -1 + 1 + 1.5

	// Survives a regrade: adjustment marks are preserved components.
	_, _, err = e.svc.UpdateTest(ctx, faculty, test.ID, UpdateTestInput{Title: "Renamed"})
	require.NoError(t, err)
	got, err := e.store.GetAttempt(ctx, test.ID, studentPhone)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.Score)
}

func TestAdjustMarksGuards(t *testing.T) {
	e := newEnv(t)
	e.addStudent(studentPhone, "Asha", e.now-86400, batchA)
	ctx := context.Background()

	test := e.deployedTest(t, []Question{mcq("q1", 4, 0, 2)}, TestConfig{})
	_, err := e.svc.SaveAnswer(ctx, studentPhone, test.ID, "q1", raw(`2`))
	require.NoError(t, err)

	// In-progress attempts cannot be adjusted.
	_, err = e.svc.AdjustMarks(ctx, faculty, test.ID, studentPhone, map[string]float64{"q1": 1})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = e.svc.Submit(ctx, studentPhone, test.ID)
	require.NoError(t, err)

	_, err = e.svc.AdjustMarks(ctx, faculty, test.ID, studentPhone, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.svc.AdjustMarks(ctx, faculty, test.ID, studentPhone, map[string]float64{"ghost": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}
