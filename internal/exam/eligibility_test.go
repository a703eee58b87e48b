package exam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyEligibility(t *testing.T) {
	const (
		start = int64(1000)
		end   = int64(2000)
	)
	inProgress := &Attempt{Status: AttemptInProgress}
	done := &Attempt{Status: AttemptCompleted}

	cases := []struct {
		name     string
		joinedAt int64
		attempt  *Attempt
		now      int64
		want     string
	}{
		{"before window", 500, nil, 900, EligibilityUpcoming},
		{"inside window", 500, nil, 1500, EligibilityAvailable},
		{"at start", 500, nil, 1000, EligibilityAvailable},
		{"after window, was enrolled", 500, nil, 2500, EligibilityMissed},
		{"after window, joined late", 1500, nil, 2500, EligibilityNotEnrolled},
		{"completed attempt wins", 500, done, 2500, EligibilityCompleted},
		{"open attempt stays available past end", 500, inProgress, 2500, EligibilityAvailable},
		{"open attempt available before start", 500, inProgress, 900, EligibilityAvailable},
		{"completed attempt for late joiner", 1500, done, 2500, EligibilityCompleted},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ClassifyEligibility(c.joinedAt, start, end, c.attempt, c.now)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestListStudentTestsEligibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Joined after the first test's window opened.
	e.addStudent(studentPhone, "Asha", e.now-100, batchA)

	mk := func(title string, start, end int64) Test {
		created, err := e.svc.CreateTest(ctx, faculty, TestInput{
			Title: title, Questions: []Question{mcq("q-"+title, 1, 0, 0)},
		})
		require.NoError(t, err)
		deployed, err := e.svc.Deploy(ctx, faculty, created.ID, Deployment{
			Batches: []string{batchA}, StartTime: start, EndTime: end, DurationMinutes: 30,
		})
		require.NoError(t, err)
		return deployed
	}

	past := mk("past", e.now-5000, e.now-4000)     // window opened before the student joined
	open := mk("open", e.now-50, e.now+3600)       // currently open
	future := mk("future", e.now+5000, e.now+9000) // not yet open

	list, err := e.svc.ListStudentTests(ctx, studentPhone)
	require.NoError(t, err)
	require.Len(t, list, 3)

	byID := map[string]StudentTestView{}
	for _, v := range list {
		byID[v.TestID] = v
	}
	assert.Equal(t, EligibilityNotEnrolled, byID[past.ID].Eligibility,
		"late joiner is not_enrolled, never missed")
	assert.Equal(t, EligibilityAvailable, byID[open.ID].Eligibility)
	assert.Equal(t, EligibilityUpcoming, byID[future.ID].Eligibility)

	// Sorted by start time ascending.
	assert.Equal(t, past.ID, list[0].TestID)
	assert.Equal(t, future.ID, list[2].TestID)
}
